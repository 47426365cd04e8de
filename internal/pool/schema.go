package pool

// PoolSchema describes the outer shape of a JSON question pool file. Entries
// are checked one by one against QuestionSchema.
const PoolSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"type": "object"}
}`

// QuestionSchema describes one entry of a JSON question pool. The weight has
// no type here; ParseWeight decides what it means.
const QuestionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["question", "options", "correctAnswer"],
  "properties": {
    "id": {"type": "string"},
    "topic": {"type": "string"},
    "question": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 4,
      "maxItems": 4
    },
    "correctAnswer": {"type": "integer"}
  }
}`

// AuthoredSchema describes the envelope of a reply from the AI question
// author. Questions are checked one by one against AuthoredQuestionSchema.
const AuthoredSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`

// AuthoredQuestionSchema describes one AI-authored question.
const AuthoredQuestionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["question", "options", "correctAnswer"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 4,
      "maxItems": 4
    },
    "correctAnswer": {"type": "integer", "minimum": 0, "maximum": 3},
    "explanation": {"type": "string"}
  }
}`
