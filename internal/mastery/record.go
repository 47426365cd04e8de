package mastery

import (
	"math"
	"time"
)

// OverallTopic is the reserved topic of the per-student summary record.
const OverallTopic = "OVERALL"

// Alpha is the weight of the newest measurement in Blend.
const Alpha = 0.7

// Record is the mastery of one student in one topic.
type Record struct {
	StudentID string    `json:"student_id"`
	Topic     string    `json:"topic"`
	Score     float64   `json:"score"`
	Level     Level     `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord builds a record whose level is derived from score by c, so the
// two fields can never disagree. Scores are clamped to [0,1].
func NewRecord(studentID, topic string, score float64, c Classifier, at time.Time) Record {
	score = Clamp(score)
	return Record{
		StudentID: studentID,
		Topic:     topic,
		Score:     score,
		Level:     c.Classify(score),
		UpdatedAt: at,
	}
}

// IsOverall reports whether r is the synthetic OVERALL record.
func (r Record) IsOverall() bool {
	return r.Topic == OverallTopic
}

// Blend smooths a new measurement against the previous stored score.
func Blend(old, measured float64) float64 {
	return Alpha*measured + (1-Alpha)*old
}

// Clamp limits a score to [0,1]. NaN becomes 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

// ByTopic indexes records by topic.
func ByTopic(recs []Record) map[string]Record {
	m := make(map[string]Record, len(recs))
	for _, r := range recs {
		m[r.Topic] = r
	}
	return m
}

// Topics returns the records without the OVERALL record.
func Topics(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if !r.IsOverall() {
			out = append(out, r)
		}
	}
	return out
}
