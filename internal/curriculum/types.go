package curriculum

// Topic represents a curriculum topic loaded from YAML. ID is the label
// questions are tagged with in the question pool (e.g. "SDLC").
type Topic struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	Description        string              `yaml:"description"`
	Difficulty         string              `yaml:"difficulty"`
	LearningObjectives []LearningObjective `yaml:"learning_objectives"`
	Prerequisites      Prerequisites       `yaml:"prerequisites"`
}

// LearningObjective represents a learning objective within a topic.
type LearningObjective struct {
	ID    string `yaml:"id"`
	Text  string `yaml:"text"`
	Bloom string `yaml:"bloom"`
}

// Prerequisites holds required and recommended prerequisites.
// Only required prerequisites take part in the graph.
type Prerequisites struct {
	Required    []string `yaml:"required"`
	Recommended []string `yaml:"recommended"`
}
