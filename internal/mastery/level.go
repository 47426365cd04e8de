// Package mastery holds per-student, per-topic mastery records and the rules
// that turn a score into a level.
package mastery

import "fmt"

// Level is the coarse classification of a mastery score.
type Level string

const (
	Low    Level = "Low"
	Normal Level = "Normal"
	High   Level = "High"
)

// ParseLevel converts a stored level name back into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case Low, Normal, High:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown mastery level %q", s)
	}
}

// Classifier maps a score in [0,1] to a level. Implementations must be pure.
type Classifier interface {
	Classify(score float64) Level
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(score float64) Level

func (f ClassifierFunc) Classify(score float64) Level { return f(score) }

// Thresholds classifies by two cut points: below Low is Low, below High is
// Normal, anything else is High.
type Thresholds struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

var (
	// DefaultThresholds is the canonical classification used for topic
	// records, difficulty bands and guidance.
	DefaultThresholds = Thresholds{Low: 0.4, High: 0.7}

	// OverallThresholds classifies the OVERALL record when no trained
	// classifier artifact is configured.
	OverallThresholds = Thresholds{Low: 0.5, High: 0.8}
)

func (t Thresholds) Classify(score float64) Level {
	switch {
	case score < t.Low:
		return Low
	case score < t.High:
		return Normal
	default:
		return High
	}
}

// Validate checks that the cut points are ordered and inside [0,1].
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low > t.High {
		return fmt.Errorf("invalid thresholds low=%v high=%v", t.Low, t.High)
	}
	return nil
}
