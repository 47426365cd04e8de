package mastery

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// artifact is the serialized form of a trained overall-level classifier.
// The model is reduced to the two score cut points it learned.
type artifact struct {
	Model      string     `yaml:"model"`
	Version    string     `yaml:"version"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// ArtifactClassifier classifies with cut points read from a model artifact.
type ArtifactClassifier struct {
	Model   string
	Version string
	Thresholds
}

// LoadClassifier reads the overall classifier artifact at path. An empty
// path or a missing file selects OverallThresholds; ok reports whether the
// artifact was used. A file that exists but cannot be parsed is an error.
func LoadClassifier(path string) (c Classifier, ok bool, err error) {
	if path == "" {
		return OverallThresholds, false, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return OverallThresholds, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read classifier artifact: %w", err)
	}

	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, false, fmt.Errorf("parse classifier artifact: %w", err)
	}
	if err := a.Thresholds.Validate(); err != nil {
		return nil, false, fmt.Errorf("classifier artifact %s: %w", path, err)
	}

	return ArtifactClassifier{Model: a.Model, Version: a.Version, Thresholds: a.Thresholds}, true, nil
}
