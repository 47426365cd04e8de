package mastery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

func TestLoadClassifier_Fallback(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		c, ok, err := mastery.LoadClassifier(path)
		if err != nil {
			t.Fatalf("LoadClassifier(%q) error = %v", path, err)
		}
		if ok {
			t.Errorf("LoadClassifier(%q) ok = true, want fallback", path)
		}
		if c.Classify(0.45) != mastery.Low || c.Classify(0.8) != mastery.High {
			t.Errorf("fallback classifier should use the 0.5/0.8 cut points")
		}
	}
}

func TestLoadClassifier_Artifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overall.yaml")
	os.WriteFile(path, []byte(`
model: logistic-overall
version: "2"
thresholds:
  low: 0.3
  high: 0.6
`), 0o644)

	c, ok, err := mastery.LoadClassifier(path)
	if err != nil {
		t.Fatalf("LoadClassifier() error = %v", err)
	}
	if !ok {
		t.Fatal("LoadClassifier() ok = false, want artifact")
	}
	if got := c.Classify(0.35); got != mastery.Normal {
		t.Errorf("Classify(0.35) = %s, want Normal", got)
	}
	ac, isArtifact := c.(mastery.ArtifactClassifier)
	if !isArtifact || ac.Model != "logistic-overall" {
		t.Errorf("classifier = %#v, want ArtifactClassifier for logistic-overall", c)
	}
}

func TestLoadClassifier_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "thresholds: [oops"},
		{"inverted", "thresholds:\n  low: 0.9\n  high: 0.2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "overall.yaml")
			os.WriteFile(path, []byte(tt.content), 0o644)

			if _, _, err := mastery.LoadClassifier(path); err == nil {
				t.Error("LoadClassifier() should return error")
			}
		})
	}
}
