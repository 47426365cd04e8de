package curriculum_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
)

func TestLoader_LoadTopics(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	topics := loader.AllTopics()
	if len(topics) != 2 {
		t.Fatalf("AllTopics() = %d topics, want 2", len(topics))
	}
	if topics[0].ID != "Agile" || topics[1].ID != "SDLC" {
		t.Errorf("AllTopics() = [%s %s], want sorted [Agile SDLC]", topics[0].ID, topics[1].ID)
	}
}

func TestLoader_GetTopic(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	topic, found := loader.GetTopic("Agile")
	if !found {
		t.Fatal("GetTopic(Agile) not found")
	}
	if topic.Name == "" {
		t.Error("Topic.Name is empty")
	}
	if len(topic.Prerequisites.Required) != 1 || topic.Prerequisites.Required[0] != "SDLC" {
		t.Errorf("Prerequisites.Required = %v, want [SDLC]", topic.Prerequisites.Required)
	}

	if _, found := loader.GetTopic("NONEXISTENT"); found {
		t.Error("GetTopic(NONEXISTENT) should not be found")
	}
}

func TestLoader_SkipsNonTopicYAML(t *testing.T) {
	dir := setupTestCurriculum(t)

	topicsDir := filepath.Join(dir, "topics", "software")
	os.WriteFile(filepath.Join(topicsDir, "sdlc.assessments.yaml"), []byte(`
topic_id: SDLC
questions:
  - id: Q1
    text: "Name the phases"
`), 0o644)
	os.WriteFile(filepath.Join(topicsDir, "broken.yaml"), []byte("id: [unclosed"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if got := len(loader.AllTopics()); got != 2 {
		t.Errorf("AllTopics() = %d topics, want 2 (assessment and invalid YAML should be skipped)", got)
	}
}

func TestLoader_Graph(t *testing.T) {
	dir := setupTestCurriculum(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	g, err := loader.Graph()
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	if got := g.DependentCount("SDLC"); got != 1 {
		t.Errorf("DependentCount(SDLC) = %d, want 1", got)
	}
	if g.Has("OSI Model") {
		t.Error("loaded graph should not contain default topics")
	}
}

func TestLoader_EmptyDirUsesDefaultGraph(t *testing.T) {
	for _, dir := range []string{t.TempDir(), filepath.Join(t.TempDir(), "missing")} {
		loader, err := curriculum.NewLoader(dir)
		if err != nil {
			t.Fatalf("NewLoader() error = %v", err)
		}

		g, err := loader.Graph()
		if err != nil {
			t.Fatalf("Graph() error = %v", err)
		}
		if len(g.Topics()) != 5 {
			t.Errorf("Topics() = %v, want the 5 default topics", g.Topics())
		}
	}
}

func TestLoader_CyclicCurriculum(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: A\nprerequisites:\n  required: [B]\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("id: B\nprerequisites:\n  required: [A]\n"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if _, err := loader.Graph(); !errors.Is(err, curriculum.ErrCycle) {
		t.Errorf("Graph() error = %v, want ErrCycle", err)
	}
}

func setupTestCurriculum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	topicsDir := filepath.Join(dir, "topics", "software")
	os.MkdirAll(topicsDir, 0o755)

	os.WriteFile(filepath.Join(topicsDir, "sdlc.yaml"), []byte(`
id: SDLC
name: "Software Development Life Cycle"
difficulty: beginner
learning_objectives:
  - id: LO1
    text: "List the phases of the SDLC"
    bloom: remember
prerequisites:
  required: []
`), 0o644)

	os.WriteFile(filepath.Join(topicsDir, "agile.yaml"), []byte(`
id: Agile
name: "Agile Methodologies"
difficulty: intermediate
prerequisites:
  required: [SDLC]
  recommended: []
`), 0o644)

	return dir
}
