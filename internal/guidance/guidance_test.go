package guidance_test

import (
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/guidance"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

func records(scores map[string]float64) []mastery.Record {
	var out []mastery.Record
	for topic, score := range scores {
		c := mastery.Classifier(mastery.DefaultThresholds)
		if topic == mastery.OverallTopic {
			c = mastery.OverallThresholds
		}
		out = append(out, mastery.NewRecord("s1", topic, score, c, time.Now()))
	}
	return out
}

func topicsOf(p guidance.Payload) []string {
	var out []string
	for _, g := range p.TopicGuidance {
		out = append(out, g.Topic)
	}
	return out
}

func milestone(p guidance.Payload, title string) (guidance.Milestone, bool) {
	for _, m := range p.LearningPath.Milestones {
		if m.Title == title {
			return m, true
		}
	}
	return guidance.Milestone{}, false
}

func TestGuidance_PrerequisiteOrdering(t *testing.T) {
	e := guidance.NewEngine(nil)
	p := e.Guidance(records(map[string]float64{"Agile": 0.3, "SDLC": 0.3}), curriculum.DefaultGraph())

	got := topicsOf(p)
	if len(got) != 2 || got[0] != "SDLC" || got[1] != "Agile" {
		t.Fatalf("order = %v, want [SDLC Agile]", got)
	}

	agile := p.TopicGuidance[1]
	if agile.Status != "low" {
		t.Errorf("Agile status = %q, want low", agile.Status)
	}
	if len(agile.Recommendations) != 3 || agile.Recommendations[0].Type != "prerequisite" {
		t.Fatalf("Agile recommendations = %+v, want prerequisite first then two", agile.Recommendations)
	}
	if !strings.Contains(agile.Recommendations[0].Description, "SDLC") {
		t.Errorf("prerequisite description = %q, want SDLC named", agile.Recommendations[0].Description)
	}

	sdlc := p.TopicGuidance[0]
	if len(sdlc.Recommendations) != 2 || sdlc.Recommendations[0].Title != "Fundamentals" {
		t.Errorf("SDLC recommendations = %+v, want fundamentals and basic practice", sdlc.Recommendations)
	}
	if sdlc.Recommendations[0].Link != "/resources/sdlc/fundamentals" {
		t.Errorf("link = %q", sdlc.Recommendations[0].Link)
	}
}

func TestGuidance_PriorityUsesScoreFirst(t *testing.T) {
	e := guidance.NewEngine(nil)
	// SDLC has two dependents (priority 0.6) but Agile is far weaker (0.1).
	p := e.Guidance(records(map[string]float64{"SDLC": 0.8, "Agile": 0.2}), curriculum.DefaultGraph())

	if got := topicsOf(p); got[0] != "Agile" {
		t.Errorf("order = %v, want Agile first", got)
	}
}

func TestGuidance_NoTopics(t *testing.T) {
	tests := []struct {
		name string
		recs []mastery.Record
	}{
		{"nothing", nil},
		{"only overall", records(map[string]float64{mastery.OverallTopic: 0.9})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := guidance.NewEngine(nil).Guidance(tt.recs, nil)
			if len(p.TopicGuidance) != 0 {
				t.Errorf("TopicGuidance = %+v, want empty", p.TopicGuidance)
			}
			if p.LearningPath.Level != mastery.Normal {
				t.Errorf("Level = %s, want Normal", p.LearningPath.Level)
			}
			if len(p.LearningPath.Milestones) != 2 {
				t.Errorf("Milestones = %+v, want the two defaults", p.LearningPath.Milestones)
			}
		})
	}
}

func TestGuidance_HighTopicsHiddenWhenCrowded(t *testing.T) {
	tests := []struct {
		name     string
		scores   map[string]float64
		wantHigh bool
	}{
		{"three topics", map[string]float64{"SDLC": 0.9, "Agile": 0.5, "OSI Model": 0.2}, true},
		{"four topics", map[string]float64{"SDLC": 0.9, "Agile": 0.5, "OSI Model": 0.2, "Network Engineering": 0.3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := guidance.NewEngine(nil).Guidance(records(tt.scores), nil)
			hasHigh := false
			for _, g := range p.TopicGuidance {
				if g.Status == "high" {
					hasHigh = true
				}
			}
			if hasHigh != tt.wantHigh {
				t.Errorf("high topic present = %v, want %v (%v)", hasHigh, tt.wantHigh, topicsOf(p))
			}
		})
	}
}

func TestGuidance_LearningPath(t *testing.T) {
	tests := []struct {
		name      string
		scores    map[string]float64
		wantLevel mastery.Level
		want      []string
		notWant   []string
	}{
		{
			name:      "low",
			scores:    map[string]float64{"SDLC": 0.1, "Agile": 0.2},
			wantLevel: mastery.Low,
			want:      []string{"Master Foundation Topics", "Regular Practice", "Focus on Weak Areas", "Explore New Topics"},
		},
		{
			name:      "normal",
			scores:    map[string]float64{"SDLC": 0.5, "Agile": 0.6},
			wantLevel: mastery.Normal,
			want:      []string{"Strengthen Key Prerequisites", "Reach 70% in All Topics", "Apply Concepts"},
		},
		{
			name:      "high",
			scores:    map[string]float64{"SDLC": 0.8, "Agile": 0.95, "OSI Model": 0.9, "Network Engineering": 0.9, "Software Engineering": 0.9},
			wantLevel: mastery.High,
			want:      []string{"Maintain Mastery", "Reach Expert Level", "Peer Teaching"},
			notWant:   []string{"Explore New Topics"},
		},
		{
			name:      "overall record ignored",
			scores:    map[string]float64{"SDLC": 0.9, mastery.OverallTopic: 0.1},
			wantLevel: mastery.High,
			want:      []string{"Maintain Mastery", "Peer Teaching"},
			notWant:   []string{"Reach Expert Level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := guidance.NewEngine(nil).Guidance(records(tt.scores), curriculum.DefaultGraph())
			if p.LearningPath.Level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", p.LearningPath.Level, tt.wantLevel)
			}
			if p.LearningPath.Description != guidance.LevelDescription(tt.wantLevel) {
				t.Errorf("Description = %q", p.LearningPath.Description)
			}
			for _, title := range tt.want {
				if _, ok := milestone(p, title); !ok {
					t.Errorf("missing milestone %q in %+v", title, p.LearningPath.Milestones)
				}
			}
			for _, title := range tt.notWant {
				if _, ok := milestone(p, title); ok {
					t.Errorf("unexpected milestone %q", title)
				}
			}
		})
	}
}

func TestGuidance_ExploreNewTopicsCapped(t *testing.T) {
	p := guidance.NewEngine(nil).Guidance(records(map[string]float64{"SDLC": 0.5}), curriculum.DefaultGraph())

	m, ok := milestone(p, "Explore New Topics")
	if !ok {
		t.Fatal("missing Explore New Topics milestone")
	}
	if got := strings.Count(m.Description, ","); got != 2 {
		t.Errorf("description %q should list exactly 3 topics", m.Description)
	}
	if strings.Contains(m.Description, "SDLC") {
		t.Errorf("description %q names an assessed topic", m.Description)
	}
}

func TestGuidance_InjectedGraph(t *testing.T) {
	graph, err := curriculum.NewGraph(map[string][]string{
		"Loops":     {"Variables"},
		"Variables": {},
	})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	p := guidance.NewEngine(nil).Guidance(records(map[string]float64{"Loops": 0.5}), graph)
	if len(p.TopicGuidance) != 1 || p.TopicGuidance[0].Recommendations[0].Type != "prerequisite" {
		t.Errorf("TopicGuidance = %+v, want missing Variables prerequisite", p.TopicGuidance)
	}
	m, ok := milestone(p, "Explore New Topics")
	if !ok || !strings.Contains(m.Description, "Variables") {
		t.Errorf("explore milestone = %+v, want Variables", m)
	}
}

func TestGuidance_CustomClassifier(t *testing.T) {
	always := mastery.ClassifierFunc(func(float64) mastery.Level { return mastery.High })
	p := guidance.NewEngine(always).Guidance(records(map[string]float64{"SDLC": 0.1}), nil)
	if p.LearningPath.Level != mastery.High {
		t.Errorf("Level = %s, want High from the injected classifier", p.LearningPath.Level)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SDLC", "sdlc"},
		{"Network Engineering", "network-engineering"},
		{"  OSI   Model ", "osi-model"},
	}
	for _, tt := range tests {
		if got := guidance.Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
