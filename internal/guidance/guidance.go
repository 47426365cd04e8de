// Package guidance turns mastery records into study recommendations and a
// learning path.
package guidance

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

const (
	// crowdedTopics is the topic count above which High topics get no guidance.
	crowdedTopics = 3
	// dependentBoost pulls a topic forward per topic that depends on it.
	dependentBoost = 0.1
	// maxNewTopics caps the explore milestone.
	maxNewTopics = 3
)

// Recommendation is one suggested action.
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// TopicGuidance holds the recommendations for one assessed topic.
type TopicGuidance struct {
	Topic           string           `json:"topic"`
	Score           float64          `json:"score"`
	Status          string           `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`

	priority float64
}

// Milestone is a learning path goal.
type Milestone struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// LearningPath is the student's overall level and the goals that follow from it.
type LearningPath struct {
	Level       mastery.Level `json:"level"`
	Description string        `json:"description"`
	Milestones  []Milestone   `json:"milestones"`
}

// Payload is the guidance returned to dashboards.
type Payload struct {
	TopicGuidance []TopicGuidance `json:"topicGuidance"`
	LearningPath  LearningPath    `json:"learningPath"`
}

// Engine builds guidance payloads.
type Engine struct {
	classifier mastery.Classifier
}

// NewEngine creates an Engine that derives the overall level with c.
// A nil classifier uses mastery.DefaultThresholds.
func NewEngine(c mastery.Classifier) *Engine {
	if c == nil {
		c = mastery.DefaultThresholds
	}
	return &Engine{classifier: c}
}

// Guidance computes topic guidance and a learning path. A nil graph selects
// curriculum.DefaultGraph.
func (e *Engine) Guidance(records []mastery.Record, graph *curriculum.Graph) Payload {
	if graph == nil {
		graph = curriculum.DefaultGraph()
	}

	topics := mastery.Topics(records)
	if len(topics) == 0 {
		return Payload{
			TopicGuidance: []TopicGuidance{},
			LearningPath: LearningPath{
				Level:       mastery.Normal,
				Description: "Complete some quizzes to get personalized guidance.",
				Milestones:  DefaultMilestones(mastery.Normal),
			},
		}
	}

	var sum float64
	for _, r := range topics {
		sum += r.Score
	}
	level := e.classifier.Classify(sum / float64(len(topics)))

	return Payload{
		TopicGuidance: topicGuidance(topics, graph),
		LearningPath: LearningPath{
			Level:       level,
			Description: LevelDescription(level),
			Milestones:  milestones(level, topics, graph),
		},
	}
}

func topicGuidance(topics []mastery.Record, graph *curriculum.Graph) []TopicGuidance {
	byTopic := mastery.ByTopic(topics)
	out := []TopicGuidance{}

	for _, r := range topics {
		if r.Level == mastery.High && len(topics) > crowdedTopics {
			continue
		}

		var missing []string
		for _, p := range graph.Prerequisites(r.Topic) {
			if prereq, ok := byTopic[p]; !ok || prereq.Level == mastery.Low {
				missing = append(missing, p)
			}
		}

		g := TopicGuidance{
			Topic:    r.Topic,
			Score:    r.Score,
			Status:   strings.ToLower(string(r.Level)),
			priority: r.Score - dependentBoost*float64(graph.DependentCount(r.Topic)),
		}
		if len(missing) > 0 {
			g.Recommendations = append(g.Recommendations, Recommendation{
				Type:        "prerequisite",
				Title:       "Focus on Prerequisites",
				Description: fmt.Sprintf("Before advancing in %s, strengthen your understanding of: %s.", r.Topic, strings.Join(missing, ", ")),
				Link:        "/resources/prerequisites",
			})
		}
		g.Recommendations = append(g.Recommendations, levelRecommendations(r.Topic, r.Level)...)
		out = append(out, g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

func levelRecommendations(topic string, level mastery.Level) []Recommendation {
	slug := Slug(topic)
	switch level {
	case mastery.Low:
		return []Recommendation{
			{
				Type:        "resource",
				Title:       "Fundamentals",
				Description: fmt.Sprintf("Review the basic concepts of %s to build a solid foundation.", topic),
				Link:        "/resources/" + slug + "/fundamentals",
			},
			{
				Type:        "practice",
				Title:       "Basic Practice",
				Description: fmt.Sprintf("Complete basic exercises to reinforce your understanding of %s.", topic),
				Link:        "/practice/" + slug + "/basic",
			},
		}
	case mastery.Normal:
		return []Recommendation{
			{
				Type:        "resource",
				Title:       "Advanced Concepts",
				Description: fmt.Sprintf("Explore more advanced concepts in %s to deepen your knowledge.", topic),
				Link:        "/resources/" + slug + "/advanced",
			},
			{
				Type:        "practice",
				Title:       "Challenging Exercises",
				Description: fmt.Sprintf("Tackle more challenging problems in %s to test your skills.", topic),
				Link:        "/practice/" + slug + "/intermediate",
			},
		}
	default:
		return []Recommendation{
			{
				Type:        "resource",
				Title:       "Expert Resources",
				Description: fmt.Sprintf("Study expert-level materials on %s to master the subject.", topic),
				Link:        "/resources/" + slug + "/expert",
			},
			{
				Type:        "goal",
				Title:       "Knowledge Sharing",
				Description: fmt.Sprintf("Consider sharing your knowledge of %s with peers or in online forums.", topic),
				Link:        "/community",
			},
		}
	}
}

// Slug turns a topic name into a lower-case, dash-separated link segment.
func Slug(topic string) string {
	lower := cases.Lower(language.Und).String(strings.TrimSpace(topic))
	return strings.Join(strings.Fields(lower), "-")
}
