package guidance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

// Score bands used by quiz recommendations.
const (
	weakScore      = 0.5
	reinforceScore = 0.8
	// maxRecommendedTopics caps the topics named by one recommendation.
	maxRecommendedTopics = 3
	mixedTopics          = 5
)

// NextSteps suggests what a student should do next, from the number of
// quizzes issued to them and the topics of their most recent mistakes.
func NextSteps(records []mastery.Record, quizzesTaken int, missedTopics []string) []Recommendation {
	if quizzesTaken == 0 {
		return []Recommendation{{
			Type:        "quiz",
			Title:       "Take Your First Quiz",
			Description: "Start your learning journey by completing a quiz to assess your knowledge.",
			Link:        "/students/quizzes",
		}}
	}

	var steps []Recommendation
	if quizzesTaken < 3 {
		steps = append(steps, Recommendation{
			Type:        "quiz",
			Title:       "Take More Quizzes",
			Description: "Complete more quizzes to get a better assessment of your knowledge.",
			Link:        "/students/quizzes",
		})
	}

	if weakest := lowest(mastery.Topics(records), 1); len(weakest) > 0 {
		topic := weakest[0].Topic
		steps = append(steps, Recommendation{
			Type:        "focus",
			Title:       "Focus on " + topic,
			Description: "This is currently your weakest topic. Dedicate extra time to improving in this area.",
			Link:        "/resources/" + Slug(topic),
		})
	}

	if len(missedTopics) > 0 {
		topics := missedTopics
		if len(topics) > maxRecommendedTopics {
			topics = topics[:maxRecommendedTopics]
		}
		steps = append(steps, Recommendation{
			Type:        "review",
			Title:       "Review Recent Mistakes",
			Description: fmt.Sprintf("Focus on understanding the concepts you missed in recent quizzes, particularly in %s.", strings.Join(topics, ", ")),
			Link:        "/students/quizzes",
		})
	}
	return steps
}

// QuizRecommendation describes a quiz worth generating for the student.
type QuizRecommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Reason      string   `json:"recommended_reason"`
}

// RecommendQuizzes proposes up to limit quizzes: weak topics first, then
// topics needing reinforcement, then pool topics never assessed, padded with
// a mixed quiz. A non-positive limit means 3.
func RecommendQuizzes(records []mastery.Record, poolTopics []string, limit int) []QuizRecommendation {
	if limit <= 0 {
		limit = 3
	}

	topics := mastery.Topics(records)
	if len(topics) == 0 {
		return []QuizRecommendation{{
			Title:       "Initial Assessment Quiz",
			Description: "A quiz to assess your initial knowledge level across various topics.",
			Topics:      []string{"Various topics"},
			Reason:      "Get started with your learning journey",
		}}
	}

	var weak, reinforce []string
	known := make(map[string]struct{}, len(topics))
	for _, r := range topics {
		known[r.Topic] = struct{}{}
		switch {
		case r.Score < weakScore:
			weak = append(weak, r.Topic)
		case r.Score < reinforceScore:
			reinforce = append(reinforce, r.Topic)
		}
	}

	var out []QuizRecommendation
	if len(weak) > 0 {
		focus := head(weak, maxRecommendedTopics)
		out = append(out, QuizRecommendation{
			Title:       "Strengthen Your Understanding of " + focus[0],
			Description: fmt.Sprintf("A quiz focused on improving your knowledge of %s.", strings.Join(focus, ", ")),
			Topics:      focus,
			Reason:      "Address knowledge gaps in these areas",
		})
	}
	if len(reinforce) > 0 {
		focus := head(reinforce, maxRecommendedTopics)
		out = append(out, QuizRecommendation{
			Title:       "Reinforce Your Knowledge of " + focus[0],
			Description: fmt.Sprintf("A quiz to strengthen your understanding of %s.", strings.Join(focus, ", ")),
			Topics:      focus,
			Reason:      "Solidify your knowledge in these areas",
		})
	}

	var unexplored []string
	for _, t := range poolTopics {
		if _, ok := known[t]; !ok {
			unexplored = append(unexplored, t)
		}
	}
	if len(unexplored) > 0 {
		focus := head(unexplored, maxRecommendedTopics)
		out = append(out, QuizRecommendation{
			Title:       "Explore " + focus[0],
			Description: fmt.Sprintf("A quiz to introduce you to %s.", strings.Join(focus, ", ")),
			Topics:      focus,
			Reason:      "Expand your knowledge to new areas",
		})
	}

	if len(out) < limit {
		var mixed []string
		for _, r := range lowest(topics, mixedTopics) {
			mixed = append(mixed, r.Topic)
		}
		out = append(out, QuizRecommendation{
			Title:       "Mixed Topics Quiz",
			Description: "A quiz covering a mix of topics to improve your overall knowledge.",
			Topics:      mixed,
			Reason:      "Balanced practice across multiple areas",
		})
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// lowest returns up to n records with the lowest scores, weakest first.
func lowest(recs []mastery.Record, n int) []mastery.Record {
	sorted := append([]mastery.Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	return head(sorted, n)
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
