package guidance

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

// Score cut points used by milestones.
const (
	targetScore = 0.7
	expertScore = 0.85
)

// LevelDescription returns the learning path sentence for a level.
func LevelDescription(level mastery.Level) string {
	switch level {
	case mastery.Low:
		return "Your current knowledge level is Low. This personalized learning path will help you build a strong foundation of core concepts before moving to more advanced topics."
	case mastery.Normal:
		return "Your current knowledge level is Normal. This personalized learning path will help you strengthen your weak areas and advance to a High knowledge level."
	default:
		return "Your current knowledge level is High. This personalized learning path will help you maintain your expertise and explore advanced topics in your field."
	}
}

// DefaultMilestones returns the fixed milestones for students with no
// assessed topics.
func DefaultMilestones(level mastery.Level) []Milestone {
	switch level {
	case mastery.Low:
		return []Milestone{
			{Title: "Start Your Learning Journey", Description: "Complete your first quiz to begin receiving personalized guidance."},
			{Title: "Build Core Knowledge", Description: "Focus on understanding fundamental concepts across all topics."},
		}
	case mastery.Normal:
		return []Milestone{
			{Title: "Expand Your Knowledge", Description: "Complete quizzes to identify and strengthen your knowledge gaps."},
			{Title: "Practice Regularly", Description: "Take quizzes consistently to reinforce your learning."},
		}
	default:
		return []Milestone{
			{Title: "Demonstrate Your Knowledge", Description: "Complete quizzes to showcase your expertise and identify any remaining gaps."},
			{Title: "Advanced Learning", Description: "Explore advanced topics and concepts in your field."},
		}
	}
}

func milestones(level mastery.Level, topics []mastery.Record, graph *curriculum.Graph) []Milestone {
	byTopic := mastery.ByTopic(topics)
	var out []Milestone

	switch level {
	case mastery.Low:
		var weak []string
		for _, t := range graph.Foundational() {
			if r, ok := byTopic[t]; ok && r.Level == mastery.Low {
				weak = append(weak, t)
			}
		}
		if len(weak) > 0 {
			out = append(out, Milestone{
				Title:       "Master Foundation Topics",
				Description: fmt.Sprintf("Focus on strengthening your knowledge of: %s.", strings.Join(weak, ", ")),
			})
		}
		out = append(out,
			Milestone{Title: "Regular Practice", Description: "Complete at least 5 quizzes to build your knowledge across all topics."},
			Milestone{Title: "Focus on Weak Areas", Description: "Pay special attention to topics with the lowest scores in your knowledge profile."},
		)

	case mastery.Normal:
		var gating []string
		for _, t := range graph.Topics() {
			if graph.DependentCount(t) == 0 {
				continue
			}
			if r, ok := byTopic[t]; ok && r.Level != mastery.High {
				gating = append(gating, t)
			}
		}
		if len(gating) > 0 {
			out = append(out, Milestone{
				Title:       "Strengthen Key Prerequisites",
				Description: fmt.Sprintf("Focus on improving these important foundation topics: %s.", strings.Join(gating, ", ")),
			})
		}
		if below := topicsBelow(topics, targetScore); len(below) > 0 {
			out = append(out, Milestone{
				Title:       "Reach 70% in All Topics",
				Description: fmt.Sprintf("Work to improve your scores in: %s.", strings.Join(below, ", ")),
			})
		}
		out = append(out, Milestone{Title: "Apply Concepts", Description: "Practice applying theoretical knowledge to more complex scenarios."})

	default:
		out = append(out, Milestone{Title: "Maintain Mastery", Description: "Continue regular practice to maintain your high level of knowledge."})
		if below := topicsBelow(topics, expertScore); len(below) > 0 {
			out = append(out, Milestone{
				Title:       "Reach Expert Level",
				Description: fmt.Sprintf("Push for excellence in: %s.", strings.Join(below, ", ")),
			})
		}
		out = append(out, Milestone{Title: "Peer Teaching", Description: "Share your knowledge with peers to reinforce your understanding."})
	}

	var fresh []string
	for _, t := range graph.Topics() {
		if _, ok := byTopic[t]; !ok {
			fresh = append(fresh, t)
		}
		if len(fresh) == maxNewTopics {
			break
		}
	}
	if len(fresh) > 0 {
		out = append(out, Milestone{
			Title:       "Explore New Topics",
			Description: fmt.Sprintf("Branch out to new areas such as: %s.", strings.Join(fresh, ", ")),
		})
	}
	return out
}

func topicsBelow(topics []mastery.Record, score float64) []string {
	var out []string
	for _, r := range topics {
		if r.Score < score {
			out = append(out, r.Topic)
		}
	}
	return out
}
