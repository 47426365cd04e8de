package quiz

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/mastery"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

// A difficulty band covers bandTenths/10 of a topic's questions sorted by
// weight; the middle band starts at bandSkipTenths/10.
const (
	bandTenths     = 6
	bandSkipTenths = 2
)

// exploreDivisor caps the questions reserved for never-assessed topics at
// target/exploreDivisor.
const exploreDivisor = 5

// Generator selects a difficulty-matched, mastery-weighted subset of the pool.
// It is safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	thresholds mastery.Thresholds
}

// NewGenerator creates a generator drawing from rng. A nil rng is seeded
// from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	return &Generator{rng: rng, thresholds: mastery.DefaultThresholds}
}

// Generate picks target questions for a student with the given mastery
// records. The result is shuffled. A target at or above the pool size
// returns the whole pool.
func (g *Generator) Generate(records []mastery.Record, questions []pool.QuestionRecord, target int) []pool.QuestionRecord {
	if target <= 0 || len(questions) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if target >= len(questions) {
		out := slices.Clone(questions)
		g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	s := &selection{
		rng:      g.rng,
		byTopic:  partition(questions),
		selected: make(map[int]bool, target),
	}

	scores := topicScores(records)
	if len(scores) == 0 {
		g.coldStart(s, target)
	} else {
		g.weighted(s, questions, scores, target)
	}

	if short := target - len(s.picks); short > 0 {
		rest := make([]int, len(questions))
		for i := range rest {
			rest[i] = i
		}
		s.take(rest, short)
	}

	picks := s.picks
	if len(picks) > target {
		picks = picks[:target]
	}
	g.rng.Shuffle(len(picks), func(i, j int) { picks[i], picks[j] = picks[j], picks[i] })

	out := make([]pool.QuestionRecord, len(picks))
	for i, idx := range picks {
		out[i] = questions[idx]
	}
	return out
}

// coldStart spreads target evenly over the pool topics for a student without
// mastery records.
func (g *Generator) coldStart(s *selection, target int) {
	topics := s.topics()
	if len(topics) == 0 {
		return
	}
	g.rng.Shuffle(len(topics), func(i, j int) { topics[i], topics[j] = topics[j], topics[i] })

	per := max(1, target/len(topics))
	for _, t := range topics {
		n := min(per, target-len(s.picks))
		if n <= 0 {
			break
		}
		s.take(s.byTopic[t], n)
	}
}

func (g *Generator) weighted(s *selection, questions []pool.QuestionRecord, scores map[string]float64, target int) {
	var fresh []string
	for _, t := range s.topics() {
		if _, ok := scores[t]; !ok {
			fresh = append(fresh, t)
		}
	}
	g.rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	reserve := min(target/exploreDivisor, len(fresh))

	order := WeakestFirst(scores)
	alloc := Allocate(scores, target-reserve)
	redistributeEmpty(alloc, order, s.byTopic)

	slog.Debug("quiz allocation", "allocation", alloc, "explore", fresh[:reserve])

	for _, t := range order {
		if n := alloc[t]; n > 0 {
			s.take(g.band(questions, s.byTopic[t], scores[t]), n)
		}
	}
	for _, t := range fresh[:reserve] {
		s.take(s.byTopic[t], 1)
	}
}

// band returns the difficulty sub-range of a topic's questions that matches
// its mastery score: easiest 60% below the low cut point, the middle 60%
// below the high one, the hardest 60% otherwise.
func (g *Generator) band(questions []pool.QuestionRecord, idx []int, score float64) []int {
	sorted := slices.Clone(idx)
	sort.SliceStable(sorted, func(a, b int) bool {
		return questions[sorted[a]].Weight < questions[sorted[b]].Weight
	})

	n := len(sorted)
	size := n * bandTenths / 10
	var out []int
	switch {
	case score < g.thresholds.Low:
		out = sorted[:size]
	case score < g.thresholds.High:
		lo := n * bandSkipTenths / 10
		out = sorted[lo : lo+size]
	default:
		out = sorted[n-size:]
	}
	if len(out) == 0 {
		return sorted
	}
	return out
}

// WeakestFirst orders topics by ascending score, ties broken by name.
func WeakestFirst(scores map[string]float64) []string {
	order := make([]string, 0, len(scores))
	for t := range scores {
		order = append(order, t)
	}
	sort.Slice(order, func(i, j int) bool {
		if scores[order[i]] != scores[order[j]] {
			return scores[order[i]] < scores[order[j]]
		}
		return order[i] < order[j]
	})
	return order
}

// Allocate splits target questions across topics by inverse mastery. Each
// topic gets max(1, round(target*weight)) while the running total stays
// within target; any rounding shortfall goes to the weakest topics first.
// The counts always sum to target.
func Allocate(scores map[string]float64, target int) map[string]int {
	alloc := make(map[string]int, len(scores))
	if target <= 0 || len(scores) == 0 {
		return alloc
	}

	order := WeakestFirst(scores)
	var sum float64
	for _, t := range order {
		sum += 1 - scores[t]
	}

	total := 0
	for _, t := range order {
		w := 1 / float64(len(order))
		if sum > 0 {
			w = (1 - scores[t]) / sum
		}
		n := max(1, int(math.Round(float64(target)*w)))
		n = min(n, target-total)
		alloc[t] = n
		total += n
	}

	for i := 0; total < target; i = (i + 1) % len(order) {
		alloc[order[i]]++
		total++
	}
	return alloc
}

// redistributeEmpty moves the quota of topics without questions to the next
// weaker-ordered topic that has some.
func redistributeEmpty(alloc map[string]int, order []string, byTopic map[string][]int) {
	for i, t := range order {
		n := alloc[t]
		if n == 0 || len(byTopic[t]) > 0 {
			continue
		}
		alloc[t] = 0
		for k := 1; k < len(order); k++ {
			next := order[(i+k)%len(order)]
			if len(byTopic[next]) > 0 {
				alloc[next] += n
				slog.Debug("topic has no questions, quota moved", "topic", t, "to", next, "count", n)
				break
			}
		}
	}
}

// topicScores extracts per-topic scores, leaving out OVERALL and the
// untagged sentinel.
func topicScores(records []mastery.Record) map[string]float64 {
	scores := make(map[string]float64, len(records))
	for _, r := range records {
		if r.IsOverall() || r.Topic == pool.UnknownTopic || r.Topic == "" {
			continue
		}
		scores[r.Topic] = r.Score
	}
	return scores
}

func partition(questions []pool.QuestionRecord) map[string][]int {
	by := make(map[string][]int)
	for i, q := range questions {
		by[q.Topic] = append(by[q.Topic], i)
	}
	return by
}

// selection tracks the pool indexes picked so far.
type selection struct {
	rng      *rand.Rand
	byTopic  map[string][]int
	selected map[int]bool
	picks    []int
}

// take samples n not-yet-selected indexes from idx uniformly without
// replacement. Fewer are taken when idx runs out.
func (s *selection) take(idx []int, n int) {
	avail := make([]int, 0, len(idx))
	for _, i := range idx {
		if !s.selected[i] {
			avail = append(avail, i)
		}
	}
	s.rng.Shuffle(len(avail), func(i, j int) { avail[i], avail[j] = avail[j], avail[i] })
	for _, i := range avail[:min(n, len(avail))] {
		s.selected[i] = true
		s.picks = append(s.picks, i)
	}
}

// topics returns the sorted pool topics that take part in allocation.
func (s *selection) topics() []string {
	out := make([]string, 0, len(s.byTopic))
	for t := range s.byTopic {
		if t != pool.UnknownTopic {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
