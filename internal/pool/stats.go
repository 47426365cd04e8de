package pool

import "sort"

// TopicStat summarises the questions available for one topic.
type TopicStat struct {
	Topic     string  `json:"topic"`
	Count     int     `json:"count"`
	AvgWeight float64 `json:"avg_weight"`
}

// Stats groups records by topic, most populated topics first.
func Stats(recs []QuestionRecord) []TopicStat {
	type acc struct {
		n   int
		sum float64
	}
	by := make(map[string]*acc)
	for _, r := range recs {
		a, ok := by[r.Topic]
		if !ok {
			a = &acc{}
			by[r.Topic] = a
		}
		a.n++
		a.sum += r.Weight
	}

	out := make([]TopicStat, 0, len(by))
	for t, a := range by {
		out = append(out, TopicStat{Topic: t, Count: a.n, AvgWeight: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// Topics returns the distinct topics of recs, excluding UnknownTopic.
func Topics(recs []QuestionRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range recs {
		if r.Topic == UnknownTopic {
			continue
		}
		if _, ok := seen[r.Topic]; ok {
			continue
		}
		seen[r.Topic] = struct{}{}
		out = append(out, r.Topic)
	}
	sort.Strings(out)
	return out
}
