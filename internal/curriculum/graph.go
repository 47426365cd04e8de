package curriculum

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrCycle is returned when the prerequisite map is not acyclic.
var ErrCycle = errors.New("prerequisite cycle")

// Graph is an immutable topic -> prerequisites DAG.
type Graph struct {
	prereqs    map[string][]string
	dependents map[string]int
	topics     []string
}

// NewGraph builds a graph from a topic -> required prerequisites map.
// Topics that only appear as prerequisites become nodes without prerequisites.
func NewGraph(prereqs map[string][]string) (*Graph, error) {
	g := &Graph{
		prereqs:    make(map[string][]string, len(prereqs)),
		dependents: make(map[string]int),
	}

	nodes := make(map[string]struct{})
	for topic, reqs := range prereqs {
		nodes[topic] = struct{}{}
		seen := make(map[string]struct{}, len(reqs))
		var clean []string
		for _, r := range reqs {
			if r == topic {
				return nil, fmt.Errorf("%w: %s requires itself", ErrCycle, topic)
			}
			if r == "" {
				continue
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			clean = append(clean, r)
			nodes[r] = struct{}{}
			g.dependents[r]++
		}
		g.prereqs[topic] = clean
	}

	for n := range nodes {
		g.topics = append(g.topics, n)
	}
	sort.Strings(g.topics)

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// DefaultGraph returns the built-in prerequisite map used when no curriculum
// directory is configured.
func DefaultGraph() *Graph {
	g, err := NewGraph(map[string][]string{
		"SDLC":                 {},
		"Agile":                {"SDLC"},
		"OSI Model":            {},
		"Network Engineering":  {"OSI Model"},
		"Software Engineering": {"SDLC", "Agile"},
	})
	if err != nil {
		panic(err)
	}
	return g
}

// Prerequisites returns the required prerequisites of topic.
func (g *Graph) Prerequisites(topic string) []string {
	return slices.Clone(g.prereqs[topic])
}

// Topics returns every topic in the graph, sorted.
func (g *Graph) Topics() []string {
	return slices.Clone(g.topics)
}

// Has reports whether topic is a node of the graph.
func (g *Graph) Has(topic string) bool {
	_, ok := slices.BinarySearch(g.topics, topic)
	return ok
}

// DependentCount returns how many other topics list topic as a prerequisite.
func (g *Graph) DependentCount(topic string) int {
	return g.dependents[topic]
}

// Foundational returns the topics without prerequisites, sorted.
func (g *Graph) Foundational() []string {
	var out []string
	for _, t := range g.topics {
		if len(g.prereqs[t]) == 0 {
			out = append(out, t)
		}
	}
	return out
}

func (g *Graph) checkAcyclic() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.topics))

	var visit func(string) error
	visit = func(n string) error {
		color[n] = grey
		for _, p := range g.prereqs[n] {
			switch color[p] {
			case grey:
				return fmt.Errorf("%w: %s -> %s", ErrCycle, n, p)
			case white:
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}

	for _, n := range g.topics {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
