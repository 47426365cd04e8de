package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches curriculum topics from the filesystem.
type Loader struct {
	rootDir string
	topics  map[string]Topic
	mu      sync.RWMutex
}

// NewLoader creates a new curriculum loader and loads all content.
// A missing root directory yields an empty loader.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		topics:  make(map[string]Topic),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "topics", len(l.topics))
	return l, nil
}

// GetTopic returns a topic by ID.
func (l *Loader) GetTopic(id string) (Topic, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topics[id]
	return t, ok
}

// AllTopics returns all loaded topics sorted by ID.
func (l *Loader) AllTopics() []Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	topics := make([]Topic, 0, len(l.topics))
	for _, t := range l.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics
}

// Graph builds the prerequisite graph of the loaded topics. When no topics
// were loaded the built-in default graph is returned.
func (l *Loader) Graph() (*Graph, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.topics) == 0 {
		return DefaultGraph(), nil
	}

	prereqs := make(map[string][]string, len(l.topics))
	for id, t := range l.topics {
		prereqs[id] = t.Prerequisites.Required
	}
	g, err := NewGraph(prereqs)
	if err != nil {
		return nil, fmt.Errorf("build prerequisite graph: %w", err)
	}
	return g, nil
}

func (l *Loader) loadAll() error {
	if _, err := os.Stat(l.rootDir); os.IsNotExist(err) {
		slog.Warn("curriculum directory not found", "path", l.rootDir)
		return nil
	}

	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			if strings.HasSuffix(path, ".assessments.yaml") || strings.HasSuffix(path, ".examples.yaml") {
				return nil // Skip non-topic YAML
			}
			return l.loadTopic(path)
		}
		return nil
	})
}

func (l *Loader) loadTopic(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return nil
	}

	if topic.ID == "" {
		return nil // Not a topic file
	}

	l.mu.Lock()
	l.topics[topic.ID] = topic
	l.mu.Unlock()

	return nil
}
