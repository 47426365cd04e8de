// Package pool loads the question bank quizzes are generated from.
//
// Every source converts its rows into QuestionRecord values at the loader
// boundary: defaults are applied and legacy 1-based answer indexes are
// shifted here, so the rest of the system only ever sees 0-based records.
package pool

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// UnknownTopic tags questions whose row carries no topic. Such questions are
// never part of topic-weighted allocation but may still fill a quiz.
const UnknownTopic = "Unknown"

// OptionCount is the number of answer options every question has.
const OptionCount = 4

// ErrMalformedRecord marks a row that cannot be turned into a question.
var ErrMalformedRecord = errors.New("malformed question record")

// QuestionRecord is one question of the pool.
type QuestionRecord struct {
	SourceID     string              `json:"source_id"`
	Topic        string              `json:"topic"`
	Text         string              `json:"text"`
	Options      [OptionCount]string `json:"options"`
	CorrectIndex int                 `json:"correct_index"`
	Weight       float64             `json:"weight"`
}

// IsCorrect reports whether the 0-based option index is the right answer.
func (q QuestionRecord) IsCorrect(option int) bool {
	return option == q.CorrectIndex
}

// RowOptions controls how loosely-typed rows are converted.
type RowOptions struct {
	// OneBased marks sources whose correct answer column counts from 1.
	OneBased bool
}

// Column names recognised in tabular sources, after header normalization.
var (
	idColumns      = []string{"qid", "id", "question id"}
	textColumns    = []string{"question text", "question", "text"}
	topicColumns   = []string{"topic", "subject"}
	weightColumns  = []string{"question weight", "weight"}
	correctColumns = []string{"correct answer", "correct", "answer"}
	optionColumns  = [OptionCount][]string{
		{"answer 1", "option 1", "option a", "a"},
		{"answer 2", "option 2", "option b", "b"},
		{"answer 3", "option 3", "option c", "c"},
		{"answer 4", "option 4", "option d", "d"},
	}
)

// NormalizeHeader canonicalises a column header: Unicode NFC, case folded,
// underscores and runs of whitespace collapsed to a single space.
func NormalizeHeader(h string) string {
	h = norm.NFC.String(h)
	h = cases.Fold().String(h)
	h = strings.ReplaceAll(h, "_", " ")
	return strings.Join(strings.Fields(h), " ")
}

// NormalizeTopic trims a topic label and puts it in NFC form so labels typed
// on different systems compare equal.
func NormalizeTopic(t string) string {
	return norm.NFC.String(strings.TrimSpace(t))
}

// FromRow converts one row, keyed by raw header names, into a record.
func FromRow(row map[string]string, opts RowOptions) (QuestionRecord, error) {
	cells := make(map[string]string, len(row))
	for k, v := range row {
		cells[NormalizeHeader(k)] = strings.TrimSpace(v)
	}
	lookup := func(names []string) string {
		for _, n := range names {
			if v := cells[n]; v != "" {
				return v
			}
		}
		return ""
	}

	rec := QuestionRecord{
		SourceID: lookup(idColumns),
		Text:     lookup(textColumns),
		Topic:    resolveTopic(lookup(topicColumns)),
		Weight:   ParseWeight(lookup(weightColumns)),
	}
	for i, names := range optionColumns {
		rec.Options[i] = lookup(names)
	}

	if rec.Text == "" {
		return QuestionRecord{}, fmt.Errorf("%w: question %q has no text", ErrMalformedRecord, rec.SourceID)
	}

	raw := lookup(correctColumns)
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return QuestionRecord{}, fmt.Errorf("%w: question %q has correct answer %q", ErrMalformedRecord, rec.SourceID, raw)
	}
	if opts.OneBased {
		idx--
	}
	rec.CorrectIndex = idx

	if err := rec.Validate(); err != nil {
		return QuestionRecord{}, err
	}
	return rec, nil
}

// Validate checks the invariants every record must hold after loading.
func (q QuestionRecord) Validate() error {
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return fmt.Errorf("%w: question %q has correct index %d out of range", ErrMalformedRecord, q.SourceID, q.CorrectIndex)
	}
	if q.Weight <= 0 {
		return fmt.Errorf("%w: question %q has weight %v", ErrMalformedRecord, q.SourceID, q.Weight)
	}
	if q.Topic == "" {
		return fmt.Errorf("%w: question %q has no topic", ErrMalformedRecord, q.SourceID)
	}
	return nil
}

// ParseWeight parses a weight cell. Missing, malformed, non-finite or
// non-positive values become 1.0.
func ParseWeight(s string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return 1.0
	}
	return w
}

func resolveTopic(t string) string {
	t = NormalizeTopic(t)
	if t == "" {
		return UnknownTopic
	}
	return t
}
