package pool

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xuri/excelize/v2"
)

// Source supplies the full question pool. Implementations are read fresh on
// every call so edits to the backing data show up in the next quiz.
type Source interface {
	LoadAll(ctx context.Context) ([]QuestionRecord, error)
}

// FileSource reads a pool file. The format is chosen from the extension:
// .csv, .xlsx (first sheet) or .json.
type FileSource struct {
	Path string
	Opts RowOptions
}

// NewFileSource creates a file-backed pool source.
func NewFileSource(path string, opts RowOptions) *FileSource {
	return &FileSource{Path: path, Opts: opts}
}

func (s *FileSource) LoadAll(ctx context.Context) ([]QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open question pool: %w", err)
	}
	defer f.Close()

	var recs []QuestionRecord
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".csv":
		recs, err = ReadCSV(f, s.Opts)
	case ".xlsx":
		recs, err = ReadXLSX(f, s.Opts)
	case ".json":
		recs, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported question pool format %q", filepath.Ext(s.Path))
	}
	if err != nil {
		return nil, fmt.Errorf("load question pool %s: %w", s.Path, err)
	}

	slog.Debug("question pool loaded", "path", s.Path, "questions", len(recs))
	return recs, nil
}

// ReadCSV parses a pool with a header row.
func ReadCSV(r io.Reader, opts RowOptions) ([]QuestionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromTable(rows, opts), nil
}

// ReadXLSX parses the first sheet of a workbook whose first row is the header.
func ReadXLSX(r io.Reader, opts RowOptions) ([]QuestionRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromTable(rows, opts), nil
}

// fromTable converts header + data rows, skipping malformed rows.
func fromTable(rows [][]string, opts RowOptions) []QuestionRecord {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]

	recs := make([]QuestionRecord, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(cells) {
				row[h] = cells[j]
			}
		}
		rec, err := FromRow(row, opts)
		if err != nil {
			slog.Warn("skipping question row", "row", i+2, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// jsonQuestion is the on-disk shape of a JSON pool entry. Answer indexes are
// 0-based.
type jsonQuestion struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer int             `json:"correctAnswer"`
	Weight        json.RawMessage `json:"weight"`
}

// ReadJSON parses a JSON array of questions. Only a document that is not an
// array of objects fails the load. Entries that break QuestionSchema or a
// record invariant are skipped with a warning.
func ReadJSON(r io.Reader) ([]QuestionRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if err := validate(PoolSchema, data); err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode json pool: %w", err)
	}

	recs := make([]QuestionRecord, 0, len(entries))
	for i, raw := range entries {
		if err := validate(QuestionSchema, raw); err != nil {
			slog.Warn("skipping question entry", "index", i, "error", err)
			continue
		}
		var q jsonQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			slog.Warn("skipping question entry", "index", i, "error", err)
			continue
		}

		rec := QuestionRecord{
			SourceID:     q.ID,
			Topic:        resolveTopic(q.Topic),
			Text:         strings.TrimSpace(q.Question),
			CorrectIndex: q.CorrectAnswer,
			Weight:       jsonWeight(q.Weight),
		}
		copy(rec.Options[:], q.Options)

		if err := rec.Validate(); err != nil {
			slog.Warn("skipping question entry", "index", i, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// jsonWeight reads a weight given as a number or a numeric string. Anything
// else becomes 1.0.
func jsonWeight(raw json.RawMessage) float64 {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 1.0
	}
	switch w := v.(type) {
	case float64:
		return ParseWeight(strconv.FormatFloat(w, 'g', -1, 64))
	case string:
		return ParseWeight(w)
	default:
		return 1.0
	}
}

// ErrSchema is returned when a JSON document does not match its schema.
var ErrSchema = errors.New("document does not match schema")

var schemas sync.Map // schema source -> *gojsonschema.Schema

func compiled(schema string) (*gojsonschema.Schema, error) {
	if s, ok := schemas.Load(schema); ok {
		return s.(*gojsonschema.Schema), nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemas.Store(schema, s)
	return s, nil
}

func validate(schema string, doc []byte) error {
	s, err := compiled(schema)
	if err != nil {
		return err
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	return nil
}

// MemorySource is a thread-safe in-memory pool, used for tests and for
// questions authored at runtime.
type MemorySource struct {
	mu   sync.RWMutex
	recs []QuestionRecord
}

// NewMemorySource creates an in-memory pool seeded with recs.
func NewMemorySource(recs ...QuestionRecord) *MemorySource {
	return &MemorySource{recs: append([]QuestionRecord(nil), recs...)}
}

// Add appends records to the pool.
func (s *MemorySource) Add(recs ...QuestionRecord) {
	s.mu.Lock()
	s.recs = append(s.recs, recs...)
	s.mu.Unlock()
}

func (s *MemorySource) LoadAll(_ context.Context) ([]QuestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QuestionRecord(nil), s.recs...), nil
}

// MultiSource concatenates several sources in order.
type MultiSource []Source

func (m MultiSource) LoadAll(ctx context.Context) ([]QuestionRecord, error) {
	var all []QuestionRecord
	for _, s := range m {
		recs, err := s.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}
