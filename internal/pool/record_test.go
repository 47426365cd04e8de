package pool_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

func legacyRow() map[string]string {
	return map[string]string{
		"QID":             "Q1",
		"Question Text":   "Which phase comes first?",
		"Answer 1":        "Design",
		"Answer 2":        "Requirements",
		"Answer 3":        "Testing",
		"Answer 4":        "Deployment",
		"Correct Answer":  "2",
		"Question Weight": "1.5",
		"Topic":           "SDLC",
	}
}

func TestFromRow_Legacy(t *testing.T) {
	rec, err := pool.FromRow(legacyRow(), pool.RowOptions{OneBased: true})
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}

	if rec.SourceID != "Q1" {
		t.Errorf("SourceID = %q, want Q1", rec.SourceID)
	}
	if rec.CorrectIndex != 1 {
		t.Errorf("CorrectIndex = %d, want 1 (1-based 2 shifted)", rec.CorrectIndex)
	}
	if rec.Options[1] != "Requirements" {
		t.Errorf("Options[1] = %q, want Requirements", rec.Options[1])
	}
	if rec.Weight != 1.5 {
		t.Errorf("Weight = %v, want 1.5", rec.Weight)
	}
	if !rec.IsCorrect(1) || rec.IsCorrect(0) {
		t.Error("IsCorrect() disagrees with CorrectIndex")
	}
}

func TestFromRow_Defaults(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(map[string]string)
		wantTopic  string
		wantWeight float64
	}{
		{"missing weight", func(r map[string]string) { delete(r, "Question Weight") }, "SDLC", 1.0},
		{"malformed weight", func(r map[string]string) { r["Question Weight"] = "heavy" }, "SDLC", 1.0},
		{"zero weight", func(r map[string]string) { r["Question Weight"] = "0" }, "SDLC", 1.0},
		{"negative weight", func(r map[string]string) { r["Question Weight"] = "-2" }, "SDLC", 1.0},
		{"nan weight", func(r map[string]string) { r["Question Weight"] = "NaN" }, "SDLC", 1.0},
		{"subject fallback", func(r map[string]string) { delete(r, "Topic"); r["Subject"] = "Agile" }, "Agile", 1.5},
		{"blank topic uses subject", func(r map[string]string) { r["Topic"] = "  "; r["Subject"] = "Agile" }, "Agile", 1.5},
		{"missing topic", func(r map[string]string) { delete(r, "Topic") }, pool.UnknownTopic, 1.5},
		{"padded topic", func(r map[string]string) { r["Topic"] = "  OSI Model " }, "OSI Model", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := legacyRow()
			tt.mutate(row)

			rec, err := pool.FromRow(row, pool.RowOptions{OneBased: true})
			if err != nil {
				t.Fatalf("FromRow() error = %v", err)
			}
			if rec.Topic != tt.wantTopic {
				t.Errorf("Topic = %q, want %q", rec.Topic, tt.wantTopic)
			}
			if rec.Weight != tt.wantWeight {
				t.Errorf("Weight = %v, want %v", rec.Weight, tt.wantWeight)
			}
		})
	}
}

func TestFromRow_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		opts   pool.RowOptions
		mutate func(map[string]string)
	}{
		{"zero in one-based source", pool.RowOptions{OneBased: true}, func(r map[string]string) { r["Correct Answer"] = "0" }},
		{"five in one-based source", pool.RowOptions{OneBased: true}, func(r map[string]string) { r["Correct Answer"] = "5" }},
		{"four in zero-based source", pool.RowOptions{}, func(r map[string]string) { r["Correct Answer"] = "4" }},
		{"not a number", pool.RowOptions{OneBased: true}, func(r map[string]string) { r["Correct Answer"] = "B" }},
		{"missing answer", pool.RowOptions{OneBased: true}, func(r map[string]string) { delete(r, "Correct Answer") }},
		{"missing text", pool.RowOptions{OneBased: true}, func(r map[string]string) { delete(r, "Question Text") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := legacyRow()
			tt.mutate(row)

			if _, err := pool.FromRow(row, tt.opts); !errors.Is(err, pool.ErrMalformedRecord) {
				t.Errorf("FromRow() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestFromRow_HeaderNormalization(t *testing.T) {
	row := map[string]string{
		"question_text":  "What does OSI stand for?",
		"OPTION_A":       "Open Systems Interconnection",
		"option b":       "Open Source Internet",
		"Option  C":      "Optical Signal Interface",
		"option_d":       "None",
		"CORRECT_ANSWER": "0",
		"TOPIC":          "OSI Model",
	}

	rec, err := pool.FromRow(row, pool.RowOptions{})
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	if rec.Text != "What does OSI stand for?" {
		t.Errorf("Text = %q", rec.Text)
	}
	if rec.Options[2] != "Optical Signal Interface" {
		t.Errorf("Options[2] = %q, want Optical Signal Interface", rec.Options[2])
	}
	if rec.CorrectIndex != 0 {
		t.Errorf("CorrectIndex = %d, want 0", rec.CorrectIndex)
	}
	if rec.Topic != "OSI Model" {
		t.Errorf("Topic = %q, want OSI Model", rec.Topic)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Question Text", "question text"},
		{"QUESTION_TEXT", "question text"},
		{"  question   text ", "question text"},
		{"Correct_Answer", "correct answer"},
	}
	for _, tt := range tests {
		if got := pool.NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTopic_NFC(t *testing.T) {
	decomposed := "Re\u0301seaux"
	composed := "R\u00e9seaux"
	if got := pool.NormalizeTopic(" " + decomposed + " "); got != composed {
		t.Errorf("NormalizeTopic() = %q, want %q", got, composed)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2", 2},
		{" 0.5 ", 0.5},
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-1", 1},
		{"Inf", 1},
	}
	for _, tt := range tests {
		if got := pool.ParseWeight(tt.in); got != tt.want {
			t.Errorf("ParseWeight(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
