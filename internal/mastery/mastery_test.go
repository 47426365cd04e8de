package mastery_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

func TestThresholds_Classify(t *testing.T) {
	tests := []struct {
		name  string
		th    mastery.Thresholds
		score float64
		want  mastery.Level
	}{
		{"default zero", mastery.DefaultThresholds, 0, mastery.Low},
		{"default below low", mastery.DefaultThresholds, 0.39, mastery.Low},
		{"default at low", mastery.DefaultThresholds, 0.4, mastery.Normal},
		{"default below high", mastery.DefaultThresholds, 0.69, mastery.Normal},
		{"default at high", mastery.DefaultThresholds, 0.7, mastery.High},
		{"default one", mastery.DefaultThresholds, 1, mastery.High},
		{"overall below low", mastery.OverallThresholds, 0.49, mastery.Low},
		{"overall at low", mastery.OverallThresholds, 0.5, mastery.Normal},
		{"overall 0.75", mastery.OverallThresholds, 0.75, mastery.Normal},
		{"overall at high", mastery.OverallThresholds, 0.8, mastery.High},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.th.Classify(tt.score); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestClassify_IsPureAndMatchesRecord(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := time.Now()

	for range 1000 {
		score := rng.Float64()
		first := mastery.DefaultThresholds.Classify(score)
		if again := mastery.DefaultThresholds.Classify(score); again != first {
			t.Fatalf("Classify(%v) not deterministic: %s then %s", score, first, again)
		}

		rec := mastery.NewRecord("s1", "SDLC", score, mastery.DefaultThresholds, now)
		if rec.Level != mastery.DefaultThresholds.Classify(rec.Score) {
			t.Fatalf("NewRecord(%v) level %s disagrees with score %v", score, rec.Level, rec.Score)
		}
	}
}

func TestNewRecord_Clamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{1.5, 1},
		{math.NaN(), 0},
		{0.55, 0.55},
	}
	for _, tt := range tests {
		rec := mastery.NewRecord("s1", "Agile", tt.in, mastery.DefaultThresholds, time.Now())
		if rec.Score != tt.want {
			t.Errorf("NewRecord(%v).Score = %v, want %v", tt.in, rec.Score, tt.want)
		}
	}
}

func TestBlend(t *testing.T) {
	if got := mastery.Blend(0.5, 1.0); math.Abs(got-0.85) > 1e-9 {
		t.Errorf("Blend(0.5, 1.0) = %v, want 0.85", got)
	}
	if got := mastery.Blend(0.2, 0.2); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Blend(0.2, 0.2) = %v, want 0.2", got)
	}
}

func TestBlend_StaysBetweenInputs(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 1000 {
		old, measured := rng.Float64(), rng.Float64()
		got := mastery.Blend(old, measured)
		lo, hi := math.Min(old, measured), math.Max(old, measured)
		if got < lo-1e-12 || got > hi+1e-12 {
			t.Fatalf("Blend(%v, %v) = %v, outside [%v, %v]", old, measured, got, lo, hi)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range []mastery.Level{mastery.Low, mastery.Normal, mastery.High} {
		got, err := mastery.ParseLevel(string(l))
		if err != nil || got != l {
			t.Errorf("ParseLevel(%q) = %q, %v", l, got, err)
		}
	}
	if _, err := mastery.ParseLevel("Expert"); err == nil {
		t.Error("ParseLevel(Expert) should fail")
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := mastery.DefaultThresholds.Validate(); err != nil {
		t.Errorf("DefaultThresholds.Validate() error = %v", err)
	}
	if err := (mastery.Thresholds{Low: 0.9, High: 0.1}).Validate(); err == nil {
		t.Error("Validate() should reject inverted cut points")
	}
	if err := (mastery.Thresholds{Low: -1, High: 0.5}).Validate(); err == nil {
		t.Error("Validate() should reject negative cut points")
	}
}

func TestTopicsAndByTopic(t *testing.T) {
	recs := []mastery.Record{
		{Topic: "SDLC", Score: 0.3},
		{Topic: mastery.OverallTopic, Score: 0.5},
		{Topic: "Agile", Score: 0.9},
	}

	topics := mastery.Topics(recs)
	if len(topics) != 2 {
		t.Fatalf("Topics() = %d records, want 2", len(topics))
	}
	for _, r := range topics {
		if r.IsOverall() {
			t.Error("Topics() should exclude OVERALL")
		}
	}

	by := mastery.ByTopic(recs)
	if by["Agile"].Score != 0.9 {
		t.Errorf("ByTopic()[Agile].Score = %v, want 0.9", by["Agile"].Score)
	}
}

func TestClassifierFunc(t *testing.T) {
	c := mastery.ClassifierFunc(func(float64) mastery.Level { return mastery.High })
	if c.Classify(0) != mastery.High {
		t.Error("ClassifierFunc should delegate to the function")
	}
}
