package httpapi

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// questionView is a quiz question as shown to the student, without the
// answer key.
type questionView struct {
	ID       string                   `json:"id"`
	Position int                      `json:"position"`
	Topic    string                   `json:"topic"`
	Text     string                   `json:"text"`
	Options  [pool.OptionCount]string `json:"options"`
}

type quizView struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	DurationMinutes int            `json:"duration_minutes"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	Questions       []questionView `json:"questions"`
}

func viewQuiz(q quiz.Quiz) quizView {
	v := quizView{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		DurationMinutes: q.DurationMinutes,
		StartTime:       q.StartTime,
		EndTime:         q.EndTime,
		Questions:       make([]questionView, len(q.Questions)),
	}
	for i, qq := range q.Questions {
		v.Questions[i] = questionView{
			ID:       qq.ID,
			Position: qq.Position,
			Topic:    qq.Topic,
			Text:     qq.Text,
			Options:  qq.Options,
		}
	}
	return v
}

type attemptResponse struct {
	Attempt attempt.Attempt `json:"attempt"`
	Quiz    quizView        `json:"quiz"`
}

type generateRequest struct {
	Title     string `json:"title"`
	Questions int    `json:"questions"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	q, a, err := s.engine.GenerateQuiz(r.Context(), r.PathValue("studentID"), req.Title, req.Questions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attemptResponse{Attempt: a, Quiz: viewQuiz(q)})
}

func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	a, q, err := s.engine.StartAttempt(r.Context(), r.PathValue("attemptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse{Attempt: a, Quiz: viewQuiz(q)})
}

type submitRequest struct {
	// Answers maps question IDs to the selected 0-based option.
	Answers map[string]int `json:"answers"`
}

type submitResponse struct {
	Attempt        attempt.Attempt  `json:"attempt"`
	Score          float64          `json:"score"`
	Correct        int              `json:"correct"`
	Answered       int              `json:"answered"`
	Mastery        []mastery.Record `json:"mastery,omitempty"`
	KnowledgeError string           `json:"knowledge_error,omitempty"`
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}

	sub, err := s.engine.SubmitAttempt(r.Context(), r.PathValue("attemptID"), req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := submitResponse{
		Attempt:  sub.Attempt,
		Score:    sub.Score,
		Correct:  sub.Correct,
		Answered: sub.Answered,
		Mastery:  sub.Mastery,
	}
	if sub.KnowledgeErr != nil {
		resp.KnowledgeError = sub.KnowledgeErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("studentID")
	if err := s.engine.RecomputeKnowledge(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.engine.Summary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(r.Context(), r.PathValue("studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleWeakTopics(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.WeakThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t <= 0 || t > 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "threshold must be a number in (0, 1]"})
			return
		}
		threshold = t
	}

	recs, err := s.engine.WeakTopics(r.Context(), r.PathValue("studentID"), threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []mastery.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	points, err := s.engine.Progress(r.Context(), r.PathValue("studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetGuidance(r.Context(), r.PathValue("studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Dashboard(r.Context(), r.PathValue("studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("studentID")

	// Buffer so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := s.engine.WriteReport(r.Context(), id, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "mastery-" + id + ".xlsx"}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.PoolStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type authorRequest struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleAuthorQuestions(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if !decode(w, r, &req) {
		return
	}

	recs, err := s.engine.AuthorQuestions(r.Context(), req.Topic, req.Count, req.Difficulty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": len(recs), "questions": recs})
}
