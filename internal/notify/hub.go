// Package notify pushes dashboard updates to students over websockets.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Notification types.
const (
	QuizReady      = "quiz_ready"
	QuizGraded     = "quiz_graded"
	MasteryChanged = "mastery_changed"
)

// Notification is one message pushed to a student's dashboards.
type Notification struct {
	Type      string `json:"type"`
	StudentID string `json:"student_id"`
	Payload   any    `json:"payload,omitempty"`
}

// Subscriber receives notifications for one student.
type Subscriber interface {
	Send(ctx context.Context, n Notification) error
}

// Hub routes notifications to the subscribers of each student.
type Hub struct {
	subs    map[string]map[Subscriber]struct{}
	mu      sync.RWMutex
	origins []string
}

// Option configures a Hub.
type Option func(*Hub)

// WithOriginPatterns allows websocket upgrades from the given origins.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// NewHub creates a new notification hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs: make(map[string]map[Subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers s for studentID and returns the function removing it.
func (h *Hub) Subscribe(studentID string, s Subscriber) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[studentID]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.subs[studentID] = set
	}
	set[s] = struct{}{}
	slog.Debug("dashboard subscribed", "student_id", studentID, "subscribers", len(set))

	return func() { h.remove(studentID, s) }
}

// Subscribers returns how many subscribers studentID has.
func (h *Hub) Subscribers(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[studentID])
}

// Publish sends n to every subscriber of n.StudentID and returns how many
// received it. Subscribers that fail are dropped.
func (h *Hub) Publish(ctx context.Context, n Notification) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs[n.StudentID]))
	for s := range h.subs[n.StudentID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Send(ctx, n); err != nil {
			slog.Warn("dropping dashboard subscriber",
				"student_id", n.StudentID,
				"type", n.Type,
				"error", err,
			)
			h.remove(n.StudentID, s)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) remove(studentID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[studentID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, studentID)
	}
}

// ServeHTTP upgrades the request to a websocket subscribed to the student
// named by the {studentID} path value and holds it until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	if studentID == "" {
		studentID = r.URL.Query().Get("student_id")
	}
	if studentID == "" {
		http.Error(w, "student_id is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket upgrade failed", "student_id", studentID, "error", err)
		return
	}
	defer conn.CloseNow()

	unsubscribe := h.Subscribe(studentID, &wsSubscriber{conn: conn})
	defer unsubscribe()

	// Clients never send; CloseRead handles control frames and reports
	// when the connection goes away.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	conn.Close(websocket.StatusNormalClosure, "")
}

type wsSubscriber struct {
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, n)
}

// MockSubscriber is a test double for Subscriber.
type MockSubscriber struct {
	mu       sync.Mutex
	Received []Notification
	Err      error
}

func (m *MockSubscriber) Send(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Received = append(m.Received, n)
	return nil
}

// Notifications returns a copy of what the subscriber received.
func (m *MockSubscriber) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.Received...)
}
