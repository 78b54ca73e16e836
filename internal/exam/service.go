// Package exam runs timed exam sessions: answering, flagging, navigation, the countdown
// and grading on submission.
package exam

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/event"
	"github.com/victornm/scholarway/internal/storage"
	"github.com/victornm/scholarway/internal/telemetry"
)

type Config struct {
	Catalog  *Catalog
	Store    storage.Store
	EventBus event.Publisher

	NewTickerFunc func(d time.Duration) Ticker
	TickInterval  time.Duration
	Now           func() time.Time
}

// Service keeps the live sessions. A session leaves the registry once it is submitted or
// exited; a submitted session's result stays available through Result.
//
// Service is the publisher of its sessions: it records a signal before forwarding it to the
// event bus, so a result is stored by the time Submit returns.
type Service struct {
	catalog *Catalog
	store   storage.Store
	eb      event.Publisher
	c       Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(c Config) *Service {
	if c.Catalog == nil {
		c.Catalog = DefaultCatalog()
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = NewTicker
	}

	return &Service{
		catalog:  c.Catalog,
		store:    c.Store,
		eb:       c.EventBus,
		c:        c,
		sessions: make(map[string]*Session),
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

// Create opens a new session of testID for owner. The session is not started.
func (s *Service) Create(ctx context.Context, owner, testID string) (*Session, error) {
	t, ok := s.catalog.Get(testID)
	if !ok {
		return nil, errors.NotFound("test not found: %s", testID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("generate session id: %w", err))
	}

	sess := NewSession(SessionConfig{
		ID:            id.String(),
		Owner:         owner,
		Test:          t,
		EventBus:      s,
		NewTickerFunc: s.c.NewTickerFunc,
		TickInterval:  s.c.TickInterval,
		Now:           s.c.Now,
	})

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	telemetry.ExamSessionsActive.Inc()
	slog.InfoContext(ctx, "exam: session created", "session_id", sess.ID(), "test_id", testID, "owner", owner)

	return sess, nil
}

// Get returns a live session of owner. Sessions of other users are reported as not found.
func (s *Service) Get(_ context.Context, owner, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Owner() != owner {
		return nil, errors.NotFound("session not found: %s", id)
	}

	return sess, nil
}

// Result returns the stored result of a submitted session of owner.
func (s *Service) Result(ctx context.Context, owner, id string) (*domain.Result, error) {
	var r domain.Result
	if err := storage.GetJSON(ctx, s.store, resultKey(id), &r); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NotFound("result not found: %s", id)
		}
		return nil, errors.Internal(fmt.Errorf("load result %s: %w", id, err))
	}

	if r.Owner != owner {
		return nil, errors.NotFound("result not found: %s", id)
	}

	return &r, nil
}

// Shutdown exits every live session. The event bus must still be running.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.RLock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.RUnlock()

	for _, sess := range live {
		sess.Exit()
	}

	slog.InfoContext(ctx, "exam: live sessions exited", "count", len(live))
}

// Publish records a session signal, then forwards it to the event bus.
func (s *Service) Publish(ctx context.Context, e event.Event) {
	switch ev := e.(type) {
	case domain.EventExamSubmitted:
		s.onSubmitted(ctx, ev)
	case domain.EventExamExited:
		s.drop(ev.SessionID)
		slog.InfoContext(ctx, "exam: session exited", "session_id", ev.SessionID)
	case domain.EventExamTimeWarning:
		telemetry.ExamTimeWarnings.Inc()
		slog.InfoContext(ctx, "exam: time warning", "session_id", ev.SessionID, "remaining", ev.RemainingSeconds)
	}

	s.eb.Publish(ctx, e)
}

func (s *Service) onSubmitted(ctx context.Context, ev domain.EventExamSubmitted) {
	telemetry.ExamSubmissions.WithLabelValues(string(ev.Result.Reason)).Inc()

	// The result is stored before the session is dropped so it is never missing from both.
	err := storage.SetJSON(ctx, s.store, resultKey(ev.SessionID), ev.Result)
	s.drop(ev.SessionID)

	if err != nil {
		slog.ErrorContext(ctx, "exam: store result failed", "session_id", ev.SessionID, "error", err)
		return
	}

	slog.InfoContext(ctx, "exam: session submitted",
		"session_id", ev.SessionID,
		"reason", ev.Result.Reason,
		"score", ev.Result.Score.String(),
	)
}

func (s *Service) drop(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		telemetry.ExamSessionsActive.Dec()
	}
}

func resultKey(sessionID string) string {
	return "result:" + sessionID
}
