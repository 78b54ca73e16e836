package exam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/event"
)

const (
	// WarningThreshold is the remaining time, in seconds, at which the time warning is raised.
	WarningThreshold = 300

	defaultTickInterval = time.Second
)

type SessionConfig struct {
	ID       string
	Owner    string
	Test     domain.Test
	EventBus event.Publisher

	// NewTickerFunc drives the countdown. Nil disables the background countdown,
	// leaving Tick to the caller.
	NewTickerFunc func(d time.Duration) Ticker
	TickInterval  time.Duration
	Now           func() time.Time
}

// Session is the state of one attempt at a test.
//
// Operations that are not valid in the current phase are ignored. Once the session is
// submitted or exited every mutation is ignored.
type Session struct {
	id        string
	owner     string
	test      domain.Test
	eb        event.Publisher
	newTicker func(d time.Duration) Ticker
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	phase     domain.Phase
	exited    bool
	current   int
	answers   map[string]domain.Answer
	flagged   map[string]struct{}
	remaining int
	warned    bool
	startedAt time.Time
	result    *domain.Result
	countdown *countdown
}

// AnswerInput is the value of an answer operation. For multiple-select questions Value is
// an option id that is added to the selection when Checked, and removed otherwise. For the
// other types Value replaces the previous answer.
type AnswerInput struct {
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

func NewSession(c SessionConfig) *Session {
	s := &Session{
		id:        c.ID,
		owner:     c.Owner,
		test:      c.Test,
		eb:        c.EventBus,
		newTicker: c.NewTickerFunc,
		interval:  c.TickInterval,
		now:       c.Now,
		phase:     domain.PhaseNotStarted,
		answers:   make(map[string]domain.Answer, len(c.Test.Questions)),
		flagged:   make(map[string]struct{}),
		remaining: c.Test.DurationSeconds,
	}

	if s.interval <= 0 {
		s.interval = defaultTickInterval
	}
	if s.now == nil {
		s.now = time.Now
	}

	for _, q := range c.Test.Questions {
		s.answers[q.ID] = domain.Answer{}
	}

	return s
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Owner() string { return s.owner }

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Exited reports whether the session was abandoned through Exit.
func (s *Session) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Result returns the graded result once the session is submitted.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Start begins the attempt and the countdown.
func (s *Session) Start() {
	s.do(func() []event.Event {
		if !s.active() || s.phase != domain.PhaseNotStarted {
			return nil
		}

		s.phase = domain.PhaseInProgress
		s.remaining = s.test.DurationSeconds
		s.startedAt = s.now()

		if s.newTicker != nil {
			s.countdown = startCountdown(s.newTicker(s.interval), s.Tick)
		}

		return nil
	})
}

// Tick advances the countdown by one second.
func (s *Session) Tick() {
	s.do(func() []event.Event {
		if !s.inProgress() {
			return nil
		}

		s.remaining--

		var events []event.Event
		if s.remaining == WarningThreshold && !s.warned {
			s.warned = true
			events = append(events, domain.EventExamTimeWarning{
				SessionID:        s.id,
				Owner:            s.owner,
				RemainingSeconds: s.remaining,
			})
		}

		if s.remaining <= 0 {
			s.remaining = 0
			events = append(events, s.submit(domain.SubmitReasonTimeout)...)
		}

		return events
	})
}

func (s *Session) Answer(questionID string, in AnswerInput) {
	s.do(func() []event.Event {
		if !s.inProgress() {
			return nil
		}

		i := s.test.QuestionIndex(questionID)
		if i < 0 {
			return nil
		}
		q := &s.test.Questions[i]

		switch q.Type {
		case domain.QuestionTypeMultipleSelect:
			if !q.HasOption(in.Value) {
				return nil
			}
			s.answers[questionID] = domain.Answer{
				Selected: toggle(s.answers[questionID].Selected, in.Value, in.Checked),
			}

		case domain.QuestionTypeMultipleChoice, domain.QuestionTypeTrueFalse:
			if in.Value != "" && !q.HasOption(in.Value) {
				return nil
			}
			s.answers[questionID] = domain.Answer{Value: in.Value}

		default:
			s.answers[questionID] = domain.Answer{Value: in.Value}
		}

		return nil
	})
}

// toggle returns a copy of selected with option added or removed, keeping selection order.
func toggle(selected []string, option string, add bool) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, o := range selected {
		if o == option {
			found = true
			if !add {
				continue
			}
		}
		out = append(out, o)
	}

	if add && !found {
		out = append(out, option)
	}

	return out
}

func (s *Session) ToggleFlag(questionID string) {
	s.do(func() []event.Event {
		if !s.inProgress() || s.test.QuestionIndex(questionID) < 0 {
			return nil
		}

		if _, ok := s.flagged[questionID]; ok {
			delete(s.flagged, questionID)
		} else {
			s.flagged[questionID] = struct{}{}
		}

		return nil
	})
}

// GoTo moves to the question at index, clamped to the question range.
func (s *Session) GoTo(index int) {
	s.do(func() []event.Event {
		if s.inProgress() {
			s.current = s.clamp(index)
		}
		return nil
	})
}

func (s *Session) Next() {
	s.do(func() []event.Event {
		if s.inProgress() && s.current < len(s.test.Questions)-1 {
			s.current++
		}
		return nil
	})
}

func (s *Session) Prev() {
	s.do(func() []event.Event {
		if s.inProgress() && s.current > 0 {
			s.current--
		}
		return nil
	})
}

func (s *Session) clamp(i int) int {
	if last := len(s.test.Questions) - 1; i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Submit ends the attempt. Calling it again after submission has no effect.
func (s *Session) Submit() {
	s.do(func() []event.Event {
		return s.submit(domain.SubmitReasonManual)
	})
}

func (s *Session) submit(reason domain.SubmitReason) []event.Event {
	if !s.inProgress() {
		return nil
	}

	s.phase = domain.PhaseSubmitted
	s.teardown()

	now := s.now()
	r := Grade(&s.test, s.answers)
	r.SessionID = s.id
	r.Owner = s.owner
	r.Reason = reason
	r.SubmittedAt = now
	r.TimeSpent = now.Sub(s.startedAt)
	s.result = &r

	return []event.Event{domain.EventExamSubmitted{
		SessionID: s.id,
		Owner:     s.owner,
		Result:    r,
	}}
}

// Exit abandons the session without submitting it.
func (s *Session) Exit() {
	s.do(func() []event.Event {
		if !s.active() || s.phase == domain.PhaseSubmitted {
			return nil
		}

		s.exited = true
		s.teardown()

		return []event.Event{domain.EventExamExited{
			SessionID: s.id,
			Owner:     s.owner,
		}}
	})
}

// teardown is the single exit routine of the countdown: submit, timeout and exit all run it.
func (s *Session) teardown() {
	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
}

// Progress is the share of questions with a non-empty answer.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	answered, total := s.answeredCount(), len(s.test.Questions)
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total)
}

func (s *Session) answeredCount() int {
	n := 0
	for _, a := range s.answers {
		if !a.Empty() {
			n++
		}
	}
	return n
}

func (s *Session) active() bool     { return !s.exited }
func (s *Session) inProgress() bool { return !s.exited && s.phase == domain.PhaseInProgress }

// do runs fn under the session lock and publishes the returned events after unlocking.
func (s *Session) do(fn func() []event.Event) {
	s.mu.Lock()
	events := fn()
	s.mu.Unlock()

	for _, e := range events {
		s.eb.Publish(context.Background(), e)
	}
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
