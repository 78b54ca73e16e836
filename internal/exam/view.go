package exam

import (
	"math"

	"github.com/victornm/scholarway/internal/domain"
)

// View is a read model of a session. It never carries the correct answers.
type View struct {
	ID               string                   `json:"id"`
	TestID           string                   `json:"test_id"`
	Title            string                   `json:"title"`
	Subject          string                   `json:"subject"`
	Instructions     string                   `json:"instructions,omitempty"`
	SecurityNotices  []string                 `json:"security_notices,omitempty"`
	Phase            domain.Phase             `json:"phase"`
	Exited           bool                     `json:"exited"`
	CurrentIndex     int                      `json:"current_index"`
	Questions        []QuestionView           `json:"questions"`
	Answers          map[string]domain.Answer `json:"answers"`
	Flagged          []string                 `json:"flagged"`
	RemainingSeconds int                      `json:"remaining_seconds"`
	Remaining        string                   `json:"remaining"`
	Answered         int                      `json:"answered"`
	Unanswered       int                      `json:"unanswered"`
	Progress         float64                  `json:"progress"`
	ProgressPercent  int                      `json:"progress_percent"`
	Result           *domain.Result           `json:"result,omitempty"`
}

type QuestionView struct {
	ID       string              `json:"id"`
	Type     domain.QuestionType `json:"type"`
	Text     string              `json:"text"`
	Options  []domain.Option     `json:"options,omitempty"`
	Answered bool                `json:"answered"`
	Flagged  bool                `json:"flagged"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:               s.id,
		TestID:           s.test.ID,
		Title:            s.test.Title,
		Subject:          s.test.Subject,
		Instructions:     s.test.Instructions,
		SecurityNotices:  s.test.SecurityNotices,
		Phase:            s.phase,
		Exited:           s.exited,
		CurrentIndex:     s.current,
		Questions:        make([]QuestionView, 0, len(s.test.Questions)),
		Answers:          domain.CloneAnswers(s.answers),
		Flagged:          make([]string, 0, len(s.flagged)),
		RemainingSeconds: s.remaining,
		Remaining:        FormatRemaining(s.remaining),
	}

	for _, q := range s.test.Questions {
		_, flagged := s.flagged[q.ID]
		answered := !s.answers[q.ID].Empty()

		v.Questions = append(v.Questions, QuestionView{
			ID:       q.ID,
			Type:     q.Type,
			Text:     q.Text,
			Options:  q.Options,
			Answered: answered,
			Flagged:  flagged,
		})

		if flagged {
			v.Flagged = append(v.Flagged, q.ID)
		}
		if answered {
			v.Answered++
		}
	}

	v.Unanswered = len(s.test.Questions) - v.Answered
	if n := len(s.test.Questions); n > 0 {
		v.Progress = float64(v.Answered) / float64(n)
		v.ProgressPercent = int(math.Round(v.Progress * 100))
	}

	if s.result != nil {
		r := *s.result
		v.Result = &r
	}

	return v
}
