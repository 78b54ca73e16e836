package exam

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victornm/scholarway/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Grade scores answers against the test. Score is the percentage of correct answers,
// rounded to two decimal places. Empty answers count as skipped.
func Grade(t *domain.Test, answers map[string]domain.Answer) domain.Result {
	r := domain.Result{
		TestID: t.ID,
		Total:  len(t.Questions),
		Score:  decimal.Zero,
	}

	for i := range t.Questions {
		q := &t.Questions[i]
		a := answers[q.ID]

		switch {
		case a.Empty():
			r.Skipped++
		case isCorrect(q, a):
			r.Correct++
		default:
			r.Incorrect++
		}
	}

	if r.Total > 0 {
		r.Score = decimal.NewFromInt(int64(r.Correct)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(r.Total))).
			Round(2)
	}

	return r
}

func isCorrect(q *domain.Question, a domain.Answer) bool {
	switch q.Type {
	case domain.QuestionTypeMultipleSelect:
		return sameSet(a.Selected, q.CorrectAnswer.Values)
	case domain.QuestionTypeShortAnswer:
		return strings.EqualFold(strings.TrimSpace(a.Value), strings.TrimSpace(q.CorrectAnswer.Value))
	default:
		return a.Value == q.CorrectAnswer.Value
	}
}

func sameSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}

	other := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
		other[v] = struct{}{}
	}

	return len(set) == len(other)
}
