package exam_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/exam"
)

func TestDefaultCatalog(t *testing.T) {
	c := exam.DefaultCatalog()

	tests := c.List()
	require.Len(t, tests, 2)
	assert.Equal(t, "1", tests[0].ID)
	assert.Equal(t, "2", tests[1].ID)

	algebra, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, 3600, algebra.DurationSeconds)
	assert.Len(t, algebra.Questions, 7)

	_, ok = c.Get("3")
	assert.False(t, ok)
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := map[string]func(t *domain.Test){
		"missing title": func(t *domain.Test) {
			t.Title = ""
		},
		"zero duration": func(t *domain.Test) {
			t.DurationSeconds = 0
		},
		"no questions": func(t *domain.Test) {
			t.Questions = nil
		},
		"unknown question type": func(t *domain.Test) {
			t.Questions[0].Type = "essay"
		},
		"choice without options": func(t *domain.Test) {
			t.Questions[0].Options = nil
		},
		"duplicate question id": func(t *domain.Test) {
			t.Questions[1].ID = "q1"
		},
		"correct answer not an option": func(t *domain.Test) {
			t.Questions[0].CorrectAnswer.Value = "z"
		},
		"multiple select without correct answer": func(t *domain.Test) {
			t.Questions[1].CorrectAnswer.Values = nil
		},
		"short answer without correct answer": func(t *domain.Test) {
			t.Questions[2].CorrectAnswer.Value = " "
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			test := threeQuestionTest(600)
			mutate(&test)

			_, err := exam.NewCatalog(test)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
		})
	}
}

func TestNewCatalog_DuplicateTestID(t *testing.T) {
	_, err := exam.NewCatalog(threeQuestionTest(600), threeQuestionTest(60))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestReadCatalog(t *testing.T) {
	c, err := exam.ReadCatalog(strings.NewReader(`[
		{
			"id": "geo",
			"title": "Geography",
			"subject": "Social Studies",
			"duration_seconds": 120,
			"questions": [
				{"id": "q1", "type": "short-answer", "text": "Capital of France?", "correct_answer": {"value": "Paris"}}
			]
		}
	]`))
	require.NoError(t, err)

	test, ok := c.Get("geo")
	require.True(t, ok)
	assert.Equal(t, 120, test.DurationSeconds)

	_, err = exam.ReadCatalog(strings.NewReader(`{`))
	assert.Error(t, err)
}
