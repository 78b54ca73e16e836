package exam

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is the read-only set of tests a session can be created from.
type Catalog struct {
	tests map[string]domain.Test
	order []string
}

// NewCatalog validates every test. Test ids and question ids within a test must be unique,
// and every choice answer must refer to one of the question's options.
func NewCatalog(tests ...domain.Test) (*Catalog, error) {
	c := &Catalog{
		tests: make(map[string]domain.Test, len(tests)),
	}

	for _, t := range tests {
		if err := checkTest(&t); err != nil {
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("invalid test %q: %s", t.ID, err),
				errors.WithCause(err),
			)
		}

		if _, dup := c.tests[t.ID]; dup {
			return nil, errors.InvalidArgument("duplicate test id %q", t.ID)
		}

		c.tests[t.ID] = t
		c.order = append(c.order, t.ID)
	}

	return c, nil
}

// ReadCatalog decodes a JSON array of tests.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	var tests []domain.Test
	if err := json.NewDecoder(r).Decode(&tests); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	return NewCatalog(tests...)
}

func checkTest(t *domain.Test) error {
	if err := validate.Struct(t); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(t.Questions))
	for i := range t.Questions {
		q := &t.Questions[i]
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		switch q.Type {
		case domain.QuestionTypeMultipleSelect:
			if len(q.CorrectAnswer.Values) == 0 {
				return fmt.Errorf("question %s: missing correct answer", q.ID)
			}
			for _, v := range q.CorrectAnswer.Values {
				if !q.HasOption(v) {
					return fmt.Errorf("question %s: unknown option %q in correct answer", q.ID, v)
				}
			}

		case domain.QuestionTypeShortAnswer:
			if strings.TrimSpace(q.CorrectAnswer.Value) == "" {
				return fmt.Errorf("question %s: missing correct answer", q.ID)
			}

		default:
			if !q.HasOption(q.CorrectAnswer.Value) {
				return fmt.Errorf("question %s: unknown option %q in correct answer", q.ID, q.CorrectAnswer.Value)
			}
		}
	}

	return nil
}

func (c *Catalog) Get(id string) (domain.Test, bool) {
	t, ok := c.tests[id]
	return t, ok
}

// List returns the tests in catalog order.
func (c *Catalog) List() []domain.Test {
	out := make([]domain.Test, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tests[id])
	}
	return out
}

// DefaultCatalog holds the bundled sample tests.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(SampleTests()...)
	if err != nil {
		panic(err)
	}
	return c
}

var securityNotices = []string{
	"Screen monitoring is active",
	"You cannot switch tabs or windows",
	"Your webcam must remain on",
	"Random question sequencing",
	"Cannot copy or paste content",
}

func SampleTests() []domain.Test {
	return []domain.Test{
		{
			ID:              "1",
			Title:           "Algebra Mid-term",
			Subject:         "Mathematics",
			DurationSeconds: 60 * 60,
			Instructions: "1. Once you start the test, you cannot pause it.\n" +
				"2. All questions are mandatory.\n" +
				"3. You can flag questions to review later.\n" +
				"4. Submit your test before the time expires.",
			SecurityNotices: securityNotices,
			Questions: []domain.Question{
				choice("q1", domain.QuestionTypeMultipleChoice, "Solve for x: 2x + 5 = 15", "a",
					"x = 5", "x = 10", "x = 7.5", "x = 2"),
				choice("q2", domain.QuestionTypeMultipleChoice, "Factor the expression: x² - 9", "a",
					"(x - 3)(x + 3)", "(x - 9)(x + 1)", "(x - 3)(x - 3)", "(x + 9)(x - 1)"),
				choice("q3", domain.QuestionTypeMultipleChoice, "What is the value of y when x = 2 in the equation y = 3x² - 4x + 1?", "c",
					"y = 5", "y = 7", "y = 9", "y = 11"),
				choice("q4", domain.QuestionTypeTrueFalse, "The equation x² + 4 = 0 has real number solutions.", "b",
					"True", "False"),
				choice("q5", domain.QuestionTypeMultipleChoice, "What is the slope of the line passing through the points (3, 6) and (7, 10)?", "b",
					"m = 0.5", "m = 1", "m = 1.5", "m = 2"),
				{
					ID:      "q6",
					Type:    domain.QuestionTypeMultipleSelect,
					Text:    "Which of the following are quadratic equations? (Select all that apply)",
					Options: options("y = 2x + 3", "y = x² + 5x - 2", "y = x³ + x", "y = 4x² - 1"),
					CorrectAnswer: domain.CorrectAnswer{
						Values: []string{"b", "d"},
					},
				},
				{
					ID:            "q7",
					Type:          domain.QuestionTypeShortAnswer,
					Text:          "What is the value of x in the equation 3(x - 4) = 15?",
					CorrectAnswer: domain.CorrectAnswer{Value: "9"},
				},
			},
		},
		{
			ID:              "2",
			Title:           "Newton's Laws Quiz",
			Subject:         "Physics",
			DurationSeconds: 45 * 60,
			Instructions: "1. Once you start the quiz, you cannot pause it.\n" +
				"2. All questions are mandatory.\n" +
				"3. Some questions may require calculations.\n" +
				"4. Submit your quiz before the time expires.",
			SecurityNotices: securityNotices,
			Questions: []domain.Question{
				choice("q1", domain.QuestionTypeMultipleChoice,
					"Which of Newton's laws states that an object at rest will remain at rest, and an object in motion "+
						"will remain in motion at constant velocity, unless acted upon by an external force?", "a",
					"First Law", "Second Law", "Third Law", "Law of Conservation of Energy"),
			},
		},
	}
}

func choice(id string, typ domain.QuestionType, text, correct string, opts ...string) domain.Question {
	return domain.Question{
		ID:            id,
		Type:          typ,
		Text:          text,
		Options:       options(opts...),
		CorrectAnswer: domain.CorrectAnswer{Value: correct},
	}
}

// options labels texts a, b, c...
func options(texts ...string) []domain.Option {
	out := make([]domain.Option, 0, len(texts))
	for i, t := range texts {
		out = append(out, domain.Option{ID: string(rune('a' + i)), Text: t})
	}
	return out
}
