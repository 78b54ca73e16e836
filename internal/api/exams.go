package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/exam"
)

type (
	// TestSummary is a test without its questions, for listings.
	TestSummary struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		Subject         string `json:"subject"`
		DurationSeconds int    `json:"duration_seconds"`
		TotalQuestions  int    `json:"total_questions"`
	}

	// TestDetail is the pre-start screen of a test. It never carries correct answers.
	TestDetail struct {
		TestSummary
		Instructions    string   `json:"instructions"`
		SecurityNotices []string `json:"security_notices"`
	}

	AnswerRequest struct {
		QuestionID string `json:"question_id" binding:"required"`
		exam.AnswerInput
	}

	FlagRequest struct {
		QuestionID string `json:"question_id" binding:"required"`
	}

	GoToRequest struct {
		Index *int `json:"index" binding:"required"`
	}
)

func summarize(t domain.Test) TestSummary {
	return TestSummary{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		DurationSeconds: t.DurationSeconds,
		TotalQuestions:  len(t.Questions),
	}
}

func (a *API) ListTests(c *gin.Context) {
	tests := a.es.Catalog().List()

	out := make([]TestSummary, 0, len(tests))
	for _, t := range tests {
		out = append(out, summarize(t))
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) GetTest(c *gin.Context) {
	t, ok := a.es.Catalog().Get(c.Param("testID"))
	if !ok {
		abort(c, errors.NotFound("test not found: %s", c.Param("testID")))
		return
	}

	c.JSON(http.StatusOK, TestDetail{
		TestSummary:     summarize(t),
		Instructions:    t.Instructions,
		SecurityNotices: t.SecurityNotices,
	})
}

func (a *API) CreateSession(c *gin.Context) {
	sess, err := a.es.Create(c.Request.Context(), currentUser(c).ID, c.Param("testID"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess.View())
}

func (a *API) GetSession(c *gin.Context) {
	sess, err := a.es.Get(c.Request.Context(), currentUser(c).ID, c.Param("sessionID"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.View())
}

// SessionAction applies one state machine operation and returns the resulting view.
// Operations that are not valid in the current phase leave the session unchanged.
func (a *API) SessionAction(c *gin.Context) {
	sess, err := a.es.Get(c.Request.Context(), currentUser(c).ID, c.Param("sessionID"))
	if err != nil {
		abort(c, err)
		return
	}

	switch action := c.Param("action"); action {
	case "start":
		sess.Start()
	case "answer":
		var req AnswerRequest
		if !bind(c, &req) {
			return
		}
		sess.Answer(req.QuestionID, req.AnswerInput)
	case "flag":
		var req FlagRequest
		if !bind(c, &req) {
			return
		}
		sess.ToggleFlag(req.QuestionID)
	case "goto":
		var req GoToRequest
		if !bind(c, &req) {
			return
		}
		sess.GoTo(*req.Index)
	case "next":
		sess.Next()
	case "prev":
		sess.Prev()
	case "submit":
		sess.Submit()
	case "exit":
		sess.Exit()
	default:
		abort(c, errors.NotFound("unknown action: %s", action))
		return
	}

	c.JSON(http.StatusOK, sess.View())
}

func (a *API) GetResult(c *gin.Context) {
	r, err := a.es.Result(c.Request.Context(), currentUser(c).ID, c.Param("sessionID"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}
