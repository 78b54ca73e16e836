package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/identity"
)

type (
	LoginRequest struct {
		Email string `json:"email" binding:"required"`
		// Password is accepted for client compatibility and not checked.
		Password string `json:"password"`
	}

	RegisterRequest struct {
		Email    string      `json:"email" binding:"required"`
		Password string      `json:"password"`
		Name     string      `json:"name" binding:"required"`
		Role     domain.Role `json:"role" binding:"required"`
	}
)

func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	sess, err := a.ids.Login(c.Request.Context(), req.Email)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (a *API) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	sess, err := a.ids.Register(c.Request.Context(), identity.RegisterRequest{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

func (a *API) Logout(c *gin.Context) {
	token, _ := bearerToken(c)
	if err := a.ids.Logout(c.Request.Context(), token); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// bind decodes the JSON body into req and aborts with InvalidArgument on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request: %s", err),
			errors.WithCause(err),
		))
		return false
	}
	return true
}
