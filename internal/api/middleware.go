package api

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
)

const studentTestsFeature = "student-tests"

// authenticate resolves the bearer token into the session user and stores it in the
// request context.
func (a *API) authenticate(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		abort(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token")))
		return
	}

	u, err := a.ids.Current(c.Request.Context(), token)
	if err != nil {
		abort(c, err)
		return
	}

	c.Request = c.Request.WithContext(domain.ContextWithUser(c.Request.Context(), u))
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if domain.RoleFromContext(c.Request.Context()) != role {
			abort(c, errors.New(errors.CodePermissionDenied))
			return
		}
		c.Next()
	}
}

// requireFeature lets the request through when the session user may see featureID of role.
func (a *API) requireFeature(role domain.Role, featureID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.az.HasPermission(c.Request.Context(), role, featureID) {
			abort(c, errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("feature %s is not available", featureID)))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	return domain.UserFromContext(c.Request.Context())
}

// abort renders err as {"code","message"}. Causes of internal errors are logged, never rendered.
func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
