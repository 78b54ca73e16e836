package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/scholarway/internal/authz"
	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/event"
	"github.com/victornm/scholarway/internal/exam"
	"github.com/victornm/scholarway/internal/identity"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Identity     *identity.Service
	Authz        *authz.Service
	Exam         *exam.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	ids *identity.Service
	az  *authz.Service
	es  *exam.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ids:    c.Identity,
		az:     c.Authz,
		es:     c.Exam,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	a.registerRoutes(c.Router)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameExamTimeWarning, func(ctx context.Context, e event.Event) error {
		return a.PublishTimeWarning(ctx, e.(domain.EventExamTimeWarning))
	})
	c.EventBus.Subscribe(domain.EventNameExamSubmitted, func(ctx context.Context, e event.Event) error {
		return a.PublishSubmitted(ctx, e.(domain.EventExamSubmitted))
	})
	c.EventBus.Subscribe(domain.EventNamePermissionsUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishPermissionsUpdated(ctx, e.(domain.EventPermissionsUpdated))
	})

	return a
}

func (a *API) registerRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.POST("/auth/login", a.Login)
	v1.POST("/auth/register", a.Register)

	authed := v1.Group("", a.authenticate)
	authed.POST("/auth/logout", a.Logout)
	authed.GET("/me", a.Me)
	authed.GET("/permissions/check", a.CheckPermission)

	admin := authed.Group("/permissions", requireRole(domain.RoleSuperadmin))
	admin.GET("", a.GetPermissions)
	admin.PUT("", a.UpdatePermissions)
	admin.PATCH("/:role/dashboard", a.SetDashboard)
	admin.PATCH("/:role/features/:featureID", a.SetFeature)

	tests := authed.Group("/tests", a.requireFeature(domain.RoleStudent, studentTestsFeature))
	tests.GET("", a.ListTests)
	tests.GET("/:testID", a.GetTest)
	tests.POST("/:testID/sessions", a.CreateSession)

	authed.GET("/sessions/:sessionID", a.GetSession)
	authed.POST("/sessions/:sessionID/:action", a.SessionAction)
	authed.GET("/results/:sessionID", a.GetResult)
}
