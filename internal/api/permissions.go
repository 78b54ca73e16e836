package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/scholarway/internal/domain"
)

type (
	CheckPermissionResponse struct {
		Role    domain.Role `json:"role"`
		Feature string      `json:"feature"`
		Allowed bool        `json:"allowed"`
	}

	ToggleRequest struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
)

// CheckPermission answers ?role=&feature=. The role defaults to the session role.
func (a *API) CheckPermission(c *gin.Context) {
	ctx := c.Request.Context()

	role := domain.Role(c.Query("role"))
	if role == domain.RoleNone {
		role = domain.RoleFromContext(ctx)
	}
	feature := c.Query("feature")

	c.JSON(http.StatusOK, CheckPermissionResponse{
		Role:    role,
		Feature: feature,
		Allowed: a.az.HasPermission(ctx, role, feature),
	})
}

func (a *API) GetPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, a.az.Permissions())
}

func (a *API) UpdatePermissions(c *gin.Context) {
	var t domain.PermissionTable
	if !bind(c, &t) {
		return
	}

	out, err := a.az.UpdatePermissions(c.Request.Context(), t)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) SetDashboard(c *gin.Context) {
	var req ToggleRequest
	if !bind(c, &req) {
		return
	}

	out, err := a.az.SetDashboard(c.Request.Context(), domain.Role(c.Param("role")), *req.Enabled)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) SetFeature(c *gin.Context) {
	var req ToggleRequest
	if !bind(c, &req) {
		return
	}

	out, err := a.az.SetFeature(c.Request.Context(), domain.Role(c.Param("role")), c.Param("featureID"), *req.Enabled)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}
