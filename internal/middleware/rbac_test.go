package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

func performWithRole(role models.UserRole, authenticated bool, allowed ...models.UserRole) (*httptest.ResponseRecorder, bool) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authenticated {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
	}

	reached := false
	RequireRoles(allowed...)(c)
	if !c.IsAborted() {
		reached = true
	}
	return rec, reached
}

func TestRequireRolesAllows(t *testing.T) {
	_, reached := performWithRole(models.RoleChefEquipe, true, models.RoleChefEquipe)
	assert.True(t, reached)
}

func TestRequireRolesForbids(t *testing.T) {
	rec, reached := performWithRole(models.RoleGestionnaire, true, models.RoleFinance)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesSuperAdminBypass(t *testing.T) {
	_, reached := performWithRole(models.RoleSuperAdmin, true, models.RoleFinance)
	assert.True(t, reached)
}

func TestRequireRolesUnauthenticated(t *testing.T) {
	rec, reached := performWithRole(models.RoleChefEquipe, false, models.RoleChefEquipe)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
