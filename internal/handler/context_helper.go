package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ars-tn/claims-flow-api/internal/middleware"
	"github.com/ars-tn/claims-flow-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerFromClaims projects JWT claims onto the user shape the service
// layer partitions and authorises on.
func viewerFromClaims(claims *models.JWTClaims) *models.User {
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     claims.Role,
		TeamID:   claims.TeamID,
	}
}
