package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/padel-waitlist-api/internal/middleware"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
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

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// occurrenceKeyFromPath reads :classId and :date.
func occurrenceKeyFromPath(c *gin.Context) (models.OccurrenceKey, error) {
	key, err := models.NewOccurrenceKey(c.Param("classId"), c.Param("date"))
	if err != nil {
		return models.OccurrenceKey{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return key, nil
}
