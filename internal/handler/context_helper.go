package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/middleware"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := middleware.CurrentClaims(c)
	return claims
}

func exportActorFromContext(c *gin.Context) (service.ExportActor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.ExportActor{}, false
	}
	return service.ExportActor{UserID: claims.UserID, Role: claims.Role, TechnicianID: claims.TechnicianID}, true
}

// requiredDate parses a YYYY-MM-DD query parameter that must be present.
func requiredDate(c *gin.Context, key string) (models.Date, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return models.Date{}, appErrors.Validation("missing query parameter", map[string]string{key: "is required"})
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Validation("invalid query parameter", map[string]string{key: "must be YYYY-MM-DD"})
	}
	return date, nil
}

// optionalDate parses a YYYY-MM-DD query parameter, returning nil when absent.
func optionalDate(c *gin.Context, key string) (*models.Date, error) {
	if strings.TrimSpace(c.Query(key)) == "" {
		return nil, nil
	}
	date, err := requiredDate(c, key)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func requiredRange(c *gin.Context) (models.Date, models.Date, error) {
	from, err := requiredDate(c, "from")
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	to, err := requiredDate(c, "to")
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	return from, to, nil
}

func exceptionFilterFromQuery(c *gin.Context) (models.ExceptionFilter, error) {
	from, err := optionalDate(c, "from")
	if err != nil {
		return models.ExceptionFilter{}, err
	}
	to, err := optionalDate(c, "to")
	if err != nil {
		return models.ExceptionFilter{}, err
	}
	return models.ExceptionFilter{From: from, To: to}, nil
}
