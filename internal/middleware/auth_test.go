package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
}

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newProtectedRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/technicians/:id", JWT(staticValidator{claims: claims}), guard, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, path, authorization string) int {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(recorder, req)
	return recorder.Code
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	router := newProtectedRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, AdminOrSelf())

	if code := serve(router, "/technicians/t1", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing header: unexpected status %d", code)
	}
	if code := serve(router, "/technicians/t1", "Token good"); code != http.StatusUnauthorized {
		t.Fatalf("wrong scheme: unexpected status %d", code)
	}
	if code := serve(router, "/technicians/t1", "Bearer bad"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: unexpected status %d", code)
	}
	if code := serve(router, "/technicians/t1", "Bearer good"); code != http.StatusNoContent {
		t.Fatalf("good token: unexpected status %d", code)
	}
}

func TestAdminOrSelfLimitsTechniciansToTheirOwnRecord(t *testing.T) {
	router := newProtectedRouter(&models.JWTClaims{UserID: "u2", Role: models.RoleTechnician, TechnicianID: "t2"}, AdminOrSelf())

	if code := serve(router, "/technicians/t2", "Bearer good"); code != http.StatusNoContent {
		t.Fatalf("own technician: unexpected status %d", code)
	}
	if code := serve(router, "/technicians/t1", "Bearer good"); code != http.StatusForbidden {
		t.Fatalf("other technician: unexpected status %d", code)
	}
}

func TestSelfNeedsLinkedTechnician(t *testing.T) {
	router := newProtectedRouter(&models.JWTClaims{UserID: "u3", Role: models.RoleTechnician}, AdminOrSelf())

	if code := serve(router, "/technicians/u3", "Bearer good"); code != http.StatusForbidden {
		t.Fatalf("user id must not satisfy SELF: unexpected status %d", code)
	}
}

func TestRequireRolesAdminOnly(t *testing.T) {
	router := newProtectedRouter(&models.JWTClaims{UserID: "u2", Role: models.RoleTechnician, TechnicianID: "t2"}, RequireRoles(models.RoleAdmin))

	if code := serve(router, "/technicians/t2", "Bearer good"); code != http.StatusForbidden {
		t.Fatalf("technician on admin route: unexpected status %d", code)
	}
}

func TestJWTQueryTokenForCalendarFeeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := staticValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	router := gin.New()
	router.GET("/feed.ics", JWT(validator, AllowQueryToken("access_token")), func(c *gin.Context) {
		if _, ok := CurrentClaims(c); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/header-only", JWT(validator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	if code := serve(router, "/feed.ics?access_token=good", ""); code != http.StatusNoContent {
		t.Fatalf("query token: unexpected status %d", code)
	}
	if code := serve(router, "/feed.ics?access_token=good", "Bearer bad"); code != http.StatusUnauthorized {
		t.Fatalf("header must win over query: unexpected status %d", code)
	}
	if code := serve(router, "/feed.ics?access_token=", ""); code != http.StatusUnauthorized {
		t.Fatalf("empty query token: unexpected status %d", code)
	}
	if code := serve(router, "/header-only?access_token=good", ""); code != http.StatusUnauthorized {
		t.Fatalf("query token without opt-in: unexpected status %d", code)
	}
}
