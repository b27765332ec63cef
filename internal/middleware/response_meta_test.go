package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

func TestResponseMetaCollectsCacheAndRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured map[string]interface{}

	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/availability", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetResolvedRange(c, models.NewDate(2025, 7, 1), models.NewDate(2025, 7, 7), 7)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/availability", nil))

	if captured == nil {
		t.Fatalf("expected meta map")
	}
	if captured[cacheHitKey] != true {
		t.Fatalf("expected cache hit, got %v", captured[cacheHitKey])
	}
	if captured[resolvedDaysKey] != 7 {
		t.Fatalf("expected 7 resolved days, got %v", captured[resolvedDaysKey])
	}
	rng, ok := captured[resolvedRangeKey].(map[string]string)
	if !ok || rng["from"] != "2025-07-01" || rng["to"] != "2025-07-07" {
		t.Fatalf("unexpected range meta %v", captured[resolvedRangeKey])
	}
	if _, ok := captured["processing_time_ms"]; !ok {
		t.Fatalf("expected processing time")
	}
}

func TestSetCacheHitWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if ExtractMeta(c) != nil {
		t.Fatalf("expected no meta before it is set")
	}
	SetCacheHit(c, false)
	if got := ExtractMeta(c)[cacheHitKey]; got != false {
		t.Fatalf("expected cache_hit=false, got %v", got)
	}
}
