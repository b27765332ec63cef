package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/technician-availability-api/internal/middleware"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type technicianServiceMock struct {
	lastFilter models.TechnicianFilter
	lastID     string
	created    *service.CreateTechnicianRequest
	getErr     error
}

func (m *technicianServiceMock) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Technician{{ID: "tech-1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *technicianServiceMock) Get(ctx context.Context, id string) (*models.Technician, error) {
	m.lastID = id
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Technician{ID: id}, nil
}

func (m *technicianServiceMock) Create(ctx context.Context, req service.CreateTechnicianRequest) (*models.Technician, error) {
	m.created = &req
	return &models.Technician{ID: "tech-new", Email: req.Email}, nil
}

func (m *technicianServiceMock) Update(ctx context.Context, id string, req service.UpdateTechnicianRequest) (*models.Technician, error) {
	m.lastID = id
	return &models.Technician{ID: id}, nil
}

func (m *technicianServiceMock) Deactivate(ctx context.Context, id string) error {
	m.lastID = id
	return nil
}

func TestTechnicianHandlerListParsesFilter(t *testing.T) {
	mockSvc := &technicianServiceMock{}
	handler := NewTechnicianHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/technicians?search=%20ana%20&active=false&page=2&limit=5&sort=email", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", mockSvc.lastFilter.Search)
	require.NotNil(t, mockSvc.lastFilter.Active)
	assert.False(t, *mockSvc.lastFilter.Active)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
	assert.Equal(t, "email", mockSvc.lastFilter.SortBy)

	body := decodeEnvelope(t, w)
	assert.NotNil(t, body["pagination"])
}

func TestTechnicianHandlerGetNotFound(t *testing.T) {
	handler := NewTechnicianHandler(&technicianServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "technician not found")})

	c, w := newGinContext(http.MethodGet, "/technicians/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTechnicianHandlerGetInternalError(t *testing.T) {
	handler := NewTechnicianHandler(&technicianServiceMock{getErr: sql.ErrConnDone})

	c, w := newGinContext(http.MethodGet, "/technicians/t1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Get(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTechnicianHandlerCreate(t *testing.T) {
	mockSvc := &technicianServiceMock{}
	handler := NewTechnicianHandler(mockSvc)

	payload, _ := json.Marshal(map[string]string{"email": "ana@example.com", "full_name": "Ana"})
	c, w := newGinContext(http.MethodPost, "/technicians", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.created)
	assert.Equal(t, "ana@example.com", mockSvc.created.Email)
}

func TestTechnicianHandlerCreateInvalidBody(t *testing.T) {
	mockSvc := &technicianServiceMock{}
	handler := NewTechnicianHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/technicians", []byte(`{"email":`))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.created)
}

func TestTechnicianHandlerDelete(t *testing.T) {
	mockSvc := &technicianServiceMock{}
	handler := NewTechnicianHandler(mockSvc)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.DELETE("/technicians/:id", handler.Delete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/technicians/t1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, "t1", mockSvc.lastID)
}
