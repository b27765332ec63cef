package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/technician-availability-api/internal/dto"
	"github.com/noah-isme/technician-availability-api/internal/middleware"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
	lastActor   service.ExportActor
	lastTech    string
}

func (m *exportServiceMock) CreateJob(ctx context.Context, technicianID string, req dto.ExportRequest, actor service.ExportActor) (*dto.ExportJobResponse, error) {
	m.lastTech = technicianID
	m.lastActor = actor
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id string, actor service.ExportActor) (*dto.ExportStatusResponse, error) {
	m.lastActor = actor
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	mockSvc := &exportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued, Progress: 0},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ExportRequest{From: "2025-07-01", To: "2025-07-31", Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/technicians/t1/exports", payload)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleTechnician, TechnicianID: "t1"})

	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "t1", mockSvc.lastTech)
	assert.Equal(t, "t1", mockSvc.lastActor.TechnicianID)
	assert.Equal(t, models.RoleTechnician, mockSvc.lastActor.Role)
}

func TestExportHandlerCreateRequiresClaims(t *testing.T) {
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/technicians/t1/exports", []byte(`{}`))
	handler.Create(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	mockSvc := &exportServiceMock{
		statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExportHandlerStatusForbidden(t *testing.T) {
	handler := NewExportHandler(&exportServiceMock{statusErr: appErrors.ErrForbidden})

	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u2", Role: models.RoleTechnician, TechnicianID: "t2"})

	handler.Status(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "availability*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Date,Weekday\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &exportServiceMock{
		download: &service.ExportDownload{
			File:      file,
			Filename:  "availability-job-1.csv",
			Format:    models.ExportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "availability-job-1.csv")
	assert.Equal(t, "Date,Weekday\n", w.Body.String())
}
