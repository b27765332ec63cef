package dto

import "github.com/noah-isme/technician-availability-api/internal/models"

// ExportRequest captures POST /technicians/:id/exports payload.
type ExportRequest struct {
	From   string              `json:"from"`
	To     string              `json:"to"`
	Format models.ExportFormat `json:"format"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID           string              `json:"id"`
	TechnicianID string              `json:"technician_id"`
	Status       models.ExportStatus `json:"status"`
	Progress     int                 `json:"progress"`
	ResultURL    *string             `json:"result_url,omitempty"`
	Error        *string             `json:"error,omitempty"`
}
