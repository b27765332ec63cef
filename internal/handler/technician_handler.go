package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/response"
)

type technicianService interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Technician, error)
	Create(ctx context.Context, req service.CreateTechnicianRequest) (*models.Technician, error)
	Update(ctx context.Context, id string, req service.UpdateTechnicianRequest) (*models.Technician, error)
	Deactivate(ctx context.Context, id string) error
}

// TechnicianHandler wires technician services to HTTP routes.
type TechnicianHandler struct {
	technicians technicianService
}

// NewTechnicianHandler constructs a new TechnicianHandler.
func NewTechnicianHandler(technicians technicianService) *TechnicianHandler {
	return &TechnicianHandler{technicians: technicians}
}

// List godoc
// @Summary List technicians
// @Tags Technicians
// @Produce json
// @Param search query string false "Search by name/email/specialty"
// @Param active query bool false "Filter by active status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (full_name,email,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /technicians [get]
func (h *TechnicianHandler) List(c *gin.Context) {
	filter := models.TechnicianFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if active, err := strconv.ParseBool(c.Query("active")); err == nil {
		filter.Active = &active
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	technicians, pagination, err := h.technicians.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technicians, pagination)
}

// Get godoc
// @Summary Get technician detail
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [get]
func (h *TechnicianHandler) Get(c *gin.Context) {
	technician, err := h.technicians.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Create godoc
// @Summary Create technician
// @Tags Technicians
// @Accept json
// @Produce json
// @Param payload body service.CreateTechnicianRequest true "Technician payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /technicians [post]
func (h *TechnicianHandler) Create(c *gin.Context) {
	var req service.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid technician payload"))
		return
	}
	technician, err := h.technicians.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, technician)
}

// Update godoc
// @Summary Update technician
// @Tags Technicians
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.UpdateTechnicianRequest true "Technician payload"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id} [put]
func (h *TechnicianHandler) Update(c *gin.Context) {
	var req service.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid technician payload"))
		return
	}
	technician, err := h.technicians.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Delete godoc
// @Summary Deactivate technician
// @Tags Technicians
// @Param id path string true "Technician ID"
// @Success 204
// @Router /technicians/{id} [delete]
func (h *TechnicianHandler) Delete(c *gin.Context) {
	if err := h.technicians.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
