package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/response"
)

type weeklyScheduleService interface {
	Get(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error)
	Replace(ctx context.Context, technicianID string, req service.ReplaceWeeklyScheduleRequest) ([]models.WeeklyBlock, error)
}

type exceptionService interface {
	List(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error)
	Groups(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ExceptionGroup, error)
	Create(ctx context.Context, technicianID string, req service.ExceptionRequest) ([]models.ScheduleException, error)
	UpdateGroup(ctx context.Context, technicianID string, req service.UpdateExceptionGroupRequest) ([]models.ScheduleException, error)
	Delete(ctx context.Context, technicianID string, req service.DeleteExceptionsRequest) (int64, error)
}

// ScheduleHandler exposes weekly schedule and exception endpoints.
type ScheduleHandler struct {
	weekly     weeklyScheduleService
	exceptions exceptionService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(weekly weeklyScheduleService, exceptions exceptionService) *ScheduleHandler {
	return &ScheduleHandler{weekly: weekly, exceptions: exceptions}
}

// GetWeekly godoc
// @Summary Get weekly schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/weekly-schedule [get]
func (h *ScheduleHandler) GetWeekly(c *gin.Context) {
	blocks, err := h.weekly.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// ReplaceWeekly godoc
// @Summary Replace weekly schedule
// @Description Replaces every weekly block of the technician in one transaction
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.ReplaceWeeklyScheduleRequest true "Weekly blocks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /technicians/{id}/weekly-schedule [put]
func (h *ScheduleHandler) ReplaceWeekly(c *gin.Context) {
	var req service.ReplaceWeeklyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid weekly schedule payload"))
		return
	}
	blocks, err := h.weekly.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// ListExceptions godoc
// @Summary List schedule exceptions
// @Tags Exceptions
// @Produce json
// @Param id path string true "Technician ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/exceptions [get]
func (h *ScheduleHandler) ListExceptions(c *gin.Context) {
	filter, err := exceptionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.exceptions.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ListExceptionGroups godoc
// @Summary List grouped schedule exceptions
// @Description Consecutive days with identical settings are merged into one group
// @Tags Exceptions
// @Produce json
// @Param id path string true "Technician ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/exceptions/groups [get]
func (h *ScheduleHandler) ListExceptionGroups(c *gin.Context) {
	filter, err := exceptionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	groups, err := h.exceptions.Groups(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// CreateException godoc
// @Summary Create schedule exception
// @Description Creates one row per day from start_date to end_date after checking for conflicts
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.ExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /technicians/{id}/exceptions [post]
func (h *ScheduleHandler) CreateException(c *gin.Context) {
	var req service.ExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid exception payload"))
		return
	}
	rows, err := h.exceptions.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rows)
}

// UpdateExceptionGroup godoc
// @Summary Replace an exception group
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.UpdateExceptionGroupRequest true "Group ids and new payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /technicians/{id}/exceptions/groups [put]
func (h *ScheduleHandler) UpdateExceptionGroup(c *gin.Context) {
	var req service.UpdateExceptionGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid exception group payload"))
		return
	}
	rows, err := h.exceptions.UpdateGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// DeleteExceptions godoc
// @Summary Delete schedule exceptions
// @Description Ids belonging to other technicians are ignored
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.DeleteExceptionsRequest true "Exception ids"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/exceptions [delete]
func (h *ScheduleHandler) DeleteExceptions(c *gin.Context) {
	var req service.DeleteExceptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid delete payload"))
		return
	}
	h.deleteExceptions(c, req)
}

// DeleteException godoc
// @Summary Delete one schedule exception
// @Tags Exceptions
// @Produce json
// @Param id path string true "Technician ID"
// @Param exceptionId path string true "Exception ID"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id}/exceptions/{exceptionId} [delete]
func (h *ScheduleHandler) DeleteException(c *gin.Context) {
	h.deleteExceptions(c, service.DeleteExceptionsRequest{IDs: []string{c.Param("exceptionId")}})
}

func (h *ScheduleHandler) deleteExceptions(c *gin.Context, req service.DeleteExceptionsRequest) {
	deleted, err := h.exceptions.Delete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}
