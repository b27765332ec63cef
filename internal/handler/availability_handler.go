package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/middleware"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/pkg/response"
)

type availabilityService interface {
	Day(ctx context.Context, technicianID string, date models.Date) (models.DayAvailability, bool, error)
	Range(ctx context.Context, technicianID string, from, to models.Date) ([]models.DayAvailability, bool, error)
}

type calendarService interface {
	Feed(ctx context.Context, technicianID string, from, to models.Date) (string, error)
}

// AvailabilityHandler answers availability queries and serves the iCalendar feed.
type AvailabilityHandler struct {
	availability availabilityService
	calendar     calendarService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityService, calendar calendarService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, calendar: calendar}
}

// Day godoc
// @Summary Resolve availability for one date
// @Tags Availability
// @Produce json
// @Param id path string true "Technician ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /technicians/{id}/availability [get]
func (h *AvailabilityHandler) Day(c *gin.Context) {
	date, err := requiredDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	day, hit, err := h.availability.Day(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, day, nil, middleware.ExtractMeta(c))
}

// Range godoc
// @Summary Resolve availability for a date range
// @Tags Availability
// @Produce json
// @Param id path string true "Technician ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD), inclusive"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /technicians/{id}/availability/range [get]
func (h *AvailabilityHandler) Range(c *gin.Context) {
	from, to, err := requiredRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	days, hit, err := h.availability.Range(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetResolvedRange(c, from, to, len(days))
	response.JSON(c, http.StatusOK, days, nil, middleware.ExtractMeta(c))
}

// Calendar godoc
// @Summary iCalendar feed of availability
// @Description One event per availability window and one all-day event per block-out
// @Tags Availability
// @Produce text/calendar
// @Param id path string true "Technician ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD), inclusive"
// @Param access_token query string false "Access token for subscription clients without header support"
// @Success 200 {string} string "text/calendar document"
// @Failure 429 {object} response.Envelope
// @Router /technicians/{id}/calendar.ics [get]
func (h *AvailabilityHandler) Calendar(c *gin.Context) {
	from, to, err := requiredRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	feed, err := h.calendar.Feed(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Calendar(c, "availability-"+c.Param("id")+".ics", feed)
}
