package api

import (
	"alcyxob/coach-scheduler/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	availabilityService service.AvailabilityService
}

func NewAvailabilityHandler(availabilityService service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

type WorkingDaysRequest struct {
	WorkingDays    []time.Weekday `json:"workingDays" binding:"required,min=1,dive,gte=0,lte=6"`
	RecurrenceType string         `json:"recurrenceType"`
}

type HolidayRequest struct {
	Date   string `json:"date" binding:"required"` // YYYY-MM-DD
	Reason string `json:"reason"`
}

// GetProfile godoc
// @Summary Get my availability
// @Description Returns the stored profile, or Monday to Friday when none is stored.
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.AvailabilityProfile
// @Router /availability [get]
func (h *AvailabilityHandler) GetProfile(c *gin.Context) {
	profile, err := h.availabilityService.GetProfile(c.Request.Context(), getScopeFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ReplaceWorkingDays godoc
// @Summary Replace my working days
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WorkingDaysRequest true "Working days, 0=Sunday..6=Saturday"
// @Success 200 {object} domain.AvailabilityProfile
// @Router /availability/days [put]
func (h *AvailabilityHandler) ReplaceWorkingDays(c *gin.Context) {
	var req WorkingDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	profile, err := h.availabilityService.ReplaceWorkingDays(c.Request.Context(), getScopeFromContext(c), req.WorkingDays, req.RecurrenceType)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListHolidays godoc
// @Summary List my holidays
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Holiday
// @Router /availability/holidays [get]
func (h *AvailabilityHandler) ListHolidays(c *gin.Context) {
	holidays, err := h.availabilityService.ListHolidays(c.Request.Context(), getScopeFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, holidays)
}

// AddHoliday godoc
// @Summary Add a holiday
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body HolidayRequest true "Holiday"
// @Success 201 {object} domain.Holiday
// @Failure 409 {object} gin.H "Holiday already recorded for that date"
// @Router /availability/holidays [post]
func (h *AvailabilityHandler) AddHoliday(c *gin.Context) {
	var req HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	holiday, err := h.availabilityService.AddHoliday(c.Request.Context(), getScopeFromContext(c), req.Date, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, holiday)
}

// DeleteHoliday godoc
// @Summary Delete a holiday
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Holiday ObjectID Hex"
// @Success 204 "Deleted"
// @Router /availability/holidays/{id} [delete]
func (h *AvailabilityHandler) DeleteHoliday(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.availabilityService.DeleteHoliday(c.Request.Context(), getScopeFromContext(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
