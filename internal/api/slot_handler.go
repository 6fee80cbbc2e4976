package api

import (
	"alcyxob/coach-scheduler/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SlotHandler struct {
	slotService service.SlotService
}

func NewSlotHandler(slotService service.SlotService) *SlotHandler {
	return &SlotHandler{slotService: slotService}
}

type TimeSlotRequest struct {
	DayOfWeek       *time.Weekday `json:"dayOfWeek" binding:"required,gte=0,lte=6"`
	StartTime       string        `json:"startTime" binding:"required"` // HH:MM
	EndTime         string        `json:"endTime" binding:"required"`   // HH:MM
	LocationType    string        `json:"locationType"`
	LocationAddress string        `json:"locationAddress"`
	MaxClients      int           `json:"maxClients" binding:"gte=0"`
}

type AssignToSlotRequest struct {
	TimeSlotID          string `json:"timeSlotId" binding:"required"`
	ClientID            string `json:"clientId" binding:"required"`
	WorkoutID           string `json:"workoutId"`
	StartDate           string `json:"startDate" binding:"required"`
	NumSessions         int    `json:"numSessions" binding:"gte=0"`
	Notes               string `json:"notes"`
	RespectAvailability bool   `json:"respectAvailability"`
	IdempotencyKey      string `json:"idempotencyKey"`
}

// CreateTimeSlot godoc
// @Summary Offer a weekly time slot
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TimeSlotRequest true "Slot, dayOfWeek 0=Sunday..6=Saturday"
// @Success 201 {object} domain.TimeSlot
// @Failure 400 {object} gin.H "Invalid weekday, times or location"
// @Router /availability/slots [post]
func (h *SlotHandler) CreateTimeSlot(c *gin.Context) {
	var req TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	slot, err := h.slotService.CreateTimeSlot(c.Request.Context(), getScopeFromContext(c), service.CreateTimeSlotInput{
		DayOfWeek:       *req.DayOfWeek,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		LocationType:    req.LocationType,
		LocationAddress: req.LocationAddress,
		MaxClients:      req.MaxClients,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// ListTimeSlots godoc
// @Summary List my time slots
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.TimeSlot
// @Router /availability/slots [get]
func (h *SlotHandler) ListTimeSlots(c *gin.Context) {
	slots, err := h.slotService.ListTimeSlots(c.Request.Context(), getScopeFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// DeleteTimeSlot godoc
// @Summary Delete a time slot
// @Description Sessions already assigned from the slot are kept.
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Time slot ObjectID Hex"
// @Success 204 "Deleted"
// @Router /availability/slots/{id} [delete]
func (h *SlotHandler) DeleteTimeSlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.slotService.DeleteTimeSlot(c.Request.Context(), getScopeFromContext(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignClientToSlot godoc
// @Summary Book a client into a weekly slot
// @Description Creates numSessions weekly sessions (default 4) starting on the slot's first weekday on or after startDate.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignToSlotRequest true "Assignment"
// @Success 201 {object} service.RecurringSessionsResult
// @Success 200 {object} service.RecurringSessionsResult "Replayed"
// @Failure 404 {object} gin.H "Slot or client not found"
// @Failure 409 {object} gin.H "Idempotency key already used for a different request"
// @Router /sessions/assign-to-slot [post]
func (h *SlotHandler) AssignClientToSlot(c *gin.Context) {
	var req AssignToSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	slotID, err := primitive.ObjectIDFromHex(req.TimeSlotID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid timeSlotId format.")
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}
	workoutID, err := parseOptionalID("workoutId", req.WorkoutID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader(IdempotencyKeyHeader)
	}

	result, err := h.slotService.AssignClientToSlot(c.Request.Context(), getScopeFromContext(c), service.AssignToSlotInput{
		TimeSlotID:          slotID,
		ClientID:            clientID,
		WorkoutID:           workoutID,
		StartDate:           req.StartDate,
		NumSessions:         req.NumSessions,
		Notes:               req.Notes,
		RespectAvailability: req.RespectAvailability,
		IdempotencyKey:      key,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
