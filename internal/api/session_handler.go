package api

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/service"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdempotencyKeyHeader may carry the idempotency key of a recurring request.
const IdempotencyKeyHeader = "Idempotency-Key"

type SessionHandler struct {
	scheduleService  service.ScheduleService
	lifecycleService service.LifecycleService
}

func NewSessionHandler(scheduleService service.ScheduleService, lifecycleService service.LifecycleService) *SessionHandler {
	return &SessionHandler{scheduleService: scheduleService, lifecycleService: lifecycleService}
}

// --- DTOs ---

type CreateSessionRequest struct {
	ClientID        string    `json:"clientId" binding:"required"`
	WorkoutID       string    `json:"workoutId"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"gte=0"`
	Location        string    `json:"location"`
	Notes           string    `json:"notes"`
}

type RecurringSessionsRequest struct {
	ClientID            string `json:"clientId"`
	WorkoutID           string `json:"workoutId"`
	StartDate           string `json:"startDate" binding:"required"`
	Time                string `json:"time" binding:"required"`
	Recurrence          string `json:"recurrence"`
	Count               int    `json:"count"`
	DurationMinutes     int    `json:"durationMinutes" binding:"gte=0"`
	Location            string `json:"location"`
	Notes               string `json:"notes"`
	RespectAvailability bool   `json:"respectAvailability"`
	IdempotencyKey      string `json:"idempotencyKey"`
}

type PreviewResponse struct {
	Count    int         `json:"count"`
	Instants []time.Time `json:"instants"`
}

type CompleteSessionRequest struct {
	Notes              string                     `json:"notes"`
	CompletedExercises []domain.CompletedExercise `json:"completedExercises"`
}

type AttendanceRequest struct {
	Status      domain.AttendanceStatus `json:"status" binding:"required,oneof=attended late absent"`
	Notes       string                  `json:"notes"`
	LateMinutes *int                    `json:"lateMinutes"`
}

type CancelSessionRequest struct {
	Reason      string           `json:"reason"`
	CancelledBy domain.ActorRole `json:"cancelledBy"`
}

type TransitionRequest struct {
	Status             domain.SessionStatus       `json:"status" binding:"required"`
	Reason             string                     `json:"reason"`
	CancelledBy        domain.ActorRole           `json:"cancelledBy"`
	Notes              string                     `json:"notes"`
	CompletedExercises []domain.CompletedExercise `json:"completedExercises"`
	Attendance         domain.AttendanceStatus    `json:"attendance"`
	LateMinutes        *int                       `json:"lateMinutes"`
}

type RescheduleRequest struct {
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"gte=0"`
}

type BulkCancelRequest struct {
	SessionIDs  []string         `json:"sessionIds" binding:"required,min=1"`
	Reason      string           `json:"reason"`
	CancelledBy domain.ActorRole `json:"cancelledBy"`
}

// --- Scheduling ---

// PreviewRecurrence godoc
// @Summary Preview a recurring series
// @Description Returns the instants a recurring request would create, without writing anything.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body RecurringSessionsRequest true "Recurrence"
// @Success 200 {object} PreviewResponse
// @Failure 400 {object} gin.H "Invalid date, time or recurrence"
// @Router /sessions/preview [post]
func (h *SessionHandler) PreviewRecurrence(c *gin.Context) {
	in, ok := bindRecurring(c)
	if !ok {
		return
	}
	instants, err := h.scheduleService.PreviewRecurrence(c.Request.Context(), getScopeFromContext(c), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{Count: len(instants), Instants: instants})
}

// CreateSession godoc
// @Summary Schedule one session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body CreateSessionRequest true "Session"
// @Success 201 {object} domain.Session
// @Failure 400 {object} gin.H "Invalid input or no identified coach"
// @Failure 404 {object} gin.H "Client not found"
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
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

	session, err := h.scheduleService.CreateSession(c.Request.Context(), getScopeFromContext(c), service.CreateSessionInput{
		ClientID:        clientID,
		WorkoutID:       workoutID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// CreateRecurringSessions godoc
// @Summary Schedule a recurring series
// @Description Creates one session per generated instant. Replaying a request with the same idempotency key returns the original batch.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body RecurringSessionsRequest true "Recurrence"
// @Success 201 {object} service.RecurringSessionsResult
// @Success 200 {object} service.RecurringSessionsResult "Replayed"
// @Router /sessions/recurring [post]
func (h *SessionHandler) CreateRecurringSessions(c *gin.Context) {
	in, ok := bindRecurring(c)
	if !ok {
		return
	}
	if in.ClientID == primitive.NilObjectID {
		abortWithError(c, http.StatusBadRequest, "clientId is required.")
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	}

	result, err := h.scheduleService.CreateRecurringSessions(c.Request.Context(), getScopeFromContext(c), in)
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

func bindRecurring(c *gin.Context) (service.RecurringSessionsInput, bool) {
	var req RecurringSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return service.RecurringSessionsInput{}, false
	}
	in := service.RecurringSessionsInput{
		StartDate:           req.StartDate,
		TimeOfDay:           req.Time,
		Recurrence:          req.Recurrence,
		Count:               req.Count,
		DurationMinutes:     req.DurationMinutes,
		Location:            req.Location,
		Notes:               req.Notes,
		RespectAvailability: req.RespectAvailability,
		IdempotencyKey:      req.IdempotencyKey,
	}
	if req.ClientID != "" {
		id, err := primitive.ObjectIDFromHex(req.ClientID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
			return in, false
		}
		in.ClientID = id
	}
	workoutID, err := parseOptionalID("workoutId", req.WorkoutID)
	if err != nil {
		writeServiceError(c, err)
		return in, false
	}
	in.WorkoutID = workoutID
	return in, true
}

// ListSessions godoc
// @Summary List sessions
// @Description Lists the calling coach's sessions; unscoped callers see every coach's.
// @Tags Sessions
// @Produce json
// @Param clientId query string false "Client ObjectID Hex"
// @Param status query string false "Session status"
// @Param from query string false "YYYY-MM-DD or RFC3339"
// @Param to query string false "YYYY-MM-DD or RFC3339"
// @Param includeCancelled query bool false "Include cancelled sessions"
// @Success 200 {array} domain.Session
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var q service.SessionQuery
	if hex := c.Query("clientId"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
			return
		}
		q.ClientID = &id
	}
	if s := c.Query("status"); s != "" {
		status, err := domain.ParseSessionStatus(s)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		q.Status = &status
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		if s := c.Query(p.name); s != "" {
			t, err := parseQueryTime(p.name, s)
			if err != nil {
				writeServiceError(c, err)
				return
			}
			*p.dst = &t
		}
	}
	if s := c.Query("includeCancelled"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "includeCancelled must be a boolean.")
			return
		}
		q.IncludeCancelled = b
	}

	sessions, err := h.scheduleService.ListSessions(c.Request.Context(), getScopeFromContext(c), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary Get one session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Success 200 {object} domain.Session
// @Failure 404 {object} gin.H "Session not found"
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	session, err := h.scheduleService.GetSession(c.Request.Context(), getScopeFromContext(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// --- Lifecycle ---

// Transition godoc
// @Summary Move a session to a status
// @Description Generic transition; re-applying the current status is a no-op.
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Param request body TransitionRequest true "Target status and payload"
// @Success 200 {object} service.TransitionResult
// @Failure 400 {object} gin.H "Transition not allowed"
// @Router /sessions/{id}/status [post]
func (h *SessionHandler) Transition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	result, err := h.lifecycleService.Transition(c.Request.Context(), getScopeFromContext(c), id, req.Status, service.TransitionPayload{
		Reason:             req.Reason,
		CancelledBy:        req.CancelledBy,
		Notes:              req.Notes,
		CompletedExercises: req.CompletedExercises,
		Attendance:         req.Attendance,
		LateMinutes:        req.LateMinutes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartSession godoc
// @Summary Start a session
// @Description Moves a scheduled session to in_progress and returns it with its workout.
// @Tags Session Lifecycle
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Success 200 {object} service.TransitionResult
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.lifecycleService.Start(c.Request.Context(), getScopeFromContext(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteSession godoc
// @Summary Complete a session
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Param request body CompleteSessionRequest false "Notes and completed exercises"
// @Success 200 {object} domain.Session
// @Failure 400 {object} gin.H "Session is not in progress"
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CompleteSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	session, err := h.lifecycleService.Complete(c.Request.Context(), getScopeFromContext(c), id, req.Notes, req.CompletedExercises)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// MarkAttendance godoc
// @Summary Mark attendance
// @Description absent moves the session to no_show; attended and late complete it.
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Param request body AttendanceRequest true "Attendance"
// @Success 200 {object} domain.Session
// @Router /sessions/{id}/attendance [post]
func (h *SessionHandler) MarkAttendance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	session, err := h.lifecycleService.MarkAttendance(c.Request.Context(), getScopeFromContext(c), id, req.Status, req.Notes, req.LateMinutes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CancelSession godoc
// @Summary Cancel a session
// @Description Cancelling an already cancelled session succeeds and keeps the original cancellation record.
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Param request body CancelSessionRequest false "Reason and actor"
// @Success 200 {object} domain.Session
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CancelSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	session, err := h.lifecycleService.Cancel(c.Request.Context(), getScopeFromContext(c), id, req.Reason, req.CancelledBy)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// BulkCancel godoc
// @Summary Cancel several sessions
// @Description Each id is cancelled independently; the response reports per-id outcomes.
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param request body BulkCancelRequest true "Session ids"
// @Success 200 {array} service.BulkCancelResult
// @Router /sessions/bulk-cancel [post]
func (h *SessionHandler) BulkCancel(c *gin.Context) {
	var req BulkCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	ids := make([]primitive.ObjectID, len(req.SessionIDs))
	for i, hex := range req.SessionIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid session id %q.", hex))
			return
		}
		ids[i] = id
	}
	results := h.lifecycleService.BulkCancel(c.Request.Context(), getScopeFromContext(c), ids, req.Reason, req.CancelledBy)
	c.JSON(http.StatusOK, results)
}

// RescheduleSession godoc
// @Summary Reschedule a session
// @Description Only sessions that have not started can be moved.
// @Tags Session Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Session ObjectID Hex"
// @Param request body RescheduleRequest true "New time"
// @Success 200 {object} domain.Session
// @Router /sessions/{id}/reschedule [put]
func (h *SessionHandler) RescheduleSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	session, err := h.lifecycleService.Reschedule(c.Request.Context(), getScopeFromContext(c), id, req.ScheduledAt, req.DurationMinutes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PurgeSession godoc
// @Summary Permanently delete a session
// @Tags Session Lifecycle
// @Security BearerAuth
// @Param id path string true "Session ObjectID Hex"
// @Success 204 "Deleted"
// @Router /sessions/{id} [delete]
func (h *SessionHandler) PurgeSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.lifecycleService.Purge(c.Request.Context(), getScopeFromContext(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// parseQueryTime accepts an RFC3339 instant or a bare date, read as midnight UTC.
func parseQueryTime(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(domain.HolidayDateFormat, s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError(field, fmt.Sprintf("cannot parse %q as a date or RFC3339 time", s))
}
