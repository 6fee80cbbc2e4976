// internal/api/client_handler.go
package api

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService    service.ClientService
	analyticsService service.AnalyticsService
}

func NewClientHandler(clientService service.ClientService, analyticsService service.AnalyticsService) *ClientHandler {
	return &ClientHandler{clientService: clientService, analyticsService: analyticsService}
}

// --- DTOs ---

type CreateClientRequest struct {
	Name    string               `json:"name" binding:"required"`
	Email   string               `json:"email" binding:"omitempty,email"`
	Phone   string               `json:"phone"`
	Profile domain.ClientProfile `json:"profile"`
	CoachID string               `json:"coachId"` // honoured for unscoped callers only
}

type RecordProgressRequest struct {
	ClientID  string `json:"clientId" binding:"required"`
	SessionID string `json:"sessionId"`
	EntryType string `json:"entryType" binding:"required"`
	Notes     string `json:"notes"`
}

type RequestUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// --- Clients ---

// CreateClient godoc
// @Summary Create a client
// @Tags Clients
// @Accept json
// @Produce json
// @Param client body CreateClientRequest true "Client"
// @Success 201 {object} domain.Client
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := parseOptionalID("coachId", req.CoachID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), getScopeFromContext(c), service.CreateClientInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Profile: req.Profile,
		CoachID: coachID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// ListClients godoc
// @Summary List clients
// @Description Lists the calling coach's live clients; unscoped callers see every coach's.
// @Tags Clients
// @Produce json
// @Success 200 {array} domain.Client
// @Router /clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientService.ListClients(c.Request.Context(), getScopeFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GetClient godoc
// @Summary Get a client
// @Tags Clients
// @Produce json
// @Param id path string true "Client ObjectID Hex"
// @Success 200 {object} domain.Client
// @Failure 404 {object} gin.H "Client not found"
// @Router /clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetClient(c.Request.Context(), getScopeFromContext(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient godoc
// @Summary Soft-delete a client
// @Tags Clients
// @Param id path string true "Client ObjectID Hex"
// @Success 204 "Deleted"
// @Router /clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.clientService.DeleteClient(c.Request.Context(), getScopeFromContext(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Progress ---

// RecordProgress godoc
// @Summary Record a progress check
// @Tags Progress
// @Accept json
// @Produce json
// @Param record body RecordProgressRequest true "Progress check"
// @Success 201 {object} domain.ProgressRecord
// @Router /progress [post]
func (h *ClientHandler) RecordProgress(c *gin.Context) {
	var req RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, err := parseOptionalID("clientId", req.ClientID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	sessionID, err := parseOptionalID("sessionId", req.SessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	record, err := h.clientService.RecordProgress(c.Request.Context(), getScopeFromContext(c), service.RecordProgressInput{
		ClientID:  *clientID,
		SessionID: sessionID,
		EntryType: req.EntryType,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListProgress godoc
// @Summary List a client's progress checks
// @Tags Progress
// @Produce json
// @Param clientId path string true "Client ObjectID Hex"
// @Success 200 {array} domain.ProgressRecord
// @Router /progress/client/{clientId} [get]
func (h *ClientHandler) ListProgress(c *gin.Context) {
	clientID, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	records, err := h.clientService.ListProgress(c.Request.Context(), getScopeFromContext(c), clientID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// RequestAttachmentUploadURL godoc
// @Summary Get a presigned upload URL for a progress attachment
// @Description Upload the file with PUT to the returned URL. A previous attachment is replaced.
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Progress record ObjectID Hex"
// @Param request body RequestUploadURLRequest true "Content type"
// @Success 200 {object} service.UploadURLResponse
// @Router /progress/{id}/attachment-url [post]
func (h *ClientHandler) RequestAttachmentUploadURL(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RequestUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	resp, err := h.clientService.RequestProgressAttachmentURL(c.Request.Context(), getScopeFromContext(c), id, req.ContentType)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAttachmentDownloadURL godoc
// @Summary Get a presigned download URL for a progress attachment
// @Tags Progress
// @Produce json
// @Param id path string true "Progress record ObjectID Hex"
// @Success 200 {object} DownloadURLResponse
// @Failure 404 {object} gin.H "No attachment"
// @Router /progress/{id}/attachment-url [get]
func (h *ClientHandler) GetAttachmentDownloadURL(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	url, err := h.clientService.GetProgressAttachmentURL(c.Request.Context(), getScopeFromContext(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

// GetConsistency godoc
// @Summary Client consistency report
// @Description Attendance rate over the window and whether a progress check is due.
// @Tags Progress
// @Produce json
// @Param clientId path string true "Client ObjectID Hex"
// @Param days query int false "Window in days"
// @Success 200 {object} service.ConsistencyReport
// @Router /progress/consistency/{clientId} [get]
func (h *ClientHandler) GetConsistency(c *gin.Context) {
	clientID, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	days := 0
	if s := c.Query("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "days must be a positive integer.")
			return
		}
		days = n
	}
	report, err := h.analyticsService.ComputeConsistency(c.Request.Context(), getScopeFromContext(c), clientID, days)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
