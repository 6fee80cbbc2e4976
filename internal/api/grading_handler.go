package api

import (
	"alcyxob/coach-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GradingHandler struct {
	gradingService service.GradingService
}

func NewGradingHandler(gradingService service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

type GradeSessionRequest struct {
	SessionID    string  `json:"sessionId" binding:"required"`
	ClientID     string  `json:"clientId"`
	GradeValue   string  `json:"gradeValue" binding:"required"`
	NumericScore float64 `json:"numericScore" binding:"gte=0,lte=100"`
	Comments     string  `json:"comments"`
}

// GradeSession godoc
// @Summary Grade a session
// @Description Creates the grade or replaces the existing one for the session's client.
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GradeSessionRequest true "Grade"
// @Success 200 {object} domain.SessionGrade
// @Failure 400 {object} gin.H "Invalid grade, client mismatch or cancelled session"
// @Failure 404 {object} gin.H "Session not found"
// @Router /grades/session [post]
func (h *GradingHandler) GradeSession(c *gin.Context) {
	var req GradeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid sessionId format.")
		return
	}
	clientID, err := parseOptionalID("clientId", req.ClientID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	grade, err := h.gradingService.GradeSession(c.Request.Context(), getScopeFromContext(c), service.GradeSessionInput{
		SessionID:    sessionID,
		ClientID:     clientID,
		GradeValue:   req.GradeValue,
		NumericScore: req.NumericScore,
		Comments:     req.Comments,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grade)
}

// ListClientGrades godoc
// @Summary List a client's session grades
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ObjectID Hex"
// @Success 200 {array} domain.SessionGrade
// @Router /grades/client/{clientId} [get]
func (h *GradingHandler) ListClientGrades(c *gin.Context) {
	clientID, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	grades, err := h.gradingService.ListClientGrades(c.Request.Context(), getScopeFromContext(c), clientID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grades)
}
