package api

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/service" // Import service package
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	Phone           string `json:"phone"`
	Specialization  string `json:"specialization"`
	Bio             string `json:"bio"`
	ExperienceYears int    `json:"experienceYears" binding:"gte=0"`
}

// CoachResponse excludes sensitive info like password hash
type CoachResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Specialization  string    `json:"specialization,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	ExperienceYears int       `json:"experienceYears,omitempty"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	Coach CoachResponse `json:"coach"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new coach
// @Description Creates a new, active coach account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param coach body RegisterRequest true "Registration details"
// @Success 201 {object} CoachResponse "Coach created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	// Bind JSON request body and perform validation based on `binding` tags
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	coach, err := h.authService.RegisterCoach(c.Request.Context(), service.RegisterCoachInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Phone:           req.Phone,
		Specialization:  req.Specialization,
		Bio:             req.Bio,
		ExperienceYears: req.ExperienceYears,
	})
	if err != nil {
		if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapCoachToResponse(coach))
}

// Login godoc
// @Summary Log in a coach
// @Description Authenticates a coach and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials or deactivated)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, coach, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		Coach: MapCoachToResponse(coach),
	})
}

// Deactivate godoc
// @Summary Deactivate my coach account
// @Description The calling coach's account is deactivated; its tokens stop resolving to a scope.
// @Tags Auth
// @Security BearerAuth
// @Success 204 "Deactivated"
// @Failure 400 {object} gin.H "No identified coach"
// @Router /auth/deactivate [post]
func (h *AuthHandler) Deactivate(c *gin.Context) {
	scope := getScopeFromContext(c)
	coachID, ok := scope.CoachID()
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Deactivation requires an identified coach.")
		return
	}
	if err := h.authService.DeactivateCoach(c.Request.Context(), scope, coachID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MapCoachToResponse converts a domain Coach to a CoachResponse DTO.
func MapCoachToResponse(coach *domain.Coach) CoachResponse {
	if coach == nil {
		return CoachResponse{}
	}
	return CoachResponse{
		ID:              coach.ID.Hex(),
		Name:            coach.Name,
		Email:           coach.Email,
		Phone:           coach.Phone,
		Specialization:  coach.Specialization,
		Bio:             coach.Bio,
		ExperienceYears: coach.ExperienceYears,
		IsActive:        coach.IsActive,
		CreatedAt:       coach.CreatedAt,
	}
}
