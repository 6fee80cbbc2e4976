package api

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/service"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextCoachScopeKey = "coachScope"

	// LegacyCoachHeader carries a bare coach id from callers that predate tokens.
	LegacyCoachHeader = "X-Coach-Id"
)

// jwtClaims defines the structure we expect in the JWT payload.
// Mirroring the structure used in authService.generateJWT
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ScopeMiddleware resolves the calling coach and stores the CoachScope in the
// context. A bearer token wins over the legacy header. Requests carrying
// neither proceed unscoped, as do legacy ids that do not resolve. A bearer
// token that does not validate, or names no active coach, is rejected.
func ScopeMiddleware(jwtSecret string, resolver service.ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := strings.TrimSpace(c.GetHeader(LegacyCoachHeader))
		tokenAuthenticated := false

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}
			claims, err := parseToken(parts[1], jwtSecret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					abortWithError(c, http.StatusUnauthorized, "Token has expired")
				} else {
					abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
				}
				return
			}
			if claims.Role != domain.RoleCoach {
				abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", claims.Role))
				return
			}
			callerID = claims.UserID
			tokenAuthenticated = true
		}

		scope, err := resolver.ResolveCoachScope(c.Request.Context(), callerID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		// A signed token for an unknown or deactivated coach must not fall
		// back to unscoped visibility.
		if tokenAuthenticated && !scope.IsScoped() {
			abortWithError(c, http.StatusUnauthorized, "Coach account is inactive or does not exist")
			return
		}

		c.Set(ContextCoachScopeKey, scope)
		c.Next()
	}
}

func parseToken(tokenString, jwtSecret string) (*jwtClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid token or missing claims")
	}
	return claims, nil
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		abortWithError(c, http.StatusNotFound, err.Error())
	case domain.IsConflict(err), errors.Is(err, service.ErrCoachAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// Helper function to get the coach scope from context (used by handlers).
// A missing scope means the middleware did not run, which is treated as unscoped.
func getScopeFromContext(c *gin.Context) service.CoachScope {
	raw, exists := c.Get(ContextCoachScopeKey)
	if !exists {
		return service.Unscoped()
	}
	scope, ok := raw.(service.CoachScope)
	if !ok {
		return service.Unscoped()
	}
	return scope
}

// Helper to parse an ObjectID path parameter; aborts with 400 when malformed.
func idParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format.", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseOptionalID parses a hex id from a request body; empty yields nil.
func parseOptionalID(field, hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be a 24-character hex ObjectID")
	}
	return &id, nil
}
