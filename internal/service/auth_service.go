package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrCoachAlreadyExists   = errors.New("coach with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// RegisterCoachInput holds the fields of a new coach account.
type RegisterCoachInput struct {
	Name            string
	Email           string
	Password        string
	Phone           string
	Specialization  string
	Bio             string
	ExperienceYears int
}

// AuthService owns coach accounts. Credential management beyond
// register/login/deactivate lives outside this service.
type AuthService interface {
	RegisterCoach(ctx context.Context, in RegisterCoachInput) (*domain.Coach, error)
	Login(ctx context.Context, email, password string) (token string, coach *domain.Coach, err error)
	DeactivateCoach(ctx context.Context, scope CoachScope, coachID primitive.ObjectID) error
	GetJWTSecret() string
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	coachRepo     repository.CoachRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(coachRepo repository.CoachRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		coachRepo:     coachRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// RegisterCoach creates an active coach account.
func (s *authService) RegisterCoach(ctx context.Context, in RegisterCoachInput) (*domain.Coach, error) {
	// 1. Basic Input Validation
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, domain.NewValidationError("", "name, email and password cannot be empty")
	}

	// 2. Check if coach already exists
	_, err := s.coachRepo.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrCoachAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NewStorageError("get coach", err)
	}

	// 3. Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	// 4. Save
	coach := &domain.Coach{
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		PasswordHash:    string(hashedPassword),
		Specialization:  in.Specialization,
		Bio:             in.Bio,
		ExperienceYears: in.ExperienceYears,
		IsActive:        true,
	}
	coachID, err := s.coachRepo.Create(ctx, coach)
	if err != nil {
		// The unique index catches a concurrent registration of the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCoachAlreadyExists
		}
		return nil, domain.NewStorageError("create coach", err)
	}
	coach.ID = coachID

	// Remove password hash before returning
	coach.PasswordHash = ""
	return coach, nil
}

// Login checks credentials and issues a JWT. Deactivated coaches cannot log in.
func (s *authService) Login(ctx context.Context, email, password string) (token string, coach *domain.Coach, err error) {
	// 1. Basic Input Validation
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		err = domain.NewValidationError("", "email and password cannot be empty")
		return
	}

	// 2. Fetch coach by email
	coach, err = s.coachRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, domain.NewStorageError("get coach", err)
	}

	// 3. Compare the provided password with the stored hash
	if err = bcrypt.CompareHashAndPassword([]byte(coach.PasswordHash), []byte(password)); err != nil || !coach.IsActive {
		return "", nil, ErrAuthenticationFailed
	}

	// 4. Authentication successful - Generate JWT
	token, err = s.generateJWT(coach)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	coach.PasswordHash = ""
	return token, coach, nil
}

// DeactivateCoach is self-service: a coach can only deactivate their own account.
func (s *authService) DeactivateCoach(ctx context.Context, scope CoachScope, coachID primitive.ObjectID) error {
	self, ok := scope.CoachID()
	if !ok || self != coachID {
		return domain.NewNotFoundError("coach", coachID.Hex())
	}
	if err := s.coachRepo.SetActive(ctx, coachID, false); err != nil {
		return translateRepoError("deactivate coach", "coach", coachID, err)
	}
	return nil
}

// --- JWT Helper ---

// Claims defines the structure of the JWT payload.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given coach.
func (s *authService) generateJWT(coach *domain.Coach) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: coach.ID.Hex(),
		Role:   domain.RoleCoach,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   coach.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "coach-scheduler",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
