package service

import (
	"context"
	"strings"
	"time"

	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/repository"
	"zeroai/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of a session token.
const TokenTTL = 24 * time.Hour

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthService registers accounts and issues session tokens.
type AuthService struct {
	userRepo   repository.UserRepository
	secret     []byte
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		secret:     []byte(jwtSecret),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates an account. An email can only be registered once.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateEmailError()
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   string(hashed),
		Followers:  []string{},
		Followings: []string{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns the user with a signed session token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", models.NewUserNotFoundError(in.Email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, "", models.NewAuthenticationFailure()
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	user.Normalize()
	return user, token, nil
}

// GenerateToken signs an HS256 token for userID.
func (s *AuthService) GenerateToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    middleware.TokenIssuer,
		Audience:  jwt.ClaimStrings{middleware.TokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
