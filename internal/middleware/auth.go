package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session token issuer and audience.
const (
	TokenIssuer   = "zeroai-api"
	TokenAudience = "zeroai-client"
)

var errMissingBearer = errors.New("authorization header required")

// Authenticator validates bearer tokens signed with a shared HMAC secret.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator for the given secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// ParseToken validates a token string and returns its subject.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		if claims.Subject == "" {
			return "", errors.New("missing subject")
		}
		// Mongo-backed users carry ObjectID hex subjects.
		if len(claims.Subject) != 24 {
			return "", errors.New("invalid user ID in token")
		}
	}
	return claims.Subject, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", errMissingBearer
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// AuthRequired rejects requests without a valid bearer token and stores the subject in Locals("userID").
func (a *Authenticator) AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHORIZED",
		})
	}

	userID, err := a.ParseToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHORIZED",
		})
	}

	setUser(c, userID)
	return c.Next()
}

// OptionalAuth stores the bearer subject when a valid token is present and never rejects.
func (a *Authenticator) OptionalAuth(c *fiber.Ctx) error {
	if tokenString, err := bearerToken(c); err == nil {
		if userID, err := a.ParseToken(tokenString); err == nil {
			setUser(c, userID)
		}
	}
	return c.Next()
}

// setUser exposes the subject to handlers and to context-aware logging.
func setUser(c *fiber.Ctx, userID string) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
