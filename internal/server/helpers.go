package server

import (
	"errors"
	"log/slog"
	"strings"

	"zeroai/internal/middleware"
	"zeroai/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps an AppError code to its HTTP status.
func statusForError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation, models.CodeDuplicateEmail, models.CodeAuthenticationFailure:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeUserNotFound, models.CodePostNotFound:
		return fiber.StatusNotFound
	case models.CodeAIContentDetected:
		return fiber.StatusNotAcceptable
	case models.CodeClassifierFailure, models.CodeMediaHostFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// codeForStatus labels framework errors (body too large, unknown route) with an AppError code.
func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case status >= 400 && status < 500:
		return models.CodeValidation
	default:
		return models.CodeInternal
	}
}

// respondError renders err with the status its code maps to. Errors without a code become INTERNAL_ERROR.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("code", models.ErrorCode(err)), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// actingUserID prefers the bearer token subject and falls back to the supplied id.
func actingUserID(c *fiber.Ctx, supplied string) string {
	if uid, ok := c.Locals("userID").(string); ok && uid != "" {
		return uid
	}
	return strings.TrimSpace(supplied)
}
