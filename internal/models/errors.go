package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to API clients.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodePostNotFound          = "POST_NOT_FOUND"
	CodeAIContentDetected     = "AI_CONTENT_DETECTED"
	CodeClassifierFailure     = "CLASSIFIER_FAILURE"
	CodeMediaHostFailure      = "MEDIA_HOST_FAILURE"
	CodeDuplicateEmail        = "DUPLICATE_EMAIL"
	CodeAuthenticationFailure = "AUTHENTICATION_FAILURE"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUserNotFoundError(id interface{}) *AppError {
	return &AppError{
		Code:    CodeUserNotFound,
		Message: fmt.Sprintf("User %v not found", id),
	}
}

func NewPostNotFoundError(id interface{}) *AppError {
	return &AppError{
		Code:    CodePostNotFound,
		Message: fmt.Sprintf("Post %v not found", id),
	}
}

func NewAIContentDetectedError(aiScore, humanScore float64) *AppError {
	return &AppError{
		Code:    CodeAIContentDetected,
		Message: fmt.Sprintf("AI content detected (ai=%.4f, human=%.4f)", aiScore, humanScore),
	}
}

func NewClassifierFailure(err error) *AppError {
	return &AppError{
		Code:    CodeClassifierFailure,
		Message: "Content classifier unavailable",
		Err:     err,
	}
}

func NewMediaHostFailure(err error) *AppError {
	return &AppError{
		Code:    CodeMediaHostFailure,
		Message: "Image upload failed",
		Err:     err,
	}
}

func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:    CodeDuplicateEmail,
		Message: "Email already registered",
	}
}

func NewAuthenticationFailure() *AppError {
	return &AppError{
		Code:    CodeAuthenticationFailure,
		Message: "Wrong password",
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Upstream details are useful for debugging; internal ones stay in logs.
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
