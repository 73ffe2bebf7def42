// Package errors centralizes the service's error vocabulary: typed
// application errors built on errbuilder, plus the Gin middleware that turns
// them into structured responses.
package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory classifies an error for logging and response shaping.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryRateLimit  ErrorCategory = "rate_limit"
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryData       ErrorCategory = "reference_data"
	CategoryAuth       ErrorCategory = "auth"
	CategoryStorage    ErrorCategory = "storage"
	CategoryInternal   ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the HTTP mapping and request
// context the middleware needs.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.ErrBuilder.Msg)
}

func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from an errbuilder with explicit mapping.
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewValidationError reports a malformed or out-of-range request.
func NewValidationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewValidationErrorWithMap reports several field-level validation issues at
// once.
func NewValidationErrorWithMap(fieldErrors map[string]string) *AppError {
	errMap := errbuilder.ErrorMap{}
	for field, message := range fieldErrors {
		errMap.Set(field, errors.New(message))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Invalid request").
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewRateLimitError reports an exhausted rate budget.
func NewRateLimitError(retryAfter string) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewDataError reports unusable reference data, typically a pricing CSV that
// failed to parse on reload. The active table is unaffected, so the caller
// gets a 422 rather than a 500.
func NewDataError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryData, http.StatusUnprocessableEntity)
}

// NewAuthError reports a missing or invalid admin token.
func NewAuthError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnauthenticated).
		WithMsg(message)
	return NewAppError(builder, CategoryAuth, http.StatusUnauthorized)
}

// NewStorageError reports an estimate-history persistence failure.
func NewStorageError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryStorage, http.StatusServiceUnavailable)
}

// NewTimeoutError reports a request that exceeded its deadline.
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewInternalError reports an unexpected failure. Stack traces are attached
// only outside release mode.
func NewInternalError(message string, cause error) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errMap))
	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
	if gin.Mode() != gin.ReleaseMode {
		appErr.StackTrace = captureStackTrace()
	}
	return appErr
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler converts errors attached to the Gin context into structured
// JSON responses. Handlers report failures with c.Error and return.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		appErr.RequestID = c.GetString("request_id")
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	}
}

// RecoveryHandler turns panics into structured 500 responses.
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()
		appErr.RequestID = c.GetString("request_id")

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError normalizes any error into an AppError.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs with a level matched to the category: client mistakes warn,
// infrastructure problems error.
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", err.RequestID,
	)

	msg := err.ErrBuilder.Msg
	switch err.Category {
	case CategoryValidation, CategoryRateLimit, CategoryAuth, CategoryData:
		logEntry.Warn(msg)
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(msg, "cause", cause)
		} else {
			logEntry.Error(msg)
		}
	}

	if err.StackTrace != "" && gin.Mode() != gin.ReleaseMode {
		logEntry.Debug("stack trace", "trace", err.StackTrace)
	}
}

// WrapError adds context while keeping the original error in the chain.
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// SafeClose closes a resource and logs rather than propagates the error.
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource", "resource", resourceName, "error", err)
	}
}
