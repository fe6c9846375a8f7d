package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("validation error")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Stock domain error types
var (
	ErrInvalidNumericInput = errors.New("invalid numeric input")
	ErrConversionFailed    = errors.New("spreadsheet conversion failed")
	ErrEditLocked          = errors.New("edit lock is set")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAlreadyOrdered      = errors.New("transfer already ordered")
	ErrNotOrdered          = errors.New("transfer not ordered")
	ErrNothingToSubmit     = errors.New("nothing to submit")
	ErrUploadsDisabled     = errors.New("uploads disabled")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Stock domain constructors

// InvalidNumericInput reports a cell that could not be read as a number.
func InvalidNumericInput(raw any) *AppError {
	return &AppError{
		Err:        ErrInvalidNumericInput,
		Code:       "INVALID_NUMERIC_INPUT",
		Message:    fmt.Sprintf("invalid numeric value %q", fmt.Sprint(raw)),
		StatusCode: http.StatusBadRequest,
	}
}

func ConversionFailed(reason string) *AppError {
	return &AppError{
		Err:        ErrConversionFailed,
		Code:       "CONVERSION_FAILED",
		Message:    "the uploaded workbook could not be converted: " + reason,
		StatusCode: http.StatusBadRequest,
	}
}

func EditLocked() *AppError {
	return &AppError{
		Err:        ErrEditLocked,
		Code:       "EDIT_LOCKED",
		Message:    "Transfers are disabled as the warehouse is being maintained. Please try again later.",
		StatusCode: http.StatusLocked,
	}
}

func InsufficientStock(sku string, requested, available int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    "Not enough stock to transfer",
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"sku":       sku,
			"requested": fmt.Sprint(requested),
			"available": fmt.Sprint(available),
		},
	}
}

func AlreadyOrdered(sku string) *AppError {
	return &AppError{
		Err:        ErrAlreadyOrdered,
		Code:       "ALREADY_ORDERED",
		Message:    "This item has already been ordered and is awaiting dispatch. Cancel or complete the existing transfer first.",
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"sku": sku},
	}
}

func NotOrdered(sku string) *AppError {
	return &AppError{
		Err:        ErrNotOrdered,
		Code:       "NOT_ORDERED",
		Message:    "This transfer has not been submitted yet",
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"sku": sku},
	}
}

func NothingToSubmit() *AppError {
	return &AppError{
		Err:        ErrNothingToSubmit,
		Code:       "NOTHING_TO_SUBMIT",
		Message:    "There were no outstanding items to request!",
		StatusCode: http.StatusBadRequest,
	}
}

func UploadsDisabled() *AppError {
	return &AppError{
		Err:        ErrUploadsDisabled,
		Code:       "UPLOADS_DISABLED",
		Message:    "Spreadsheet uploads are currently disabled",
		StatusCode: http.StatusForbidden,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
