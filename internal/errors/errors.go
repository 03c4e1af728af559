package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

var (
	// ErrBadCredentials is returned when a username or password does not match.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown or expired.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUnauthorized is returned when a request carries no usable access token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks the role a route requires.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrContactNotFound is returned when a contact does not exist or is not visible to the caller.
	ErrContactNotFound = errors.New("contact not found")
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username taken")
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("email taken")
	// ErrDuplicateContactEmail is returned when another contact uses the email.
	ErrDuplicateContactEmail = errors.New("duplicate contact email")
	// ErrDuplicateContactPhone is returned when another contact uses the phone number.
	ErrDuplicateContactPhone = errors.New("duplicate contact phone")
	// ErrSelfEditForbidden is returned when an admin tries to edit their own account.
	ErrSelfEditForbidden = errors.New("self edit forbidden")
	// ErrBadRequest is returned for malformed requests.
	ErrBadRequest = errors.New("bad request")
	// ErrValidation is the kind behind every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// defaultMessages holds the client-facing message of each kind.
var defaultMessages = map[error]string{
	ErrBadCredentials:        "Invalid username or password",
	ErrInvalidRefreshToken:   "Invalid or expired refresh token",
	ErrUnauthorized:          "Unauthorized: Full authentication is required to access this resource",
	ErrForbidden:             "You don't have permission to access this resource",
	ErrUsernameTaken:         "Username is already taken",
	ErrEmailTaken:            "Email is already in use",
	ErrDuplicateContactEmail: "Contact with this email already exists",
	ErrDuplicateContactPhone: "Contact with this phone number already exists",
	ErrSelfEditForbidden:     "You cannot edit your own user account.",
	ErrBadRequest:            "Malformed request",
}

// Error attaches a client-facing message to a failure kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// WithMessage returns an error of the given kind carrying message.
func WithMessage(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Unauthorized returns an ErrUnauthorized carrying reason.
func Unauthorized(reason string) error {
	return WithMessage(ErrUnauthorized, "Unauthorized: "+reason)
}

// BadRequest returns an ErrBadRequest carrying message.
func BadRequest(message string) error {
	return WithMessage(ErrBadRequest, message)
}

// NotFoundError identifies the missing entity and how it was looked up.
type NotFoundError struct {
	Kind     error
	Resource string
	Field    string
	Value    interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with %s: '%v'", e.Resource, e.Field, e.Value)
}

func (e *NotFoundError) Unwrap() error {
	return e.Kind
}

// UserNotFound builds an ErrUserNotFound for the given lookup.
func UserNotFound(field string, value interface{}) error {
	return &NotFoundError{Kind: ErrUserNotFound, Resource: "User", Field: field, Value: value}
}

// ContactNotFound builds an ErrContactNotFound for the given lookup.
func ContactNotFound(field string, value interface{}) error {
	return &NotFoundError{Kind: ErrContactNotFound, Resource: "Contact", Field: field, Value: value}
}

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	// Fields is set for validation failures, which are rendered as a field map.
	Fields map[string]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse(path string, now time.Time) ErrorResponse {
	return ErrorResponse{
		Timestamp: now,
		Status:    e.StatusCode,
		Error:     http.StatusText(e.StatusCode),
		Message:   e.Message,
		Path:      path,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: validation.Error(), Fields: validation.Fields}
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return NewHTTPError(http.StatusNotFound, notFound.Error())
	}

	switch {
	case errors.Is(err, ErrBadCredentials),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, messageOf(err))
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, messageOf(err))
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrContactNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrDuplicateContactEmail),
		errors.Is(err, ErrDuplicateContactPhone),
		errors.Is(err, ErrSelfEditForbidden),
		errors.Is(err, ErrBadRequest):
		return NewHTTPError(http.StatusBadRequest, messageOf(err))
	default:
		return NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// messageOf prefers an explicit message and falls back to the kind's default.
func messageOf(err error) string {
	var withMessage *Error
	if errors.As(err, &withMessage) {
		return withMessage.Message
	}
	for kind, msg := range defaultMessages {
		if errors.Is(err, kind) {
			return msg
		}
	}
	return err.Error()
}
