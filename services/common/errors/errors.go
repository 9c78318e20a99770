package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Detail is shown to clients alongside Message. Err never is.
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code and message, so a wrapped copy of a
// sentinel still satisfies errors.Is(err, Sentinel).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of sentinel carrying cause. The sentinel itself is never
// mutated.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Err: cause}
}

// WithMessage returns a copy of sentinel whose cause is a plain message.
func WithMessage(sentinel *Error, format string, args ...any) *Error {
	return Wrap(sentinel, fmt.Errorf(format, args...))
}

// WithDetail returns a copy of sentinel with a client-facing detail, for
// example which request field was invalid.
func WithDetail(sentinel *Error, format string, args ...any) *Error {
	detail := fmt.Sprintf(format, args...)
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Detail: detail, Err: stderrors.New(detail)}
}

// From converts any error into an *Error, defaulting to ErrInternalServer.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Validation error types
var (
	ErrInvalidInput    = New(http.StatusBadRequest, "Invalid input", nil)
	ErrInvalidQuantity = New(http.StatusBadRequest, "Quantity must be at least 1", nil)
)

// Authentication error types
var (
	ErrInvalidToken = New(http.StatusUnauthorized, "Invalid token", nil)
)

// Cart error types
var (
	ErrItemNotInCart   = New(http.StatusNotFound, "Item not in cart", nil)
	ErrRequestInFlight = New(http.StatusConflict, "A request for this item is already in progress", nil)
	ErrSessionClosed   = New(http.StatusGone, "Cart session closed", nil)
)

// Upstream error types
var (
	ErrMalformedResponse   = New(http.StatusBadGateway, "Malformed cart response", nil)
	ErrUpstreamUnavailable = New(http.StatusBadGateway, "Cart service unavailable", nil)
	ErrUpstreamRejected    = New(http.StatusUnprocessableEntity, "Cart service rejected the request", nil)
)

// HandleError writes err as a JSON error response. The wrapped cause is
// attached to the gin context for request logging and kept out of the body.
func HandleError(c *gin.Context, err error) {
	appErr := From(err)
	body := gin.H{"code": appErr.Code, "message": appErr.Message}
	if appErr.Detail != "" {
		body["detail"] = appErr.Detail
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			HandleError(c, c.Errors.Last().Err)
		}
	}
}
