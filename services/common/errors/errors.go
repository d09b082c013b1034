package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of tmpl carrying err. Templates are shared values and
// must never be mutated in place.
func Wrap(tmpl *Error, err error) *Error {
	return New(tmpl.Code, tmpl.Message, err)
}

// As reports the *Error in err's chain, falling back to ErrInternalServer.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// Respond writes err as {"error": message} with its status code.
func Respond(c *gin.Context, err error) {
	appErr := As(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Webhook authentication
var (
	ErrMissingSignature     = New(http.StatusBadRequest, "Missing Stripe-Signature header", nil)
	ErrInvalidSignature     = New(http.StatusBadRequest, "Invalid webhook signature", nil)
	ErrWebhookNotConfigured = New(http.StatusInternalServerError, "Webhook secret not configured", nil)
)

// Reconciliation
var (
	ErrDeliveryInProgress = New(http.StatusConflict, "Session is being processed by another delivery", nil)
	ErrReconcileFailed    = New(http.StatusInternalServerError, "Failed to process checkout session", nil)
)

// Business logic error types
var (
	ErrValidation        = New(http.StatusBadRequest, "Validation error", nil)
	ErrInsufficientStock = New(http.StatusConflict, "Insufficient stock", nil)
	ErrTrainingFull      = New(http.StatusConflict, "Training is fully booked", nil)
	ErrInvalidTransition = New(http.StatusUnprocessableEntity, "Status transition not allowed", nil)
)
