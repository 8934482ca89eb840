package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = apperr.Unauthorized("unauthorized")
	ErrNotFound       = apperr.NotFound("not_found")
	ErrInvalidRequest = apperr.Validation("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:            http.StatusNotFound,
	apperr.KindValidation:          http.StatusBadRequest,
	apperr.KindConflict:            http.StatusConflict,
	apperr.KindDomainRuleViolation: http.StatusUnprocessableEntity,
	apperr.KindUnauthorized:        http.StatusUnauthorized,
	apperr.KindForbidden:           http.StatusForbidden,
}

var kindMessage = map[apperr.Kind]string{
	apperr.KindNotFound:            "not found",
	apperr.KindValidation:          "validation error",
	apperr.KindConflict:            "conflict",
	apperr.KindDomainRuleViolation: "request violates a business rule",
	apperr.KindUnauthorized:        "unauthorized",
	apperr.KindForbidden:           "forbidden",
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperr.KindValidation),
			Code:    vErr.Errors[0].Code,
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if e, ok := apperr.As(err); ok {
		return kindStatus[e.Kind], errorPayload{
			Type:    string(e.Kind),
			Code:    e.Code,
			Message: kindMessage[e.Kind],
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, errorPayload{
			Type:    string(apperr.KindNotFound),
			Code:    "not_found",
			Message: "not found",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Code:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the request logger the same type/code pair the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil && len(vErr.Errors) > 0 {
		return vErr
	}
	return nil
}
