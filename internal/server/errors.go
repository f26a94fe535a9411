package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/invoicely/internal/apperror"
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
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware renders the last handler error unless the handler
// already wrote a response.
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
		Errors: []ValidationError{{Field: field, Code: code, Message: message}},
	}
}

// bindError converts gin binding failures into field level errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    "invalid_" + field,
			Message: validationMessage(fe),
		})
	}
	return out
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json or form tag.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return "invalid value"
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperror.KindValidation),
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: string(apperror.KindNotFound), Message: "not found"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "service unavailable"}
	}

	appErr, ok := apperror.As(err)
	if !ok {
		return http.StatusInternalServerError, errorPayload{Type: string(apperror.KindInternal), Message: "internal server error"}
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		return http.StatusBadRequest, errorPayload{
			Type:    string(appErr.Kind),
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   appErr.Field,
				Code:    appErr.Code,
				Message: strings.ReplaceAll(appErr.Code, "_", " "),
			}},
		}
	case apperror.KindNotFound:
		return http.StatusNotFound, errorPayload{Type: string(appErr.Kind), Message: strings.ReplaceAll(appErr.Code, "_", " ")}
	case apperror.KindConflict:
		return http.StatusConflict, errorPayload{
			Type:    string(appErr.Kind),
			Message: "conflict",
			Errors: []ValidationError{{
				Field:   appErr.Field,
				Code:    appErr.Code,
				Message: strings.ReplaceAll(appErr.Code, "_", " "),
			}},
		}
	default:
		return http.StatusInternalServerError, errorPayload{Type: string(appErr.Kind), Message: "internal server error"}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// classifyErrorForLog feeds the request log with error_type and error_code.
func classifyErrorForLog(err error) (string, string) {
	if vErr := asValidationErrors(err); vErr != nil {
		if len(vErr.Errors) > 0 {
			return string(apperror.KindValidation), vErr.Errors[0].Code
		}
		return string(apperror.KindValidation), "invalid_request"
	}
	if appErr, ok := apperror.As(err); ok {
		code := appErr.Code
		if code == "" {
			code = string(appErr.Kind)
		}
		return string(appErr.Kind), code
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited", "rate_limited"
	case errors.Is(err, ErrNotFound):
		return string(apperror.KindNotFound), "not_found"
	}
	return string(apperror.KindInternal), "internal_error"
}
