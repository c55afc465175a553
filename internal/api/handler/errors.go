package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	pkgerrors "schedulix/backend/pkg/errors"
	"schedulix/backend/pkg/response"
)

// errorRenderer turns service errors into the response envelope.
type errorRenderer struct {
	debug bool
}

// render writes err. Classified errors keep their code and message;
// anything else becomes a generic 500.
func (r errorRenderer) render(c *gin.Context, err error) {
	_ = c.Error(err)

	e, ok := pkgerrors.As(err)
	if !ok {
		details := ""
		if r.debug {
			details = err.Error()
		}
		response.Failure(c, http.StatusInternalServerError, pkgerrors.ErrInternal.Code, pkgerrors.ErrInternal.Message, details, false)
		return
	}

	details := ""
	if r.debug && e.Err != nil {
		details = e.Err.Error()
	}
	if e.Kind == pkgerrors.KindInternal && !r.debug {
		response.Failure(c, e.HTTPStatus(), e.Code, pkgerrors.ErrInternal.Message, "", false)
		return
	}
	response.Failure(c, e.HTTPStatus(), e.Code, e.Message, details, e.Retryable())
}

// bindFailed answers a request whose body or query did not bind.
func (r errorRenderer) bindFailed(c *gin.Context, err error) {
	details := ""
	if r.debug {
		details = err.Error()
	}
	response.Failure(c, http.StatusBadRequest, pkgerrors.ErrValidation.Code, validationMessage(err), details, false)
}

// validationMessage names the offending fields without echoing input.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request parameters"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "uuid":
		return field + " must be a UUID"
	case "hhmm":
		return field + " must be in HH:MM format"
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, "YYYY-MM-DD")
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	}
	return field + " is invalid"
}
