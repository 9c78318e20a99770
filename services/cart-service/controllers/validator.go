package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
)

// RequestValidator decodes request bodies and checks their validate tags.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Bind decodes the JSON body into req and validates it. Any failure is an
// ErrInvalidInput carrying a readable message.
func (rv *RequestValidator) Bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}
	if err := rv.validate.Struct(req); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			return apperrors.WithDetail(apperrors.ErrInvalidInput, "%s", describe(fields))
		}
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}
	return nil
}

func describe(fields validator.ValidationErrors) string {
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}
