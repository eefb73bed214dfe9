package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/warehouse-ops/fulfillment-service/pkg/errors"
)

// ValidationError describes a single failed field constraint in an API response.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// BindAndValidate decodes the JSON body into obj and runs binding validation.
// Field-level failures are collected into a single validation error so the
// caller can surface them all at once instead of one per round trip.
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		return toAppError(err, "invalid request body")
	}
	return nil
}

// BindQueryAndValidate decodes query parameters into obj and validates them.
func BindQueryAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		return toAppError(err, "invalid query parameters")
	}
	return nil
}

// BindURIAndValidate decodes path parameters into obj.
func BindURIAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindUri(obj); err != nil {
		return errors.ErrBadRequest(fmt.Sprintf("invalid URI parameters: %v", err))
	}
	return nil
}

// ValidateStruct validates obj outside of a binding context, for payloads
// that are assembled in code rather than decoded from a request.
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := validator.New().Struct(obj); err != nil {
		return toAppError(err, "validation error")
	}
	return nil
}

func toAppError(err error, fallback string) *errors.AppError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrBadRequest(fmt.Sprintf("%s: %v", fallback, err))
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = describe(fe)
	}
	return errors.ErrValidationWithFields("validation failed", fields)
}

// fieldName lowercases the struct field's first letter to match the JSON
// casing used across the API.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// simpleMessages covers tags whose message needs only the field name;
// paramMessages covers tags whose message also embeds the tag parameter.
var simpleMessages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"url":      "%s must be a valid URL",
	"uuid":     "%s must be a valid UUID",
	"alphanum": "%s must contain only letters and numbers",
	"numeric":  "%s must be a number",
}

var paramMessages = map[string]string{
	"oneof":    "%s must be one of: %s",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be greater than or equal to %s",
	"lt":       "%s must be less than %s",
	"lte":      "%s must be less than or equal to %s",
	"len":      "%s must be exactly %s characters",
	"datetime": "%s must be a valid datetime in format %s",
}

func describe(fe validator.FieldError) string {
	name := fieldName(fe)
	switch fe.Tag() {
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", name, bound, fe.Param())
		}
		return fmt.Sprintf("%s must be %s %s", name, bound, fe.Param())
	}
	if msg, ok := simpleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, name)
	}
	if msg, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, name, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", name)
}
