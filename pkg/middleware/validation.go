package middleware

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/warehouse-ops/fulfillment-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator configures the shared validator and gin's binding engine to
// report JSON field names in validation errors instead of Go struct names.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		useJSONFieldNames(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			useJSONFieldNames(v)
		}
	})
	return validate
}

// GetValidator returns the shared validator, initializing it on first use.
func GetValidator() *validator.Validate {
	if validate == nil {
		return InitValidator()
	}
	return validate
}

func useJSONFieldNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// SanitizeString strips NUL bytes and surrounding whitespace. Mongo treats
// embedded NULs as corrupt keys, so they must never reach the storage layer.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer cleans every query parameter before handlers read them.
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		changed := false
		for key, values := range query {
			for i, v := range values {
				if clean := SanitizeString(v); clean != v {
					values[i] = clean
					changed = true
				}
			}
			query[key] = values
		}
		if changed {
			c.Request.URL.RawQuery = query.Encode()
		}
		c.Next()
	}
}

// ContentType rejects mutating requests whose body is not JSON. Requests
// with an empty body pass through, since several transition endpoints take
// no payload.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength > 0 && !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: http.StatusUnsupportedMediaType,
				})
				return
			}
		}
		c.Next()
	}
}
