package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/fulfillment-service/pkg/errors"
	"github.com/warehouse-ops/fulfillment-service/pkg/tenant"
)

const (
	HeaderAccountID   = "X-Account-ID"
	HeaderWarehouseID = "X-Warehouse-ID"
	HeaderUserID      = "X-User-ID"
)

const tenantContextKey = "tenantContext"

// TenantAuthConfig controls how the account headers are enforced.
type TenantAuthConfig struct {
	// Required rejects requests without an account header.
	Required bool

	// DefaultAccountID substitutes for a missing header when Required is
	// false. Used by local development setups only.
	DefaultAccountID string
}

func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{Required: true}
}

// TenantAuth reads the account headers into a tenant.Context and plants it
// in both the gin context and the request's context.Context. Every
// stock-touching endpoint runs behind it.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		tc := &tenant.Context{
			AccountID:   c.GetHeader(HeaderAccountID),
			WarehouseID: c.GetHeader(HeaderWarehouseID),
			UserID:      c.GetHeader(HeaderUserID),
		}

		if tc.AccountID == "" {
			if config.Required {
				abortMissingAccount(c)
				return
			}
			tc.AccountID = config.DefaultAccountID
		}

		c.Request = c.Request.WithContext(tenant.ToContext(c.Request.Context(), tc))
		c.Set(tenantContextKey, tc)
		c.Next()
	}
}

// GetTenantContext returns the tenant context set by TenantAuth, or an
// empty one when the middleware did not run.
func GetTenantContext(c *gin.Context) *tenant.Context {
	if val, exists := c.Get(tenantContextKey); exists {
		if tc, ok := val.(*tenant.Context); ok {
			return tc
		}
	}
	return &tenant.Context{}
}

// AccountOnly verifies that the requesting account owns the resource the
// route targets. getResourceAccountID resolves the owner from the request.
func AccountOnly(getResourceAccountID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc.AccountID == "" {
			abortMissingAccount(c)
			return
		}

		if owner := getResourceAccountID(c); owner != "" && owner != tc.AccountID {
			AbortWithAppError(c, &errors.AppError{
				Code:       "UNAUTHORIZED_ACCOUNT_ACCESS",
				Message:    "Access to this resource is not authorized",
				HTTPStatus: http.StatusForbidden,
			})
			return
		}
		c.Next()
	}
}

func abortMissingAccount(c *gin.Context) {
	AbortWithAppError(c, &errors.AppError{
		Code:       "MISSING_ACCOUNT_CONTEXT",
		Message:    "Account context is required",
		HTTPStatus: http.StatusUnauthorized,
	})
}
