// Package tenant scopes operations to a customer account. Every inventory
// document, shipment request and return carries the owning account, and all
// queries filter by it.
package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	accountIDKey   contextKey = "accountId"
	warehouseIDKey contextKey = "warehouseId"
	userIDKey      contextKey = "userId"
)

var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingAccountID     = errors.New("accountId is required")
)

// Context identifies who an operation runs for.
type Context struct {
	// AccountID is the customer account that owns the stock.
	AccountID string `json:"accountId"`

	// WarehouseID is the warehouse the operation runs against.
	WarehouseID string `json:"warehouseId"`

	// UserID is the back-office operator performing the action.
	UserID string `json:"userId"`
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// FromContext extracts the tenant Context; an account ID must be present.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{
		AccountID:   stringValue(ctx, accountIDKey),
		WarehouseID: stringValue(ctx, warehouseIDKey),
		UserID:      stringValue(ctx, userIDKey),
	}
	if tc.AccountID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// FromContextOptional extracts the tenant Context, returning an empty one
// when no account is set.
func FromContextOptional(ctx context.Context) *Context {
	tc, err := FromContext(ctx)
	if err != nil {
		return &Context{}
	}
	return tc
}

// ToContext stores the non-empty identifiers of tc in ctx.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.AccountID != "" {
		ctx = context.WithValue(ctx, accountIDKey, tc.AccountID)
	}
	if tc.WarehouseID != "" {
		ctx = context.WithValue(ctx, warehouseIDKey, tc.WarehouseID)
	}
	if tc.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, tc.UserID)
	}
	return ctx
}

func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

func WithWarehouseID(ctx context.Context, warehouseID string) context.Context {
	return context.WithValue(ctx, warehouseIDKey, warehouseID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetAccountID(ctx context.Context) string {
	return stringValue(ctx, accountIDKey)
}

func GetWarehouseID(ctx context.Context) string {
	return stringValue(ctx, warehouseIDKey)
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

// IsEmpty reports whether no identifier is set.
func (tc *Context) IsEmpty() bool {
	return tc.AccountID == "" && tc.WarehouseID == "" && tc.UserID == ""
}

// Validate checks that the required account ID is present.
func (tc *Context) Validate() error {
	if tc.AccountID == "" {
		return ErrMissingAccountID
	}
	return nil
}

// ValidateOwnership rejects access to a resource owned by another account.
func (tc *Context) ValidateOwnership(resourceAccountID string) error {
	if tc.AccountID != "" && resourceAccountID != "" && tc.AccountID != resourceAccountID {
		return ErrUnauthorizedAccess
	}
	return nil
}
