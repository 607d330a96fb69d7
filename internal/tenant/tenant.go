// Package tenant provides request-scoped tenant propagation through context.Context.
// Jobs and handlers carry the tenant id explicitly instead of relying on ambient
// global state, so a crashed handler can never leak one tenant's scope into the next.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// ctxKey is the private context key type for tenant values.
type ctxKey struct{}

// WithTenant returns a child context carrying the given tenant id.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext extracts the tenant id from the context.
// Returns uuid.Nil and false if no tenant is set.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return tenantID, true
}
