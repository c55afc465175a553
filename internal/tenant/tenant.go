// Package tenant carries the organization boundary through every layer.
//
// A tenant.ID is resolved once per request from the authenticated token and
// handed explicitly to every repository call. Repositories build queries only
// through Scope, so no read or write can be issued without a tenant filter.
package tenant

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "schedulix/backend/pkg/errors"
)

// ID identifies a tenant.
type ID string

var (
	ErrMissingTenant  = pkgerrors.New(pkgerrors.KindForbidden, 10010, "tenant context is required")
	ErrInvalidTenant  = pkgerrors.New(pkgerrors.KindForbidden, 10011, "tenant identifier is invalid")
	ErrTenantInactive = pkgerrors.New(pkgerrors.KindForbidden, 10012, "organization is not active")
)

// Tenant statuses
const (
	StatusActive    = "Active"
	StatusSuspended = "Suspended"
	StatusInactive  = "Inactive"
)

func (id ID) String() string { return string(id) }

// Validate rejects empty and non-UUID identifiers.
func (id ID) Validate() error {
	if id == "" {
		return ErrMissingTenant
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return ErrInvalidTenant.Wrap(err)
	}
	return nil
}

// Scope restricts a query to one tenant. The column is qualified with the
// statement's own table so joins cannot make it ambiguous.
func Scope(id ID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "tenant_id"},
			Value:  string(id),
		})
	}
}

type ctxKey struct{}

// WithTenant stores the tenant in a context.
func WithTenant(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the tenant stored by WithTenant.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	return id, ok && id != ""
}

// MustFromContext is FromContext returning ErrMissingTenant when absent.
func MustFromContext(ctx context.Context) (ID, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrMissingTenant
	}
	return id, nil
}
