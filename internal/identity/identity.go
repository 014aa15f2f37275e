// Package identity carries the caller identity resolved by the external
// identity layer. This service trusts the (subject id, roles) pair as given
// and never inspects token formats or credentials itself.
package identity

import (
	"context"
	"slices"
)

// Role names recognized by the access policy.
const (
	// RoleAdmin grants cross-owner metadata visibility.
	RoleAdmin = "admin"
	// RoleAuditor grants cross-owner metadata visibility and audit queries.
	RoleAuditor = "auditor"
)

// Identity is the authenticated caller of an operation.
type Identity struct {
	// SubjectID is the opaque subject identifier issued by the identity layer.
	SubjectID string
	// Roles are the role names granted to the subject, order preserved.
	Roles []string
}

// HasRole reports whether the identity holds the given role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// IsPrivileged reports whether the identity holds a role with cross-owner
// metadata visibility (admin or auditor).
func (i Identity) IsPrivileged() bool {
	return i.HasRole(RoleAdmin) || i.HasRole(RoleAuditor)
}

// identityKey is a context key type for storing identities.
type identityKey struct{}

// WithIdentity stores the caller identity in the context.
// This is typically called by the identity middleware after header extraction.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// GetIdentity retrieves the caller identity from the context.
// Returns (identity, true) if present, or (zero, false) if no identity was set.
func GetIdentity(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(Identity)
	return ident, ok
}
