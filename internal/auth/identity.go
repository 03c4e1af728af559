package auth

import (
	"context"

	"kitchensink/internal/model"
)

// CallerIdentity is the request-scoped view of who is calling.
type CallerIdentity struct {
	Username      string
	Roles         model.RoleSet
	Authenticated bool
}

// Anonymous is the identity of a request without a bearer token.
var Anonymous = CallerIdentity{}

// HasRole reports whether the caller holds role. ROLE_ADMIN satisfies ROLE_USER.
func (c CallerIdentity) HasRole(role model.Role) bool {
	if !c.Authenticated {
		return false
	}
	if c.Roles.Has(role) {
		return true
	}
	return role == model.RoleUser && c.Roles.Has(model.RoleAdmin)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id CallerIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller attached to ctx, or Anonymous.
func IdentityFromContext(ctx context.Context) CallerIdentity {
	if id, ok := ctx.Value(identityKey{}).(CallerIdentity); ok {
		return id
	}
	return Anonymous
}
