package shared

import "context"

// Identity describes the authenticated caller.
type Identity struct {
	UserID      int64
	Email       string
	Name        string
	IsSuperuser bool
	Roles       []string
}

// HasRole reports whether the identity carries the named role. Superusers
// implicitly hold every role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	if id.IsSuperuser {
		return true
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
