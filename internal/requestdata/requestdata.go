package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type principalCtxKey struct{}

var principalKey principalCtxKey

// Principal is the authenticated operator as the engine sees it: identity,
// role, and the optional group the role is scoped to. It is produced by the
// auth middleware and treated as read-only everywhere below it.
type Principal struct {
	UserID    uuid.UUID
	Role      string
	GroupID   *uuid.UUID
	GroupName string
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	val := ctx.Value(principalKey)
	if p, ok := val.(*Principal); ok {
		return p
	}
	return nil
}
