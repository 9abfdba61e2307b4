package actorctx

import (
	"context"

	"github.com/geocoder89/adminpanel/internal/domain/account"
)

type ctxKey struct{}

// WithAccount attaches the authenticated account to ctx.
func WithAccount(ctx context.Context, acc account.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acc)
}

func AccountFrom(ctx context.Context) (account.Account, bool) {
	v, ok := ctx.Value(ctxKey{}).(account.Account)

	return v, ok && v.ID != ""
}
