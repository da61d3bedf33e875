package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// accountKey carries the account whose profile a call reads or writes.
type accountKey struct{}

// WithAccount binds the account proven by the caller's access token. Every
// profile RPC acts on this account only; a request never names another one.
func WithAccount(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// AccountFromCtx returns the account bound by AuthUnary. The nil UUID is
// never a signed-in account.
func AccountFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
