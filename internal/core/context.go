package core

import "context"

type contextKey string

const ctxKeyIdentity contextKey = "import_identity"

// Identity is who is calling: the browser session holding validated uploads
// and the administrator recorded in the import log.
type Identity struct {
	SessionID string
	ActorID   int64
	IPAddress string
}

// ContextWithIdentity stores id in ctx.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}
