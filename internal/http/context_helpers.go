package httpx

import "context"

// clientIDKey is an unexported context key type to avoid collisions across packages.
type clientIDKey struct{}

// SetClientIDInContext returns a child context carrying the browser client id.
// An empty id returns ctx unchanged.
func SetClientIDInContext(ctx context.Context, clientID string) context.Context {
	if clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the client id and whether one was set.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey{}).(string)
	return id, ok && id != ""
}
