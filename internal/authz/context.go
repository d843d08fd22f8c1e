package authz

import "context"

type authContextKey struct{}

// ContextWith stores the authorization context for the request.
func ContextWith(ctx context.Context, actx Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, actx)
}

// FromContext extracts the authorization context. A request that never went
// through the middleware yields the zero value, which carries no roles and
// therefore fails every check closed.
func FromContext(ctx context.Context) Context {
	actx, _ := ctx.Value(authContextKey{}).(Context)
	return actx
}
