package fiberprim

import "context"

// Go goroutines have no stable, introspectable identity to hang a
// "currently executing fiber" pointer off of, and runtime goroutine IDs
// are deliberately not a supported API — so fiberjobs threads that
// information through context.Context instead, the idiomatic Go
// substitute for call-chain scoped state. Every job is invoked with a
// context carrying the Fiber that is running it; FromContext is how a
// job reaches its own identity.
type fiberCtxKey struct{}

// WithFiber returns a context carrying f as "the currently executing
// fiber" for anything invoked with it.
func WithFiber(ctx context.Context, f *Fiber) context.Context {
	return context.WithValue(ctx, fiberCtxKey{}, f)
}

// FromContext returns the fiber running on ctx's call chain, if any.
func FromContext(ctx context.Context) (*Fiber, bool) {
	f, ok := ctx.Value(fiberCtxKey{}).(*Fiber)
	return f, ok
}
