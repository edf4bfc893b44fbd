package core

import "context"

// Next continues the middleware chain for one update. The terminal Next is
// the dispatcher's fan-out step.
type Next func(ctx context.Context, u *Update) error

// Middleware wraps the dispatch of a whole Update. It may work before calling
// next, after it returns, or both; it may also decline to call next at all,
// short-circuiting everything downstream including the fan-out.
type Middleware func(ctx context.Context, u *Update, next Next) error

// composeChain flattens middlewares into a single continuation around
// terminal. The first middleware in mws is outermost: it runs first on the
// way in and last on the way out. With no middlewares the terminal step is
// returned as-is, so dispatch pays no wrapping overhead.
func composeChain(mws []Middleware, terminal Next) Next {
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context, u *Update) error {
			return mw(ctx, u, inner)
		}
	}
	return next
}
