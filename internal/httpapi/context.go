package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the daemon starts draining so in-flight
// generate calls give up instead of holding the listener open.
var serverBaseCtx = context.Background()

// SetBaseContext replaces the base context. nil resets it to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req and additionally cancels when base is done.
// Values come from req.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(req)
	stop := context.AfterFunc(base, func() { cancel(context.Cause(base)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
