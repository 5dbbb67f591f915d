package tools

import (
	"context"
	"log/slog"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

type MiddlewareFunc func(ctx context.Context, hc HandlerCtx, call *proto.ToolCall) error

type middleware struct {
	next Handler
	fn   MiddlewareFunc
}

func (m *middleware) ToolName() string {
	return m.next.ToolName()
}

func (m *middleware) Handle(ctx context.Context, hc HandlerCtx, call *proto.ToolCall) (string, error) {
	if err := m.fn(ctx, hc, call); err != nil {
		return "", proto.ToToolDispatchError(call.Name, err)
	}
	return m.next.Handle(ctx, hc, call)
}

// Middleware runs fn before next. An error from fn fails the call.
func Middleware(fn MiddlewareFunc, next Handler) Handler {
	return &middleware{next: next, fn: fn}
}

// LogCall logs every call with its arguments at debug level.
func LogCall(ctx context.Context, hc HandlerCtx, call *proto.ToolCall) error {
	hc.Log().DebugContext(ctx, "tool call",
		slog.String("call_id", call.ID),
		slog.String("tool", call.Name),
		slog.Any("args", call.Args),
	)
	return nil
}
