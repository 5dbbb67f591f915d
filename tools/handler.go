package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

// HandlerCtx is what a tool handler may touch while serving one call.
type HandlerCtx interface {
	// UserID is empty when no user context exists.
	UserID() string
	Now() time.Time
	Log() *slog.Logger
	// Persist hands a record to the outbox without waiting for it.
	Persist(r store.Record)
	SetScheduledCall(sc proto.ScheduledCall)
	ShowGesture(g Gesture)
}

// NamedArgs is implemented by the argument record of a tool.
type NamedArgs interface {
	ToolName() string
}

type Handler interface {
	ToolName() string
	Handle(ctx context.Context, hc HandlerCtx, call *proto.ToolCall) (string, error)
}

type typedHandler[T NamedArgs] struct {
	name string
	h    func(context.Context, HandlerCtx, T) (string, error)
}

func (t *typedHandler[T]) ToolName() string {
	return t.name
}

func (t *typedHandler[T]) Handle(ctx context.Context, hc HandlerCtx, call *proto.ToolCall) (string, error) {
	raw, err := json.Marshal(call.Args)
	if err != nil {
		return "", proto.NewToolDispatchError(t.name, fmt.Errorf("marshal args: %w", err))
	}

	var args T
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", proto.NewToolDispatchError(t.name, fmt.Errorf("unmarshal args: %w", err))
	}

	if err := proto.ValidateArgs(&args); err != nil {
		return "", proto.NewToolDispatchError(t.name, err)
	}

	return t.h(ctx, hc, args)
}

// Handle creates a handler decoding the call arguments into T.
func Handle[T NamedArgs](handler func(context.Context, HandlerCtx, T) (string, error)) Handler {
	var zero T
	return &typedHandler[T]{
		name: zero.ToolName(),
		h:    handler,
	}
}
