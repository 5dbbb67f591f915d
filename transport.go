package lovecall

import (
	"context"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

// DefaultVoice is the prebuilt voice used when a call does not pick one.
const DefaultVoice = "Kore"

type EventType int

const (
	// EventOpen is emitted once the model session is ready.
	EventOpen EventType = iota
	// EventAudio carries one chunk of base64 PCM16 at 24 kHz.
	EventAudio
	// EventToolCalls carries every tool call of one model message.
	EventToolCalls
	// EventInterrupted signals that the model discarded its current turn.
	EventInterrupted
	// EventClosed is the last event. Err is nil when the model closed the
	// stream normally.
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventAudio:
		return "audio"
	case EventToolCalls:
		return "tool_calls"
	case EventInterrupted:
		return "interrupted"
	case EventClosed:
		return "closed"
	}
	return "unknown"
}

// Event is an inbound message of a model connection.
type Event struct {
	Type      EventType        `json:"type"`
	Audio     string           `json:"audio,omitempty"`
	ToolCalls []proto.ToolCall `json:"tool_calls,omitempty"`
	Err       error            `json:"-"`
}

// Conn is a streaming connection to the speech model. Send methods may be
// called concurrently.
type Conn interface {
	// SendAudio sends one frame of PCM16 at 16 kHz mono.
	SendAudio(ctx context.Context, samples []int16) error
	// SendImage sends one JPEG still frame.
	SendImage(ctx context.Context, jpeg []byte) error
	// SendToolResults answers the tool calls of one message in one response.
	SendToolResults(ctx context.Context, results []*proto.ToolResult) error
	// Events yields inbound events. EventClosed is the last one; the channel
	// may be closed after it.
	Events() <-chan Event
	Close() error
}

// CallConfig is what the model session is configured with at connect time.
type CallConfig struct {
	Persona string
	Voice   string
	Tools   []tools.Definition
}

func (c *CallConfig) Defaults() {
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.Tools == nil {
		c.Tools = tools.Definitions()
	}
}

type Dialer interface {
	Dial(ctx context.Context, config CallConfig) (Conn, error)
}

type DialerFunc func(ctx context.Context, config CallConfig) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, config CallConfig) (Conn, error) {
	return f(ctx, config)
}
