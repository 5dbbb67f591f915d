package lovecall

import (
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

type EndReason string

const (
	ReasonHangupAbrupt   EndReason = "user_hangup_abrupt"
	ReasonHangupNormal   EndReason = "user_hangup_normal"
	ReasonTransportError EndReason = "transport_error"
	// ReasonRemoteClosed is used when the model closes the stream without error.
	ReasonRemoteClosed EndReason = "remote_closed"
	// ReasonDeviceError is used when the microphone could not be opened.
	ReasonDeviceError EndReason = "device_error"
)

// TerminationReport describes how a session ended.
type TerminationReport struct {
	SessionID string
	Reason    EndReason
	// ScheduledCall is the callback the model asked for during the call.
	ScheduledCall *proto.ScheduledCall
	StartedAt     time.Time
	EndedAt       time.Time
	Err           error
}

func (r TerminationReport) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
