package proto

import "time"

// ScheduledCall is a deferred incoming-call trigger.
type ScheduledCall struct {
	TriggerAt time.Time `json:"trigger_at"`
	Reason    string    `json:"reason"`
	Random    bool      `json:"random"`
}

// Due reports whether the call should fire at now.
func (s *ScheduledCall) Due(now time.Time) bool {
	return s != nil && !now.Before(s.TriggerAt)
}
