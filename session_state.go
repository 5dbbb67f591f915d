package lovecall

import (
	"log/slog"
	"slices"
)

type State string

const (
	StateInit        State = "init"
	StateConnecting  State = "connecting"
	StateConnected   State = "connected"
	StateInterrupted State = "interrupted"
	StateEnded       State = "ended"
)

// transition moves the session to state if it currently is in one of from.
// An empty from allows any state except StateEnded.
func (s *Session) transition(state State, from ...State) bool {
	s.mu.Lock()
	if s.state == state || s.state == StateEnded {
		s.mu.Unlock()
		return false
	}
	if len(from) > 0 && !slices.Contains(from, s.state) {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("Session.transition", slog.Any("state", state))
	s.notifyState(state)
	return true
}

func (s *Session) notifyState(state State) {
	if s.observer.OnStateChange != nil {
		s.observer.OnStateChange(state)
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
