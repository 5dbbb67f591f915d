package tools

import (
	"log/slog"
	"sync"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

// TestingHC is a HandlerCtx recording every effect, for handler tests.
type TestingHC struct {
	User      string
	Clock     time.Time
	mu        sync.Mutex
	records   []store.Record
	scheduled *proto.ScheduledCall
	gestures  []Gesture
}

func (t *TestingHC) UserID() string {
	return t.User
}

func (t *TestingHC) Now() time.Time {
	return t.Clock
}

func (t *TestingHC) Log() *slog.Logger {
	return slog.Default()
}

func (t *TestingHC) Persist(r store.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

func (t *TestingHC) SetScheduledCall(sc proto.ScheduledCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scheduled = &sc
}

func (t *TestingHC) ShowGesture(g Gesture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gestures = append(t.gestures, g)
}

func (t *TestingHC) Records() []store.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]store.Record(nil), t.records...)
}

func (t *TestingHC) ScheduledCall() *proto.ScheduledCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scheduled
}

func (t *TestingHC) Gestures() []Gesture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Gesture(nil), t.gestures...)
}

var _ HandlerCtx = &TestingHC{}

func NewTestingHC(user string, now time.Time) *TestingHC {
	return &TestingHC{User: user, Clock: now}
}
