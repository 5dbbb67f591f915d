package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type topicKey struct {
	userID, title string
}

// Memory is an in-process Store.
type Memory struct {
	mu          sync.Mutex
	topics      map[topicKey]Topic
	personality map[string]Personality
	insights    map[string]map[string]string
	reminders   []Reminder
	callLogs    []CallLog
}

func NewMemory() *Memory {
	return &Memory{
		topics:      make(map[topicKey]Topic),
		personality: make(map[string]Personality),
		insights:    make(map[string]map[string]string),
	}
}

func (m *Memory) UpsertTopic(_ context.Context, t Topic) error {
	if t.UserID == "" || t.Title == "" {
		return fmt.Errorf("topic: %w", ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[topicKey{t.UserID, t.Title}] = t
	return nil
}

func (m *Memory) AdjustPersonality(_ context.Context, d PersonalityDelta) (Personality, error) {
	if d.UserID == "" {
		return Personality{}, fmt.Errorf("personality: %w", ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personality[d.UserID]
	if !ok {
		p = DefaultPersonality(d.UserID)
	}
	p.Intimacy = Clamp(p.Intimacy + d.IntimacyChange)
	p.Humor = Clamp(p.Humor + d.HumorChange)
	m.personality[d.UserID] = p
	return p, nil
}

func (m *Memory) MergeInsight(_ context.Context, i Insight) error {
	if i.UserID == "" || i.Trait == "" {
		return fmt.Errorf("insight: %w", ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.insights[i.UserID]
	if !ok {
		profile = make(map[string]string)
		m.insights[i.UserID] = profile
	}
	profile[i.Trait] = i.Preference
	return nil
}

func (m *Memory) InsertReminder(_ context.Context, r Reminder) error {
	if r.UserID == "" {
		return fmt.Errorf("reminder: %w", ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, r)
	return nil
}

func (m *Memory) InsertCallLog(_ context.Context, c CallLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callLogs = append(m.callLogs, c)
	return nil
}

func (m *Memory) Topic(userID, title string) (Topic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[topicKey{userID, title}]
	return t, ok
}

func (m *Memory) Personality(userID string) (Personality, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personality[userID]
	return p, ok
}

func (m *Memory) Insights(userID string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.insights[userID]))
	for k, v := range m.insights[userID] {
		out[k] = v
	}
	return out
}

func (m *Memory) Reminders() []Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.reminders)
}

func (m *Memory) CallLogs() []CallLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.callLogs)
}

var _ Store = &Memory{}
