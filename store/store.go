// Package store defines the narrow record store the call engine writes to.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidRecord = errors.New("store: invalid record")

type TopicStatus string

const (
	TopicActive   TopicStatus = "active"
	TopicPaused   TopicStatus = "paused"
	TopicArchived TopicStatus = "archived"
)

func (s TopicStatus) Valid() bool {
	switch s {
	case TopicActive, TopicPaused, TopicArchived:
		return true
	}
	return false
}

type InterestLevel string

const (
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

func (l InterestLevel) Valid() bool {
	switch l {
	case InterestLow, InterestMedium, InterestHigh:
		return true
	}
	return false
}

// Topic is keyed by (UserID, Title).
type Topic struct {
	UserID        string
	Title         string
	Status        TopicStatus
	InterestLevel InterestLevel
	UpdatedAt     time.Time
}

// PersonalityDelta is an incremental adjustment of personality stats.
type PersonalityDelta struct {
	UserID         string
	IntimacyChange float64
	HumorChange    float64
}

// Personality holds the stats a PersonalityDelta adjusts, each in [0,100].
type Personality struct {
	UserID   string
	Intimacy float64
	Humor    float64
}

// Insight is a trait/preference pair merged into the user profile.
type Insight struct {
	UserID     string
	Trait      string
	Preference string
}

type Reminder struct {
	ID        string
	UserID    string
	Title     string
	TriggerAt time.Time
	CreatedAt time.Time
}

type CallLog struct {
	ID        string
	UserID    string
	Reason    string
	StartedAt time.Time
	EndedAt   time.Time
}

func (c CallLog) Duration() time.Duration {
	return c.EndedAt.Sub(c.StartedAt)
}

// Store is the external profile/record store. Topic and personality writes are
// upserts; reminders and call logs are inserts.
type Store interface {
	UpsertTopic(ctx context.Context, t Topic) error
	AdjustPersonality(ctx context.Context, d PersonalityDelta) (Personality, error)
	MergeInsight(ctx context.Context, i Insight) error
	InsertReminder(ctx context.Context, r Reminder) error
	InsertCallLog(ctx context.Context, c CallLog) error
}

// Record is a pending write, applied asynchronously by an outbox.
type Record interface {
	Kind() string
	Apply(ctx context.Context, s Store) error
}

func (t Topic) Kind() string { return "topic" }
func (t Topic) Apply(ctx context.Context, s Store) error {
	return s.UpsertTopic(ctx, t)
}

func (d PersonalityDelta) Kind() string { return "personality" }
func (d PersonalityDelta) Apply(ctx context.Context, s Store) error {
	_, err := s.AdjustPersonality(ctx, d)
	return err
}

func (i Insight) Kind() string { return "insight" }
func (i Insight) Apply(ctx context.Context, s Store) error {
	return s.MergeInsight(ctx, i)
}

func (r Reminder) Kind() string { return "reminder" }
func (r Reminder) Apply(ctx context.Context, s Store) error {
	return s.InsertReminder(ctx, r)
}

func (c CallLog) Kind() string { return "call_log" }
func (c CallLog) Apply(ctx context.Context, s Store) error {
	return s.InsertCallLog(ctx, c)
}

// Clamp bounds a personality stat to [0,100].
func Clamp(v float64) float64 {
	return min(100, max(0, v))
}

// DefaultPersonality is the starting point of a user without stats.
func DefaultPersonality(userID string) Personality {
	return Personality{UserID: userID, Intimacy: 50, Humor: 50}
}
