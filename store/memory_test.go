package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryTopicUpsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.UpsertTopic(ctx, Topic{UserID: "u1", Title: "music", Status: TopicActive, InterestLevel: InterestLow}))
	require.NoError(t, m.UpsertTopic(ctx, Topic{UserID: "u1", Title: "music", Status: TopicPaused, InterestLevel: InterestHigh}))
	require.NoError(t, m.UpsertTopic(ctx, Topic{UserID: "u2", Title: "music", Status: TopicActive, InterestLevel: InterestLow}))

	got, ok := m.Topic("u1", "music")
	require.True(t, ok)
	require.Equal(t, TopicPaused, got.Status)
	require.Equal(t, InterestHigh, got.InterestLevel)

	require.ErrorIs(t, m.UpsertTopic(ctx, Topic{UserID: "u1"}), ErrInvalidRecord)
}

func TestMemoryPersonalityIsBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p, err := m.AdjustPersonality(ctx, PersonalityDelta{UserID: "u1", IntimacyChange: 5, HumorChange: -5})
	require.NoError(t, err)
	require.Equal(t, 55.0, p.Intimacy)
	require.Equal(t, 45.0, p.Humor)

	for i := 0; i < 20; i++ {
		p, err = m.AdjustPersonality(ctx, PersonalityDelta{UserID: "u1", IntimacyChange: 10, HumorChange: -10})
		require.NoError(t, err)
	}
	require.Equal(t, 100.0, p.Intimacy)
	require.Equal(t, 0.0, p.Humor)
}

func TestMemoryInsightMerge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.MergeInsight(ctx, Insight{UserID: "u1", Trait: "humor", Preference: "dry"}))
	require.NoError(t, m.MergeInsight(ctx, Insight{UserID: "u1", Trait: "food", Preference: "ramen"}))
	require.NoError(t, m.MergeInsight(ctx, Insight{UserID: "u1", Trait: "humor", Preference: "absurd"}))

	require.Equal(t, map[string]string{"humor": "absurd", "food": "ramen"}, m.Insights("u1"))
}

func TestRecordsApply(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	records := []Record{
		Topic{UserID: "u1", Title: "travel", Status: TopicActive, InterestLevel: InterestMedium},
		PersonalityDelta{UserID: "u1", IntimacyChange: 1},
		Insight{UserID: "u1", Trait: "t", Preference: "p"},
		Reminder{UserID: "u1", Title: "wake up", TriggerAt: now},
		CallLog{UserID: "u1", Reason: "user_hangup_normal", StartedAt: now, EndedAt: now.Add(time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, r.Apply(ctx, m), r.Kind())
	}

	require.Len(t, m.Reminders(), 1)
	require.Len(t, m.CallLogs(), 1)
	require.Equal(t, time.Minute, m.CallLogs()[0].Duration())
}
