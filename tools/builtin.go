package tools

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

const resultOK = "ok"

// DefaultHandlers returns the handlers for every tool the model is offered.
func DefaultHandlers() []Handler {
	return []Handler{
		Handle(handleGesture),
		Handle(handleScheduleCallback),
		Handle(handleUpdateTopic),
		Handle(handleUpdatePersonality),
		Handle(handleSaveInsight),
	}
}

func handleGesture(_ context.Context, hc HandlerCtx, args GestureArgs) (string, error) {
	g, ok := ParseGesture(args.Gesture)
	if !ok {
		return "unknown gesture", nil
	}
	hc.ShowGesture(g)
	return resultOK, nil
}

func handleScheduleCallback(_ context.Context, hc HandlerCtx, args ScheduleCallbackArgs) (string, error) {
	minutes := *args.Minutes
	now := hc.Now()
	triggerAt := now.Add(time.Duration(minutes * float64(time.Minute)))

	hc.SetScheduledCall(proto.ScheduledCall{
		TriggerAt: triggerAt,
		Reason:    args.Reason,
	})

	if userID := hc.UserID(); userID != "" {
		hc.Persist(store.Reminder{
			ID:        proto.CallID(),
			UserID:    userID,
			Title:     args.Reason,
			TriggerAt: triggerAt,
			CreatedAt: now,
		})
	}

	return fmt.Sprintf("Callback scheduled in %s minutes: %s", strconv.FormatFloat(minutes, 'f', -1, 64), args.Reason), nil
}

func handleUpdateTopic(_ context.Context, hc HandlerCtx, args UpdateTopicArgs) (string, error) {
	if userID := hc.UserID(); userID != "" {
		hc.Persist(store.Topic{
			UserID:        userID,
			Title:         args.Title,
			Status:        args.Status,
			InterestLevel: args.InterestLevel,
			UpdatedAt:     hc.Now(),
		})
	}
	return resultOK, nil
}

func handleUpdatePersonality(_ context.Context, hc HandlerCtx, args PersonalityArgs) (string, error) {
	if userID := hc.UserID(); userID != "" {
		hc.Persist(store.PersonalityDelta{
			UserID:         userID,
			IntimacyChange: boundDelta(*args.IntimacyChange),
			HumorChange:    boundDelta(*args.HumorChange),
		})
	}
	return resultOK, nil
}

func handleSaveInsight(_ context.Context, hc HandlerCtx, args InsightArgs) (string, error) {
	if userID := hc.UserID(); userID != "" {
		hc.Persist(store.Insight{
			UserID:     userID,
			Trait:      args.Trait,
			Preference: args.Preference,
		})
	}
	return resultOK, nil
}
