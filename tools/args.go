package tools

import (
	"fmt"
	"math"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

// Tool names known to the speech model.
const (
	GestureFeedback   = "trigger_gesture_feedback"
	ScheduleCallback  = "schedule_callback"
	UpdateTopic       = "update_topic"
	UpdatePersonality = "update_personality_evolution"
	SaveInsight       = "save_psychological_insight"
)

// MaxPersonalityDelta bounds a single personality adjustment.
const MaxPersonalityDelta = 10.0

type GestureArgs struct {
	Gesture string `json:"gesture"`
}

func (GestureArgs) ToolName() string { return GestureFeedback }

func (a *GestureArgs) Validate() error {
	if a.Gesture == "" {
		return fmt.Errorf("gesture is required")
	}
	return nil
}

type ScheduleCallbackArgs struct {
	Minutes *float64 `json:"minutes"`
	Reason  string   `json:"reason"`
}

func (ScheduleCallbackArgs) ToolName() string { return ScheduleCallback }

func (a *ScheduleCallbackArgs) Validate() error {
	if a.Minutes == nil {
		return fmt.Errorf("minutes is required")
	}
	if math.IsNaN(*a.Minutes) || math.IsInf(*a.Minutes, 0) || *a.Minutes < 0 {
		return fmt.Errorf("minutes must be a non-negative number")
	}
	if a.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

type UpdateTopicArgs struct {
	Title         string              `json:"title"`
	Status        store.TopicStatus   `json:"status"`
	InterestLevel store.InterestLevel `json:"interest_level"`
}

func (UpdateTopicArgs) ToolName() string { return UpdateTopic }

func (a *UpdateTopicArgs) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid status %q", a.Status)
	}
	if !a.InterestLevel.Valid() {
		return fmt.Errorf("invalid interest_level %q", a.InterestLevel)
	}
	return nil
}

type PersonalityArgs struct {
	IntimacyChange *float64 `json:"intimacy_change"`
	HumorChange    *float64 `json:"humor_change"`
}

func (PersonalityArgs) ToolName() string { return UpdatePersonality }

func (a *PersonalityArgs) Validate() error {
	if a.IntimacyChange == nil || a.HumorChange == nil {
		return fmt.Errorf("intimacy_change and humor_change are required")
	}
	for _, v := range []float64{*a.IntimacyChange, *a.HumorChange} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("changes must be finite numbers")
		}
	}
	return nil
}

type InsightArgs struct {
	Trait      string `json:"trait"`
	Preference string `json:"preference"`
}

func (InsightArgs) ToolName() string { return SaveInsight }

func (a *InsightArgs) Validate() error {
	if a.Trait == "" || a.Preference == "" {
		return fmt.Errorf("trait and preference are required")
	}
	return nil
}

func boundDelta(v float64) float64 {
	return min(MaxPersonalityDelta, max(-MaxPersonalityDelta, v))
}
