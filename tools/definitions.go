package tools

type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
)

type Param struct {
	Name        string
	Type        ParamType
	Description string
	Enum        []string
}

// Definition describes a tool to the speech model. Every parameter is required.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

// Definitions returns the declarations of every built-in tool.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        GestureFeedback,
			Description: "Show a short visual gesture to the user, for example a heart or a wink.",
			Params: []Param{
				{Name: "gesture", Type: TypeString, Description: "The gesture to show.", Enum: Gestures()},
			},
		},
		{
			Name:        ScheduleCallback,
			Description: "Schedule a call back to the user after a number of minutes.",
			Params: []Param{
				{Name: "minutes", Type: TypeNumber, Description: "Minutes from now until the call."},
				{Name: "reason", Type: TypeString, Description: "Why you will call back."},
			},
		},
		{
			Name:        UpdateTopic,
			Description: "Remember a conversation topic and how interested the user is in it.",
			Params: []Param{
				{Name: "title", Type: TypeString, Description: "Short title of the topic."},
				{Name: "status", Type: TypeString, Description: "Topic status.", Enum: []string{"active", "paused", "archived"}},
				{Name: "interest_level", Type: TypeString, Description: "User interest.", Enum: []string{"low", "medium", "high"}},
			},
		},
		{
			Name:        UpdatePersonality,
			Description: "Adjust how intimate and humorous the relationship has become.",
			Params: []Param{
				{Name: "intimacy_change", Type: TypeNumber, Description: "Change of intimacy, between -10 and 10."},
				{Name: "humor_change", Type: TypeNumber, Description: "Change of humor, between -10 and 10."},
			},
		},
		{
			Name:        SaveInsight,
			Description: "Save something learned about the user's personality or preferences.",
			Params: []Param{
				{Name: "trait", Type: TypeString, Description: "The trait observed."},
				{Name: "preference", Type: TypeString, Description: "The related preference."},
			},
		},
	}
}
