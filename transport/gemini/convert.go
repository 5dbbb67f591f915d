package gemini

import (
	"encoding/base64"
	"strings"

	"google.golang.org/genai"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

var inputAudioMIME = "audio/pcm;rate=16000"

func connectConfig(config lovecall.CallConfig) *genai.LiveConnectConfig {
	cc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			},
		},
	}
	if config.Persona != "" {
		cc.SystemInstruction = genai.NewContentFromText(config.Persona, genai.RoleUser)
	}
	if len(config.Tools) > 0 {
		cc.Tools = []*genai.Tool{{FunctionDeclarations: declarations(config.Tools)}}
	}
	return cc
}

func declarations(defs []tools.Definition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
		}
		for _, p := range d.Params {
			t := genai.TypeString
			if p.Type == tools.TypeNumber {
				t = genai.TypeNumber
			}
			schema.Properties[p.Name] = &genai.Schema{
				Type:        t,
				Description: p.Description,
				Enum:        p.Enum,
			}
			schema.Required = append(schema.Required, p.Name)
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return out
}

// toEvents maps one server message to session events. An interruption is
// emitted before any audio of the same message.
func toEvents(msg *genai.LiveServerMessage) []lovecall.Event {
	var events []lovecall.Event

	if msg.SetupComplete != nil {
		events = append(events, lovecall.Event{Type: lovecall.EventOpen})
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			events = append(events, lovecall.Event{Type: lovecall.EventInterrupted})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil || part.InlineData == nil {
					continue
				}
				if !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
					continue
				}
				events = append(events, lovecall.Event{
					Type:  lovecall.EventAudio,
					Audio: base64.StdEncoding.EncodeToString(part.InlineData.Data),
				})
			}
		}
	}

	if tc := msg.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
		calls := make([]proto.ToolCall, 0, len(tc.FunctionCalls))
		for _, fc := range tc.FunctionCalls {
			if fc == nil {
				continue
			}
			id := fc.ID
			if id == "" {
				id = proto.ID()
			}
			calls = append(calls, proto.ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
		}
		events = append(events, lovecall.Event{Type: lovecall.EventToolCalls, ToolCalls: calls})
	}

	return events
}

func toolResponse(results []*proto.ToolResult) genai.LiveToolResponseInput {
	in := genai.LiveToolResponseInput{
		FunctionResponses: make([]*genai.FunctionResponse, 0, len(results)),
	}
	for _, r := range results {
		in.FunctionResponses = append(in.FunctionResponses, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Payload(),
		})
	}
	return in
}

func audioInput(samples []int16) genai.LiveRealtimeInput {
	return genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: audio.EncodePCM16(samples), MIMEType: inputAudioMIME},
	}
}

func imageInput(jpeg []byte) genai.LiveRealtimeInput {
	return genai.LiveRealtimeInput{
		Video: &genai.Blob{Data: jpeg, MIMEType: "image/jpeg"},
	}
}
