package lovecall

import (
	"encoding/json"
	"fmt"
	"strings"
)

func debugEvent(sessionID string, v any, direction string) {

	buf := strings.Builder{}
	buf.WriteString(fmt.Sprintf("EVT(%s|%s)", sessionID, direction))
	if direction == "in" {
		buf.WriteString(" <-- ")
	} else {
		buf.WriteString(" --> ")
	}

	if evt, ok := v.(Event); ok && evt.Type == EventAudio {
		// audio payloads are too large to be useful
		v = map[string]any{"type": evt.Type.String(), "audio_len": len(evt.Audio)}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		buf.WriteString(fmt.Sprintf("failed to marshal event: %+v %s", v, err))
		buf.WriteString("\n")
		fmt.Println(buf.String())
		return
	}

	buf.WriteString("\n")
	buf.WriteString(string(data))
	buf.WriteString("\n")
	fmt.Println(buf.String())

}
