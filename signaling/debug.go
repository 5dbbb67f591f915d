package signaling

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

func debugEnvelope(callID string, env *proto.Envelope, direction string) {

	buf := strings.Builder{}
	buf.WriteString(fmt.Sprintf("SIG(%s|%s)", callID, direction))
	if direction == "in" {
		buf.WriteString(" <-- ")
	} else {
		buf.WriteString(" --> ")
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		buf.WriteString(fmt.Sprintf("failed to marshal envelope: %+v %s", env, err))
		buf.WriteString("\n")
		fmt.Println(buf.String())
		return
	}

	buf.WriteString("\n")
	buf.WriteString(string(data))
	buf.WriteString("\n")
	fmt.Println(buf.String())

}
