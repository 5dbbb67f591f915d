package proto

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ID returns a short random identifier used for senders and messages.
func ID() string {
	i, _ := gonanoid.New()
	return i
}

// CallID returns a new identifier for a call or conversation record.
func CallID() string {
	return uuid.NewString()
}
