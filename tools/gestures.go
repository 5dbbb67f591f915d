package tools

import (
	"sync"
	"time"
)

type Gesture string

const (
	GestureNone     Gesture = ""
	GestureHeart    Gesture = "heart"
	GestureKiss     Gesture = "kiss"
	GestureWave     Gesture = "wave"
	GestureThumbsUp Gesture = "thumbs_up"
	GestureLaugh    Gesture = "laugh"
	GestureWink     Gesture = "wink"
	GestureHug      Gesture = "hug"
	GestureBlush    Gesture = "blush"
)

var knownGestures = map[Gesture]struct{}{
	GestureHeart:    {},
	GestureKiss:     {},
	GestureWave:     {},
	GestureThumbsUp: {},
	GestureLaugh:    {},
	GestureWink:     {},
	GestureHug:      {},
	GestureBlush:    {},
}

// ParseGesture reports whether s names a known gesture.
func ParseGesture(s string) (Gesture, bool) {
	g := Gesture(s)
	_, ok := knownGestures[g]
	return g, ok
}

// Gestures lists the known gestures.
func Gestures() []string {
	return []string{
		string(GestureHeart), string(GestureKiss), string(GestureWave), string(GestureThumbsUp),
		string(GestureLaugh), string(GestureWink), string(GestureHug), string(GestureBlush),
	}
}

// GestureCue is the transient UI cue shown for a gesture. It clears itself
// after a fixed time.
type GestureCue struct {
	mu       sync.Mutex
	ttl      time.Duration
	current  Gesture
	timer    *time.Timer
	onChange func(Gesture)
	closed   bool
	seq      uint64
}

func NewGestureCue(ttl time.Duration, onChange func(Gesture)) *GestureCue {
	return &GestureCue{ttl: ttl, onChange: onChange}
}

func (c *GestureCue) Show(g Gesture) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.current = g
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(seq) })
	c.mu.Unlock()

	c.notify(g)
}

func (c *GestureCue) expire(seq uint64) {
	c.mu.Lock()
	if c.closed || c.seq != seq {
		c.mu.Unlock()
		return
	}
	c.current = GestureNone
	c.timer = nil
	c.mu.Unlock()

	c.notify(GestureNone)
}

func (c *GestureCue) notify(g Gesture) {
	if c.onChange != nil {
		c.onChange(g)
	}
}

func (c *GestureCue) Current() Gesture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close cancels the pending auto-clear.
func (c *GestureCue) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.current = GestureNone
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
