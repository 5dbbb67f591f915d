package audio

// Playhead is the gapless scheduling cursor of an output graph. Positions are
// sample offsets on the output clock.
type Playhead struct {
	next int64
}

// Schedule returns the start position for a buffer of n samples given the
// current output clock, and advances the cursor past it. The start is never
// earlier than now, so a buffer is never scheduled in the past.
func (p *Playhead) Schedule(now int64, n int) int64 {
	start := max(p.next, now)
	p.next = start + int64(n)
	return start
}

// Reset moves the cursor to pos. Used when queued audio is discarded or a
// buffer could not be queued.
func (p *Playhead) Reset(pos int64) {
	p.next = pos
}

// Next returns the position where the next buffer would start if the clock
// has not caught up with it yet.
func (p *Playhead) Next() int64 {
	return p.next
}
