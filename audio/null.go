package audio

import (
	"sync"
	"time"
)

const nullTick = 10 * time.Millisecond

// NewNullOutput returns an output graph with no device behind it. A goroutine
// drains it in real time so the output clock keeps moving.
func NewNullOutput(format Format, opts ...GraphOption) *Output {
	var (
		stop = make(chan struct{})
		done = make(chan struct{})
		once sync.Once
	)

	release := func() error {
		once.Do(func() {
			close(stop)
			<-done
		})
		return nil
	}

	out := NewOutput(format, append(opts, WithRelease(release))...)

	go func() {
		defer close(done)
		ticker := time.NewTicker(nullTick)
		defer ticker.Stop()
		buf := make([]byte, out.format.Samples(nullTick)*2)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_, _ = out.Read(buf)
			}
		}
	}()

	return out
}
