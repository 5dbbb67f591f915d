package audio

import (
	"context"
)

// Forward hands every frame of in to fn until the graph closes or ctx is done.
// A failing fn stops forwarding.
func Forward(ctx context.Context, in InputGraph, fn func([]int16) error) error {
	frames := in.Frames()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := fn(frame); err != nil {
				return err
			}
		}
	}
}
