package export

import (
	"context"
	"time"
)

const Complete = 100

// Simulator stands in for the render/upscale pipeline. It only counts.
type Simulator struct {
	Interval time.Duration
}

// Run reports 1..100, one step per interval, then returns nil. It returns
// ctx.Err() if the context ends first.
func (s Simulator) Run(ctx context.Context, onProgress func(percent int)) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for progress := 0; progress < Complete; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			progress++
			onProgress(progress)
		}
	}
	return nil
}
