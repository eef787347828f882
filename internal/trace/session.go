package trace

import (
	"context"
	"time"

	"github.com/probeworks/latency-probe/pkg/logging"
)

// Session runs the same trace repeatedly, with a delay between runs, so
// per-hop latency can be aggregated over more than one sample.
type Session struct {
	Tracer   *Tracer
	Runs     int
	RunDelay time.Duration
	Logger   logging.Logger
}

// Run executes the configured number of walks sequentially. Cancellation
// aborts the current walk and returns the runs collected so far.
func (s *Session) Run(ctx context.Context) ([]Run, error) {
	count := s.Runs
	if count <= 0 {
		count = 1
	}

	runs := make([]Run, 0, count)
	for i := 0; i < count; i++ {
		if s.Logger != nil {
			s.Logger.Debugf("running trace %d of %d", i+1, count)
		}

		run, err := s.Tracer.Trace(ctx)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)

		// no delay after the last run
		if s.RunDelay > 0 && i < count-1 {
			select {
			case <-ctx.Done():
				return runs, ctx.Err()
			case <-time.After(s.RunDelay):
			}
		}
	}

	return runs, nil
}
