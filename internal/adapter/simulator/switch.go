package simulator

import (
	"context"
	"sync"

	"github.com/couchcryptid/control-room/internal/domain"
)

// Extractor is a telemetry source, as consumed by the pipeline.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawFrame, error)
}

// readinessChecker matches the serial reader's readiness probe.
type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Switch reads from either the live source or the simulator and can flip
// between them while an Extract is blocked.
type Switch struct {
	live Extractor
	sim  Extractor

	mu         sync.Mutex
	simulating bool
	changed    chan struct{} // closed and replaced on every toggle
}

// NewSwitch starts on the simulator when simulating is true.
func NewSwitch(live, sim Extractor, simulating bool) *Switch {
	return &Switch{
		live:       live,
		sim:        sim,
		simulating: simulating,
		changed:    make(chan struct{}),
	}
}

// Simulating reports whether frames currently come from the simulator.
func (s *Switch) Simulating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulating
}

// Toggle flips the source and reports whether the simulator is now active.
// A blocked Extract on the old source is cancelled and retried on the new one.
func (s *Switch) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulating = !s.simulating
	close(s.changed)
	s.changed = make(chan struct{})
	return s.simulating
}

func (s *Switch) Extract(ctx context.Context) (domain.RawFrame, error) {
	for {
		s.mu.Lock()
		src, changed := s.live, s.changed
		if s.simulating {
			src = s.sim
		}
		s.mu.Unlock()

		srcCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-changed:
				cancel()
			case <-srcCtx.Done():
			}
		}()
		raw, err := src.Extract(srcCtx)
		cancel()

		if err != nil && ctx.Err() == nil {
			select {
			case <-changed:
				continue
			default:
			}
		}
		return raw, err
	}
}

// CheckReadiness defers to the live source while it is selected. The
// simulator is always ready.
func (s *Switch) CheckReadiness(ctx context.Context) error {
	if s.Simulating() {
		return nil
	}
	if rc, ok := s.live.(readinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}
