// Package simulator produces synthetic sensor frames for running without
// hardware attached.
package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Source is the source id stamped on simulated frames.
const Source = "SIM"

// PortName identifies the simulator in raw frames and logs.
const PortName = "simulator"

const (
	minTemperature = 15.0
	maxTemperature = 30.0
	minHumidity    = 20.0
	maxHumidity    = 80.0
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Simulator) {
		s.clock = c
	}
}

// Simulator emits a random reading for a random catalog sensor on every
// interval. It implements pipeline.Extractor.
type Simulator struct {
	tags     []string
	interval time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex // protects rng and started
	rng     *rand.Rand
	started bool
}

// New creates a Simulator over the catalog's tags. The same seed yields the
// same sequence of frames.
func New(catalog domain.Catalog, interval time.Duration, seed uint64, opts ...Option) *Simulator {
	s := &Simulator{
		tags:     catalog.Tags(),
		interval: interval,
		clock:    clockwork.NewRealClock(),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next frame line without waiting.
func (s *Simulator) Next() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.tags[s.rng.IntN(len(s.tags))]
	field, lo, hi := domain.FieldTemperature, minTemperature, maxTemperature
	if s.rng.IntN(2) == 1 {
		field, lo, hi = domain.FieldHumidity, minHumidity, maxHumidity
	}
	v := math.Round((lo+s.rng.Float64()*(hi-lo))*10) / 10

	return fmt.Appendf(nil, "<%s;%s;%s;%s>", Source, tag, field, strconv.FormatFloat(v, 'f', 1, 64))
}

// Extract returns a frame immediately on the first call and then one per
// interval until ctx is cancelled.
func (s *Simulator) Extract(ctx context.Context) (domain.RawFrame, error) {
	s.mu.Lock()
	wait := s.started
	s.started = true
	s.mu.Unlock()

	if wait {
		select {
		case <-ctx.Done():
			return domain.RawFrame{}, ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
	return domain.RawFrame{Line: s.Next(), Port: PortName, ReceivedAt: s.clock.Now()}, nil
}
