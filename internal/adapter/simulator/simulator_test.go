package simulator_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/control-room/internal/adapter/simulator"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_FramesAreValid(t *testing.T) {
	catalog := domain.DefaultCatalog()
	sim := simulator.New(catalog, time.Second, 7)

	seen := map[domain.Field]bool{}
	for range 500 {
		frame, err := domain.ParseFrame(sim.Next())
		require.NoError(t, err)

		assert.Equal(t, simulator.Source, frame.Source)
		_, ok := catalog.Lookup(frame.Tag)
		assert.True(t, ok, frame.Tag)
		seen[frame.Field] = true

		switch frame.Field {
		case domain.FieldTemperature:
			assert.GreaterOrEqual(t, frame.Value, 15.0)
			assert.LessOrEqual(t, frame.Value, 30.0)
		case domain.FieldHumidity:
			assert.GreaterOrEqual(t, frame.Value, 20.0)
			assert.LessOrEqual(t, frame.Value, 80.0)
		default:
			t.Fatalf("unexpected field %q", frame.Field)
		}
	}
	assert.True(t, seen[domain.FieldTemperature])
	assert.True(t, seen[domain.FieldHumidity])
}

func TestSimulator_Deterministic(t *testing.T) {
	a := simulator.New(domain.DefaultCatalog(), time.Second, 42)
	b := simulator.New(domain.DefaultCatalog(), time.Second, 42)

	for range 20 {
		assert.Equal(t, string(a.Next()), string(b.Next()))
	}
}

func TestSimulator_ExtractWaitsForInterval(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.January, 12, 18, 4, 11, 0, time.UTC))
	sim := simulator.New(domain.DefaultCatalog(), time.Second, 1, simulator.WithClock(fakeClock))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := sim.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, simulator.PortName, first.Port)
	assert.Equal(t, fakeClock.Now(), first.ReceivedAt)

	type result struct {
		raw domain.RawFrame
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := sim.Extract(ctx)
		done <- result{raw, err}
	}()

	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))
	fakeClock.Advance(time.Second)

	second := <-done
	require.NoError(t, second.err)
	assert.Equal(t, fakeClock.Now(), second.raw.ReceivedAt)
}

func TestSimulator_ExtractCancelled(t *testing.T) {
	sim := simulator.New(domain.DefaultCatalog(), time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := sim.Extract(ctx)
	require.NoError(t, err)

	cancel()
	_, err = sim.Extract(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
