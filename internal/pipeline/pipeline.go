package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Extractor reads the next raw line from the telemetry source. It blocks until
// a line arrives, the context is cancelled, or the source fails. io.EOF means
// the source is exhausted.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawFrame, error)
}

// Transformer turns a raw line into a reading for a catalog sensor.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawFrame) (domain.Reading, error)
}

// Loader consumes an accepted reading.
type Loader interface {
	Load(ctx context.Context, r domain.Reading) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	relays      []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRelays adds best-effort loaders that run after the primary loader has
// accepted a reading. A relay failure is logged and never undoes the reading.
func WithRelays(relays ...Loader) Option {
	return func(p *Pipeline) {
		p.relays = append(p.relays, relays...)
	}
}

// New creates a Pipeline with the given stages and observability. l is the
// primary loader: a reading counts as applied once l accepts it.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready reports whether at least one reading has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once the pipeline has loaded a reading,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no sensor reading received yet")
	}
	return nil
}

// Run executes the ETL loop until the context is cancelled or the source is
// exhausted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff between failed reads: 200ms doubling to 5s. Covers a
	// serial adapter being unplugged without spinning on reopen attempts.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		raw, err := p.extractor.Extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				p.logger.Info("pipeline source exhausted")
				return nil
			}
			p.metrics.ExtractErrors.Inc()
			p.logger.Error("extract failed", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		p.process(ctx, raw)
	}
}

// process transforms and loads a single line. Rejected lines are counted and skipped.
func (p *Pipeline) process(ctx context.Context, raw domain.RawFrame) {
	p.metrics.FramesReceived.Inc()

	reading, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		reason := RejectReason(err)
		p.metrics.FramesRejected.WithLabelValues(reason).Inc()
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrNotFrame) {
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "frame rejected",
			"reason", reason,
			"error", err,
			"port", raw.Port,
			"line", string(raw.Line),
		)
		return
	}

	if err := p.loader.Load(ctx, reading); err != nil {
		p.metrics.LoadErrors.Inc()
		p.logger.Error("load failed", "error", err, "tag", reading.Tag, "field", reading.Field)
		return
	}

	p.metrics.ReadingsApplied.Inc()
	p.ready.Store(true)

	for _, relay := range p.relays {
		if err := relay.Load(ctx, reading); err != nil {
			p.logger.Warn("relay failed", "error", err, "tag", reading.Tag, "field", reading.Field)
		}
	}
}

// RejectReason maps a transform error to a low-cardinality metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFrame):
		return "not_frame"
	case errors.Is(err, domain.ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, domain.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, domain.ErrUnknownTag):
		return "unknown_tag"
	case errors.Is(err, domain.ErrUnknownField):
		return "unknown_field"
	default:
		return "other"
	}
}
