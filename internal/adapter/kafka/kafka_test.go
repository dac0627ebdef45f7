package kafka

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, time.January, 12, 18, 4, 11, 0, time.UTC)
	r := domain.Reading{
		Source:     "N1",
		Tag:        "VA1",
		Field:      domain.FieldTemperature,
		Value:      21.5,
		ReceivedAt: now,
	}

	msg, err := serializeToMessage(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("VA1"), msg.Key)
	assert.JSONEq(t, `{"source":"N1","tag":"VA1","field":"Temp","value":21.5,"received_at":"2025-01-12T18:04:11Z"}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "field", msg.Headers[0].Key)
	assert.Equal(t, []byte("Temp"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
	assert.Equal(t, []byte("N1"), msg.Headers[1].Value)
	assert.Equal(t, "received_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_Error(t *testing.T) {
	_, err := serializeToMessage(domain.Reading{Tag: "VA1", Value: math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize reading")
}

func TestWriter_Load(t *testing.T) {
	fake := &fakeWriter{}
	metrics := observability.NewMetricsForTesting()
	w := &Writer{writer: fake, logger: slog.Default(), metrics: metrics}

	require.NoError(t, w.Load(context.Background(), domain.Reading{Tag: "OD1", Field: domain.FieldHumidity, Value: 81}))
	require.Len(t, fake.msgs, 1)
	assert.Equal(t, []byte("OD1"), fake.msgs[0].Key)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RelayPublished), 0)

	fake.err = assert.AnError
	err := w.Load(context.Background(), domain.Reading{Tag: "OD1", Field: domain.FieldHumidity, Value: 82})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "relay reading OD1/Hum")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RelayErrors), 0)

	require.NoError(t, w.Close())
	assert.True(t, fake.closed)
}
