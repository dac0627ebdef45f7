package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/control-room/internal/domain"
)

// FrameTransformer implements Transformer by parsing the frame and checking
// it against the sensor catalog.
type FrameTransformer struct {
	catalog domain.Catalog
}

// NewTransformer creates a FrameTransformer for the given catalog.
func NewTransformer(catalog domain.Catalog) *FrameTransformer {
	return &FrameTransformer{catalog: catalog}
}

func (t *FrameTransformer) Transform(_ context.Context, raw domain.RawFrame) (domain.Reading, error) {
	frame, err := domain.ParseFrame(raw.Line)
	if err != nil {
		return domain.Reading{}, err
	}

	if _, ok := t.catalog.Lookup(frame.Tag); !ok {
		return domain.Reading{}, fmt.Errorf("%w: %q", domain.ErrUnknownTag, frame.Tag)
	}
	if !frame.Field.Known() {
		return domain.Reading{}, fmt.Errorf("%w: %q", domain.ErrUnknownField, frame.Field)
	}

	at := raw.ReceivedAt
	if at.IsZero() {
		at = domain.Now()
	}
	return frame.Reading(at), nil
}
