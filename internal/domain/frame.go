package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFrame means the line is not bracketed by '<' and '>'.
	ErrNotFrame = errors.New("not a frame")
	// ErrMalformedFrame means the brackets are present but the content is not
	// source;tag;field;value.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrInvalidValue means the value field is not a finite number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownTag means the tag is not in the sensor catalog.
	ErrUnknownTag = errors.New("unknown sensor tag")
	// ErrUnknownField means the field is not a known measurement.
	ErrUnknownField = errors.New("unknown field")
)

const (
	frameStart     = '<'
	frameEnd       = '>'
	fieldSeparator = ";"
	frameFields    = 4
)

// Field names a measurement as it appears on the wire.
type Field string

const (
	FieldTemperature Field = "Temp"
	FieldHumidity    Field = "Hum"
)

// Known reports whether f is a measurement the table can store.
func (f Field) Known() bool {
	return f == FieldTemperature || f == FieldHumidity
}

// RawFrame is one line as read from the transport, before parsing.
type RawFrame struct {
	Line       []byte
	Port       string
	ReceivedAt time.Time
}

// Frame is the decoded content of one line.
type Frame struct {
	Source string
	Tag    string
	Field  Field
	Value  float64
}

// Reading is a frame accepted for a catalog sensor, stamped with its arrival time.
type Reading struct {
	Source     string    `json:"source"`
	Tag        string    `json:"tag"`
	Field      Field     `json:"field"`
	Value      float64   `json:"value"`
	ReceivedAt time.Time `json:"received_at"`
}

// Reading stamps the frame with its arrival time.
func (f Frame) Reading(at time.Time) Reading {
	return Reading{
		Source:     f.Source,
		Tag:        f.Tag,
		Field:      f.Field,
		Value:      f.Value,
		ReceivedAt: at,
	}
}

// ParseFrame decodes a single "<source;tag;field;value>" line. Invalid UTF-8 is
// replaced rather than rejected so that a corrupt source name does not hide an
// otherwise usable reading.
func ParseFrame(line []byte) (Frame, error) {
	text := strings.ToValidUTF8(string(line), "�")
	text = strings.TrimRight(text, "\r\n")
	text = strings.TrimSpace(text)

	if len(text) < 2 || text[0] != frameStart || text[len(text)-1] != frameEnd {
		return Frame{}, ErrNotFrame
	}

	parts := strings.Split(text[1:len(text)-1], fieldSeparator)
	if len(parts) < frameFields {
		return Frame{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedFrame, len(parts), frameFields)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	frame := Frame{
		Source: parts[0],
		Tag:    parts[1],
		Field:  Field(parts[2]),
	}
	if frame.Tag == "" || frame.Field == "" {
		return Frame{}, fmt.Errorf("%w: empty tag or field", ErrMalformedFrame)
	}

	value, err := strconv.ParseFloat(parts[3], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Frame{}, fmt.Errorf("%w: %q", ErrInvalidValue, parts[3])
	}
	frame.Value = value

	return frame, nil
}
