package domain

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Sensor is one catalog entry. Low and High bound the acceptable temperature;
// nil means unbounded on that side.
type Sensor struct {
	Tag      string   `toml:"tag" json:"tag" validate:"required,max=16,sensortag"`
	Location string   `toml:"location" json:"location" validate:"max=32"`
	Low      *float64 `toml:"low,omitempty" json:"low,omitempty"`
	High     *float64 `toml:"high,omitempty" json:"high,omitempty"`
}

// Catalog is the ordered set of sensors shown on the display.
type Catalog struct {
	Sensors []Sensor `toml:"sensor" validate:"required,min=1,max=64,unique=Tag,dive"`
}

var catalogValidator = newCatalogValidator()

func newCatalogValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("sensortag", validateSensorTag)
	return v
}

// validateSensorTag rejects characters that can never appear in a frame's tag field.
func validateSensorTag(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "<>; \t\r\n")
}

func bound(v float64) *float64 { return &v }

// DefaultCatalog returns the Villa Astrid / Lilla Astrid sensor set. Indoor
// rooms carry a frost guard and an overheat bound; outdoor and water probes
// are unbounded.
func DefaultCatalog() Catalog {
	return Catalog{Sensors: []Sensor{
		{Tag: "LA1", Location: "Lilla Astrid", Low: bound(5), High: bound(30)},
		{Tag: "LA2", Location: "Studio", Low: bound(5), High: bound(30)},
		{Tag: "VA1", Location: "MH1", Low: bound(5), High: bound(30)},
		{Tag: "VA2", Location: "MH2", Low: bound(5), High: bound(30)},
		{Tag: "VA3", Location: "Parvi", Low: bound(5), High: bound(30)},
		{Tag: "LH", Location: "Lilla Astrid", Low: bound(5), High: bound(30)},
		{Tag: "OD1", Location: "Outdoor"},
		{Tag: "Water", Location: "Vesi -1m"},
	}}
}

// Validate checks tag shape and uniqueness and that bounds are ordered.
func (c Catalog) Validate() error {
	if err := catalogValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	for _, s := range c.Sensors {
		if s.Low != nil && s.High != nil && *s.Low >= *s.High {
			return fmt.Errorf("invalid catalog: sensor %s: low %.1f must be below high %.1f", s.Tag, *s.Low, *s.High)
		}
	}
	return nil
}

// Lookup returns the catalog entry for tag.
func (c Catalog) Lookup(tag string) (Sensor, bool) {
	for _, s := range c.Sensors {
		if s.Tag == tag {
			return s, true
		}
	}
	return Sensor{}, false
}

// Tags returns the tags in display order.
func (c Catalog) Tags() []string {
	tags := make([]string, len(c.Sensors))
	for i, s := range c.Sensors {
		tags[i] = s.Tag
	}
	return tags
}

// LoadCatalog reads a TOML catalog from path. An empty path yields DefaultCatalog.
//
//	[[sensor]]
//	tag = "VA1"
//	location = "MH1"
//	low = 5.0
//	high = 30.0
func LoadCatalog(fs afero.Fs, path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Catalog{}, fmt.Errorf("parse catalog %s: %s", path, strict.String())
		}
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
