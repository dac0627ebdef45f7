package domain

import (
	"fmt"
	"sync"
	"time"
)

// Record is the latest known state of one sensor.
type Record struct {
	Sensor
	Temperature    float64
	Humidity       float64
	HasTemperature bool
	HasHumidity    bool
	Source         string
	Updated        time.Time
}

// SensorView is a classified, point-in-time copy of a record.
type SensorView struct {
	Tag            string    `json:"tag"`
	Location       string    `json:"location"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	HasTemperature bool      `json:"has_temperature"`
	HasHumidity    bool      `json:"has_humidity"`
	Source         string    `json:"source,omitempty"`
	Updated        time.Time `json:"updated"`
	AgeSeconds     float64   `json:"age_seconds"`
	Status         Status    `json:"status"`
}

// Table holds one record per catalog sensor. It is safe for one writer and
// any number of concurrent readers.
type Table struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
}

// NewTable creates a table with an empty record for each catalog sensor.
func NewTable(c Catalog) *Table {
	t := &Table{
		order:   make([]string, 0, len(c.Sensors)),
		records: make(map[string]*Record, len(c.Sensors)),
	}
	for _, s := range c.Sensors {
		if _, dup := t.records[s.Tag]; dup {
			continue
		}
		t.order = append(t.order, s.Tag)
		t.records[s.Tag] = &Record{Sensor: s}
	}
	return t
}

// Apply stores a reading. Unknown tags and fields leave the table untouched.
func (t *Table) Apply(r Reading) error {
	if !r.Field.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownField, r.Field)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[r.Tag]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, r.Tag)
	}

	switch r.Field {
	case FieldTemperature:
		rec.Temperature = r.Value
		rec.HasTemperature = true
	case FieldHumidity:
		rec.Humidity = r.Value
		rec.HasHumidity = true
	}
	rec.Source = r.Source
	rec.Updated = r.ReceivedAt
	return nil
}

// Record returns a copy of the record for tag.
func (t *Table) Record(tag string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[tag]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of sensors in the table.
func (t *Table) Len() int {
	return len(t.order)
}

// Views classifies every record at now, in catalog order.
func (t *Table) Views(now time.Time, staleAfter time.Duration) []SensorView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]SensorView, 0, len(t.order))
	for _, tag := range t.order {
		rec := *t.records[tag]
		view := SensorView{
			Tag:            rec.Tag,
			Location:       rec.Location,
			Temperature:    rec.Temperature,
			Humidity:       rec.Humidity,
			HasTemperature: rec.HasTemperature,
			HasHumidity:    rec.HasHumidity,
			Source:         rec.Source,
			Updated:        rec.Updated,
			Status:         Classify(rec, now, staleAfter),
		}
		if !rec.Updated.IsZero() {
			view.AgeSeconds = now.Sub(rec.Updated).Seconds()
		}
		views = append(views, view)
	}
	return views
}
