// Package domain models the control room's sensor telemetry.
//
// # Data Source
//
// Distributed sensor nodes report over a shared UART to a Raspberry Pi. Each
// report is one line of text. Lines that are not frames (boot banners, radio
// noise, partial lines after a reconnect) are expected and ignored.
//
// # Frame Format
//
//	<source;tag;field;value>
//
//	"<N1;VA1;Temp;21.5>"  →  node N1 reports 21.5 °C for sensor VA1.
//	"<N1;VA1;Hum;48>"     →  node N1 reports 48 %RH for sensor VA1.
//
// Fields are separated by ";" and surrounding whitespace is ignored. Trailing
// fields beyond the fourth are ignored. The value is a decimal number; NaN and
// infinities are rejected. There is no checksum: a frame is accepted on shape
// alone.
//
// Known fields:
//
//	Temp  temperature in degrees Celsius
//	Hum   relative humidity in percent
//
// Field names are case-sensitive.
//
// # Sensor Table
//
// The [Catalog] fixes the set of tags and their display order. A frame for a
// tag outside the catalog, or for a field outside the known set, is rejected
// and never changes the [Table].
//
// # Status Classification
//
// Each record is classified on every refresh, in this order:
//
//	no data           the record has never been updated
//	stale             last update older than the staleness window (default 15s)
//	high temperature  temperature above the sensor's High bound
//	low temperature   temperature below the sensor's Low bound
//	ok                otherwise
//
// Staleness wins over range checks: an old value says nothing about the
// current temperature.
package domain
