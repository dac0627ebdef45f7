package domain

import "fmt"

const updatedLayout = "2006-01-02 15:04:05"

// FormatHeader returns the column header matching FormatRow.
func FormatHeader() string {
	return fmt.Sprintf("%-8s %-14s %-6s %-4s %s", "Sensor", "Location", "Temp", "Hum", "Updated")
}

// FormatRow renders a view as a fixed-width console line:
//
//	VA1      MH1          21.5   48  < 2025-01-12 18:04:11
//
// Unset measurements print as zero; a never-updated sensor ends in "< ---".
func FormatRow(v SensorView) string {
	row := fmt.Sprintf("%-8s %-12s %4.1f %4.0f", v.Tag, v.Location, v.Temperature, v.Humidity)
	if v.Updated.IsZero() {
		return row + "  < ---"
	}
	return row + "  < " + v.Updated.Local().Format(updatedLayout)
}
