// Package display holds the status colors shared by the console printer and
// the dashboard.
package display

import (
	"fmt"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/gdamore/tcell/v2"
)

// Colors is the cell styling for one status.
type Colors struct {
	Fg tcell.Color
	Bg tcell.Color
}

var statusColors = map[domain.Status]Colors{
	domain.StatusOK:              {Fg: tcell.ColorWhite, Bg: tcell.ColorGreen},
	domain.StatusNoData:          {Fg: tcell.ColorBlack, Bg: tcell.ColorGray},
	domain.StatusStale:           {Fg: tcell.ColorBlack, Bg: tcell.ColorOrange},
	domain.StatusHighTemperature: {Fg: tcell.ColorWhite, Bg: tcell.ColorRed},
	domain.StatusLowTemperature:  {Fg: tcell.ColorWhite, Bg: tcell.ColorBlue},
}

// StatusColors returns the dashboard colors for s. Unknown statuses render
// like missing data.
func StatusColors(s domain.Status) Colors {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return statusColors[domain.StatusNoData]
}

// ANSI returns a 24-bit foreground escape in the status color, for line
// output on a terminal.
func ANSI(s domain.Status) string {
	r, g, b := StatusColors(s).Bg.RGB()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

// ANSIReset clears any color set by ANSI.
const ANSIReset = "\x1b[0m"
