// Package console prints the sensor table as plain lines, one block per
// update.
package console

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/couchcryptid/control-room/internal/display"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/mattn/go-isatty"
)

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces colored output on or off.
func WithColor(on bool) Option {
	return func(p *Printer) {
		p.color = on
	}
}

// WithStatus appends the status name to each row.
func WithStatus(on bool) Option {
	return func(p *Printer) {
		p.status = on
	}
}

// Printer writes the header and every row after each update.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	status bool
}

// NewPrinter creates a printer for w. Color is on when w is a terminal.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, color: isTerminal(w)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Print writes one block: a blank line, the header, then a row per view.
func (p *Printer) Print(views []domain.SensorView) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bw := bufio.NewWriter(p.w)
	bw.WriteString("\n")
	bw.WriteString(domain.FormatHeader())
	bw.WriteString("\n")
	for _, v := range views {
		if p.color {
			bw.WriteString(display.ANSI(v.Status))
		}
		bw.WriteString(domain.FormatRow(v))
		if p.status {
			bw.WriteString("  [" + v.Status.String() + "]")
		}
		if p.color {
			bw.WriteString(display.ANSIReset)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
