// Package dashboard renders the sensor table as a full-screen terminal view.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/control-room/internal/display"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpText = "[yellow]q[white] quit  [yellow]s[white] snapshot  [yellow]t[white] toggle simulator"

var headers = []string{"Sensor", "Location", "Temp °C", "Hum %", "Updated", "Status"}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithScreen draws to screen instead of the terminal. The screen must already
// be initialized.
func WithScreen(screen tcell.Screen) Option {
	return func(d *Dashboard) {
		d.app.SetScreen(screen)
	}
}

// WithSnapshot binds the snapshot key. fn returns a short message for the
// footer, or an error.
func WithSnapshot(fn func() (string, error)) Option {
	return func(d *Dashboard) {
		d.snapshot = fn
	}
}

// WithToggle binds the simulator toggle key. fn switches the telemetry source
// and returns a short message for the footer.
func WithToggle(fn func() string) Option {
	return func(d *Dashboard) {
		d.toggle = fn
	}
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopping
)

// Dashboard is a tview application with one row per sensor, colored by status.
type Dashboard struct {
	app    *tview.Application
	table  *tview.Table
	footer *tview.TextView
	logger *slog.Logger

	snapshot func() (string, error)
	toggle   func() string

	// While idle the table is rendered directly under mu. While running every
	// update goes through the application queue, and inflight counts the ones
	// the event loop has not finished yet. Stopping drops updates.
	mu       sync.Mutex
	state    state
	inflight sync.WaitGroup

	drawn     chan struct{}
	drawnOnce sync.Once
	finished  chan struct{}
}

// New builds the dashboard window.
func New(title string, logger *slog.Logger, opts ...Option) *Dashboard {
	d := &Dashboard{
		app:      tview.NewApplication(),
		table:    tview.NewTable(),
		footer:   tview.NewTextView(),
		logger:   logger,
		drawn:    make(chan struct{}),
		finished: make(chan struct{}),
	}

	d.table.SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(false, false)
	d.table.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter)

	d.footer.SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft).
		SetText(helpText)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.table, 0, 1, false).
		AddItem(d.footer, 1, 0, false)

	d.app.SetRoot(layout, true)
	d.app.SetInputCapture(d.handleKey)
	d.app.SetAfterDrawFunc(func(tcell.Screen) {
		d.drawnOnce.Do(func() { close(d.drawn) })
	})

	for _, opt := range opts {
		opt(d)
	}
	d.renderHeader()
	return d
}

// Update redraws the table with views. Safe to call from any goroutine.
func (d *Dashboard) Update(views []domain.SensorView) {
	d.mu.Lock()
	switch d.state {
	case stateIdle:
		d.render(views)
		d.mu.Unlock()
		return
	case stateStopping:
		d.mu.Unlock()
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	d.app.QueueUpdateDraw(func() {
		d.render(views)
	})
}

// Run shows the dashboard until the user quits or ctx is cancelled. A
// dashboard runs at most once.
func (d *Dashboard) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	d.mu.Lock()
	d.state = stateRunning
	d.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			d.stop()
		case <-d.finished:
		}
	}()

	err := d.app.Run()

	d.mu.Lock()
	d.state = stateIdle
	d.mu.Unlock()
	close(d.finished)

	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// stop lets queued updates drain through the event loop, then stops the
// application. The loop must have drawn once, otherwise Stop is ignored.
func (d *Dashboard) stop() {
	d.mu.Lock()
	if d.state != stateRunning {
		d.mu.Unlock()
		return
	}
	d.state = stateStopping
	d.mu.Unlock()

	go func() {
		select {
		case <-d.drawn:
		case <-d.finished:
			return
		}
		d.inflight.Wait()
		d.app.Stop()
	}()
}

func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape, event.Key() == tcell.KeyCtrlC,
		event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q'):
		d.stop()
		return nil
	case event.Key() == tcell.KeyRune && (event.Rune() == 's' || event.Rune() == 'S'):
		d.takeSnapshot()
		return nil
	case event.Key() == tcell.KeyRune && (event.Rune() == 't' || event.Rune() == 'T'):
		d.toggleSource()
		return nil
	}
	return event
}

// takeSnapshot runs on the UI goroutine, so the footer is set directly.
func (d *Dashboard) takeSnapshot() {
	if d.snapshot == nil {
		d.footer.SetText(helpText + "  [gray]snapshots disabled")
		return
	}
	msg, err := d.snapshot()
	if err != nil {
		d.logger.Error("snapshot failed", "error", err)
		d.footer.SetText(helpText + "  [red]snapshot failed: " + tview.Escape(err.Error()))
		return
	}
	d.footer.SetText(helpText + "  [green]" + tview.Escape(msg))
}

func (d *Dashboard) toggleSource() {
	if d.toggle == nil {
		d.footer.SetText(helpText + "  [gray]simulator toggle disabled")
		return
	}
	d.footer.SetText(helpText + "  [green]" + tview.Escape(d.toggle()))
}

func (d *Dashboard) renderHeader() {
	for col, h := range headers {
		d.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1))
	}
}

func (d *Dashboard) render(views []domain.SensorView) {
	for i, v := range views {
		row := i + 1
		colors := display.StatusColors(v.Status)
		for col, text := range rowText(v) {
			d.table.SetCell(row, col, tview.NewTableCell(text).
				SetTextColor(colors.Fg).
				SetBackgroundColor(colors.Bg).
				SetExpansion(1))
		}
	}
	for row := d.table.GetRowCount() - 1; row > len(views); row-- {
		d.table.RemoveRow(row)
	}
}

func rowText(v domain.SensorView) []string {
	temp, hum, updated := "--", "--", "never"
	if v.HasTemperature {
		temp = fmt.Sprintf("%.1f", v.Temperature)
	}
	if v.HasHumidity {
		hum = fmt.Sprintf("%.0f", v.Humidity)
	}
	if !v.Updated.IsZero() {
		updated = v.Updated.Local().Format("15:04:05")
	}
	return []string{v.Tag, v.Location, temp, hum, updated, statusLabel(v.Status)}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusOK:
		return "OK"
	case domain.StatusNoData:
		return "NO DATA"
	case domain.StatusStale:
		return "OUTDATED"
	case domain.StatusHighTemperature:
		return "HIGH TEMP"
	case domain.StatusLowTemperature:
		return "LOW TEMP"
	default:
		return s.String()
	}
}
