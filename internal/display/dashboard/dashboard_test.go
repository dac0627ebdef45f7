package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.January, 12, 18, 4, 11, 0, time.UTC)

func testViews() []domain.SensorView {
	table := domain.NewTable(domain.DefaultCatalog())
	_ = table.Apply(domain.Reading{Tag: "LA1", Field: domain.FieldTemperature, Value: 21.5, ReceivedAt: testNow})
	_ = table.Apply(domain.Reading{Tag: "LA2", Field: domain.FieldTemperature, Value: 20, ReceivedAt: testNow.Add(-time.Minute)})
	_ = table.Apply(domain.Reading{Tag: "VA1", Field: domain.FieldTemperature, Value: 35, ReceivedAt: testNow})
	_ = table.Apply(domain.Reading{Tag: "VA2", Field: domain.FieldTemperature, Value: 2, ReceivedAt: testNow})
	_ = table.Apply(domain.Reading{Tag: "VA2", Field: domain.FieldHumidity, Value: 47.6, ReceivedAt: testNow})
	return table.Views(testNow, domain.DefaultStaleAfter)
}

func newTestScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, sim.Init())
	sim.SetSize(100, 16)
	return sim
}

func screenText(sim tcell.SimulationScreen) string {
	cells, width, _ := sim.GetContents()
	var b strings.Builder
	for i, c := range cells {
		if len(c.Runes) > 0 {
			b.WriteRune(c.Runes[0])
		} else {
			b.WriteRune(' ')
		}
		if (i+1)%width == 0 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

func TestDashboard_Render(t *testing.T) {
	d := New("Villa Astrid Control Room", slog.Default())
	d.Update(testViews())

	require.Equal(t, 9, d.table.GetRowCount())
	assert.Equal(t, "Sensor", d.table.GetCell(0, 0).Text)

	tests := []struct {
		row    int
		texts  []string
		bg, fg tcell.Color
	}{
		{1, []string{"LA1", "Lilla Astrid", "21.5", "--"}, tcell.ColorGreen, tcell.ColorWhite},
		{2, []string{"LA2", "Studio", "20.0", "--"}, tcell.ColorOrange, tcell.ColorBlack},
		{3, []string{"VA1", "MH1", "35.0", "--"}, tcell.ColorRed, tcell.ColorWhite},
		{4, []string{"VA2", "MH2", "2.0", "48"}, tcell.ColorBlue, tcell.ColorWhite},
		{5, []string{"VA3", "Parvi", "--", "--", "never", "NO DATA"}, tcell.ColorGray, tcell.ColorBlack},
	}
	for _, tt := range tests {
		for col, want := range tt.texts {
			cell := d.table.GetCell(tt.row, col)
			assert.Equal(t, want, cell.Text, "row %d col %d", tt.row, col)
			assert.Equal(t, tt.bg, cell.BackgroundColor, "row %d col %d", tt.row, col)
			assert.Equal(t, tt.fg, cell.Color, "row %d col %d", tt.row, col)
		}
	}
	assert.Equal(t, "OUTDATED", d.table.GetCell(2, 5).Text)
	assert.Equal(t, "HIGH TEMP", d.table.GetCell(3, 5).Text)
	assert.Equal(t, "LOW TEMP", d.table.GetCell(4, 5).Text)

	d.Update(testViews()[:2])
	assert.Equal(t, 3, d.table.GetRowCount(), "rows beyond the views are removed")
}

func TestDashboard_RunDrawsAndHandlesKeys(t *testing.T) {
	sim := newTestScreen(t)

	snapshots := make(chan struct{}, 1)
	d := New("Cabin", slog.Default(), WithScreen(sim), WithSnapshot(func() (string, error) {
		snapshots <- struct{}{}
		return "snapshot written to /tmp/sensors.json", nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.state == stateRunning
	}, time.Second, 10*time.Millisecond)

	d.Update(testViews())
	require.Eventually(t, func() bool {
		text := screenText(sim)
		return strings.Contains(text, "Cabin") && strings.Contains(text, "HIGH TEMP")
	}, 2*time.Second, 20*time.Millisecond)

	sim.InjectKey(tcell.KeyRune, 's', tcell.ModNone)
	select {
	case <-snapshots:
	case <-ctx.Done():
		t.Fatal("snapshot key not handled")
	}

	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("quit key not handled")
	}
	assert.Contains(t, d.footer.GetText(true), "snapshot written to /tmp/sensors.json")
}

func TestDashboard_RunStopsOnCancel(t *testing.T) {
	d := New("Cabin", slog.Default(), WithScreen(newTestScreen(t)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.state == stateRunning
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard did not stop")
	}
}

func TestDashboard_SnapshotFailure(t *testing.T) {
	d := New("Cabin", slog.Default(), WithSnapshot(func() (string, error) {
		return "", errors.New("read-only file system")
	}))

	d.takeSnapshot()
	assert.Contains(t, d.footer.GetText(true), "snapshot failed: read-only file system")

	d = New("Cabin", slog.Default())
	d.takeSnapshot()
	assert.Contains(t, d.footer.GetText(true), "snapshots disabled")
}

func TestDashboard_UpdatesWhileStarting(t *testing.T) {
	sim := newTestScreen(t)
	d := New("Cabin", slog.Default(), WithScreen(sim))
	views := testViews()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				d.Update(views)
			}
		}()
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	wg.Wait()
	require.Eventually(t, func() bool {
		return strings.Contains(screenText(sim), "HIGH TEMP")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard did not stop")
	}
}

func TestDashboard_UpdatesDuringShutdownDoNotBlock(t *testing.T) {
	d := New("Cabin", slog.Default(), WithScreen(newTestScreen(t)))
	views := testViews()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	stopUpdates := make(chan struct{})
	updated := make(chan struct{})
	go func() {
		defer close(updated)
		for {
			select {
			case <-stopUpdates:
				return
			default:
				d.Update(views)
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard did not stop")
	}

	close(stopUpdates)
	select {
	case <-updated:
	case <-time.After(2 * time.Second):
		t.Fatal("update blocked after the dashboard stopped")
	}
	assert.Equal(t, 9, d.table.GetRowCount())
}

func TestDashboard_CtrlCQuits(t *testing.T) {
	sim := newTestScreen(t)
	d := New("Cabin", slog.Default(), WithScreen(sim))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(screenText(sim), "Cabin")
	}, 2*time.Second, 20*time.Millisecond)

	sim.InjectKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("ctrl-c not handled")
	}
}

func TestDashboard_Toggle(t *testing.T) {
	simulating := false
	d := New("Cabin", slog.Default(), WithToggle(func() string {
		simulating = !simulating
		if simulating {
			return "source: simulator"
		}
		return "source: serial port"
	}))

	d.toggleSource()
	assert.True(t, simulating)
	assert.Contains(t, d.footer.GetText(true), "source: simulator")

	d.toggleSource()
	assert.False(t, simulating)
	assert.Contains(t, d.footer.GetText(true), "source: serial port")

	d = New("Cabin", slog.Default())
	d.toggleSource()
	assert.Contains(t, d.footer.GetText(true), "simulator toggle disabled")
}
