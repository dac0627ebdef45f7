package uart

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/couchcryptid/control-room/internal/config"
	"github.com/couchcryptid/control-room/internal/domain"
	"go.bug.st/serial"
)

// MaxLineLength is the longest line kept; longer lines are dropped whole.
const MaxLineLength = 1024

// Port is the subset of serial.Port the reader needs, so tests can substitute it.
type Port interface {
	Read(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens a real serial port.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Option configures a Reader.
type Option func(*Reader)

// WithPortFactory replaces the function used to open the port.
func WithPortFactory(f PortFactory) Option {
	return func(r *Reader) {
		r.portFactory = f
	}
}

// Reader extracts newline-terminated frames from a serial port.
// It implements pipeline.Extractor.
type Reader struct {
	path        string
	mode        *serial.Mode
	readTimeout time.Duration
	hex         bool
	portFactory PortFactory
	logger      *slog.Logger

	mu   sync.Mutex // protects port
	port Port

	// Owned by the Extract goroutine.
	buf        []byte
	discarding bool
	chunk      []byte
}

// NewReader creates a serial reader for the configured port. The port is not
// opened until the first Extract.
func NewReader(cfg *config.Config, logger *slog.Logger, opts ...Option) *Reader {
	r := &Reader{
		path: cfg.SerialPort,
		mode: &serial.Mode{
			BaudRate: cfg.SerialBaud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		readTimeout: cfg.SerialReadTimeout,
		hex:         cfg.SerialHex,
		portFactory: DefaultPortFactory,
		logger:      logger,
		chunk:       make([]byte, 256),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract blocks until a complete non-empty line arrives, the context is
// cancelled, or the port fails. A failed port is closed and reopened by the
// next call.
func (r *Reader) Extract(ctx context.Context) (domain.RawFrame, error) {
	for {
		if line, ok := r.nextLine(); ok {
			if r.hex {
				r.logger.Info("serial line", "port", r.path, "hex", hex.EncodeToString(line))
			}
			return domain.RawFrame{Line: line, Port: r.path, ReceivedAt: domain.Now()}, nil
		}

		if err := ctx.Err(); err != nil {
			return domain.RawFrame{}, err
		}

		port, err := r.ensureOpen()
		if err != nil {
			return domain.RawFrame{}, err
		}

		// The read timeout bounds how long a cancelled context goes unnoticed.
		n, err := port.Read(r.chunk)
		if err != nil {
			r.reset()
			return domain.RawFrame{}, fmt.Errorf("read serial port %s: %w", r.path, err)
		}
		r.append(r.chunk[:n])
	}
}

// nextLine pops the first complete line from the buffer, skipping empty and
// oversized ones.
func (r *Reader) nextLine() ([]byte, bool) {
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			return nil, false
		}
		line := bytes.TrimRight(r.buf[:i], "\r")
		rest := r.buf[i+1:]

		dropped := r.discarding || len(line) > MaxLineLength
		r.discarding = false
		out := append([]byte(nil), line...)
		r.buf = append(r.buf[:0], rest...)

		if dropped {
			r.logger.Warn("serial line too long, dropped", "port", r.path, "max", MaxLineLength)
			continue
		}
		if len(bytes.TrimSpace(out)) == 0 {
			continue
		}
		return out, true
	}
}

// append adds read bytes to the line buffer. A partial line that outgrows the
// limit is discarded up to its terminating newline. A trailing carriage return
// does not count, since its newline may arrive in the next read.
func (r *Reader) append(p []byte) {
	r.buf = append(r.buf, p...)
	if bytes.IndexByte(r.buf, '\n') < 0 && len(bytes.TrimSuffix(r.buf, []byte{'\r'})) > MaxLineLength {
		r.buf = r.buf[:0]
		r.discarding = true
	}
}

func (r *Reader) ensureOpen() (Port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.port != nil {
		return r.port, nil
	}

	if runtime.GOOS != "windows" {
		if _, err := os.Stat(r.path); err != nil {
			return nil, fmt.Errorf("failed to stat device path %s: %w", r.path, err)
		}
	}

	port, err := r.portFactory(r.path, r.mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", r.path, err)
	}
	if err := port.SetReadTimeout(r.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	r.logger.Info("serial port opened", "port", r.path, "baud", r.mode.BaudRate)
	r.port = port
	return port, nil
}

// reset closes the port after a read failure and drops any partial line.
func (r *Reader) reset() {
	r.buf = r.buf[:0]
	r.discarding = false

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.port == nil {
		return
	}
	if err := r.port.Close(); err != nil {
		r.logger.Warn("failed to close serial port", "port", r.path, "error", err)
	}
	r.port = nil
}

// Connected reports whether the port is currently open.
func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port != nil
}

// CheckReadiness fails while the serial port is closed.
func (r *Reader) CheckReadiness(_ context.Context) error {
	if !r.Connected() {
		return errors.New("serial port " + r.path + " is not open")
	}
	return nil
}

// Close releases the port. Safe to call more than once.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
