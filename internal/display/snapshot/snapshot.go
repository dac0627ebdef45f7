// Package snapshot dumps the classified sensor table to a JSON file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/spf13/afero"
)

// Document is the on-disk snapshot format.
type Document struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Sensors     []domain.SensorView `json:"sensors"`
}

// Writer replaces the snapshot file atomically on every write.
type Writer struct {
	fs   afero.Fs
	path string
}

// NewWriter creates a Writer for path on fs.
func NewWriter(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

// Path returns the destination file.
func (w *Writer) Path() string {
	return w.path
}

// Write encodes the views to a temporary file beside the destination and
// renames it into place, so readers never see a partial document.
func (w *Writer) Write(views []domain.SensorView, at time.Time) error {
	dir := filepath.Dir(w.path)
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := afero.TempFile(w.fs, dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	encErr := enc.Encode(Document{GeneratedAt: at.UTC(), Sensors: views})
	closeErr := tmp.Close()
	if encErr != nil || closeErr != nil {
		_ = w.fs.Remove(tmpName)
		if encErr != nil {
			return fmt.Errorf("encode snapshot: %w", encErr)
		}
		return fmt.Errorf("close snapshot temp file: %w", closeErr)
	}

	if err := w.fs.Rename(tmpName, w.path); err != nil {
		_ = w.fs.Remove(tmpName)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Read loads a snapshot written by Write.
func Read(fs afero.Fs, path string) (Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Document{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return doc, nil
}
