package pipeline

import (
	"context"

	"github.com/couchcryptid/control-room/internal/domain"
)

// TableLoader applies readings to the in-memory sensor table.
type TableLoader struct {
	table    *domain.Table
	onUpdate func(domain.Reading)
}

// NewTableLoader creates a loader for table. onUpdate, when non-nil, runs
// after each successful apply on the pipeline goroutine.
func NewTableLoader(table *domain.Table, onUpdate func(domain.Reading)) *TableLoader {
	return &TableLoader{table: table, onUpdate: onUpdate}
}

func (l *TableLoader) Load(_ context.Context, r domain.Reading) error {
	if err := l.table.Apply(r); err != nil {
		return err
	}
	if l.onUpdate != nil {
		l.onUpdate(r)
	}
	return nil
}
