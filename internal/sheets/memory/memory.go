// Package memory is a spreadsheet stand-in that keeps exported rows in
// process. The worker uses it when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gagyebu/internal/core"
	"gagyebu/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransaction stores tx and returns a synthetic row reference. An
// existing row for the same id is replaced.
func (e *Exporter) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("append transaction: %w", core.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rows {
		if r.ID == tx.ID {
			e.rows[i] = tx
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	e.rows = append(e.rows, tx)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) DeleteTransaction(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rows {
		if r.ID == id {
			e.rows = append(e.rows[:i], e.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the exported rows in insertion order.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.rows...)
}
