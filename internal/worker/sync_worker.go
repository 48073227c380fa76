// Package worker mirrors stored transactions into the external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gagyebu/internal/amqp"
	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
	"gagyebu/internal/log"
	"gagyebu/internal/metrics"
	"gagyebu/internal/sheets"
)

const DefaultBatchSize = 10

// SyncWorker pushes transactions from the ledger to the spreadsheet and
// records the outcome on each row.
type SyncWorker struct {
	tracker   ledger.SyncTracker
	exporter  sheets.TransactionExporter
	metrics   metrics.Recorder
	batchSize int
}

func NewSyncWorker(tracker ledger.SyncTracker, exporter sheets.TransactionExporter, rec metrics.Recorder, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SyncWorker{
		tracker:   tracker,
		exporter:  exporter,
		metrics:   metrics.OrNoOp(rec),
		batchSize: batchSize,
	}
}

// HandleMessage syncs the transaction named by msg. The current database
// state decides between upsert and delete, so out-of-order messages converge
// on the latest state.
//
// Spreadsheet failures are recorded on the row and left to the sweep; only
// ledger failures are returned, which makes the consumer requeue the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version,
		"action", msg.Action)

	state, err := w.tracker.GetSyncState(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown transaction, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sync state: %w", err)
	}

	if msg.Version > 0 && msg.Version < state.Version {
		slog.DebugContext(ctx, "Stale sync message, syncing current state",
			"id", msg.ID,
			"message_version", msg.Version,
			"current_version", state.Version)
	}
	if msg.Action == amqp.ActionDelete && !state.Deleted {
		slog.WarnContext(ctx, "Delete message for a live transaction, syncing current state", "id", msg.ID)
	}

	if err := w.syncOne(ctx, state); err != nil {
		slog.ErrorContext(ctx, "Failed to sync transaction", "id", msg.ID, "error", err)
	}
	return nil
}

// ProcessPending syncs up to one batch of rows that are not yet synced. It is
// the backup path for lost AMQP messages and for earlier failures.
func (w *SyncWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	pending, err := w.tracker.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncOne(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction", "id", p.Transaction.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// Run sweeps pending rows immediately and then every interval until ctx is
// cancelled.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Sync sweep started", "interval", interval, "batch_size", w.batchSize)
	for {
		if synced, failed, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
		} else if synced+failed > 0 {
			slog.InfoContext(ctx, "Sync sweep completed", "synced", synced, "failed", failed)
		}

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sync sweep stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, p ledger.PendingSync) error {
	id := p.Transaction.ID
	action := string(amqp.ActionUpsert)
	start := time.Now()

	var err error
	if p.Deleted {
		action = string(amqp.ActionDelete)
		err = w.exporter.DeleteTransaction(ctx, id)
	} else {
		var ref string
		ref, err = w.exporter.AppendTransaction(ctx, p.Transaction)
		if err == nil {
			slog.DebugContext(ctx, "Transaction exported", "id", id, log.FieldSheetsRef, ref)
		}
	}
	w.metrics.RecordSync(action, err == nil, time.Since(start))

	if err != nil {
		if markErr := w.tracker.MarkSyncError(ctx, id, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("%s transaction %s: %w", action, id, err)
	}

	if err := w.tracker.MarkSynced(ctx, id); err != nil {
		// The spreadsheet already holds the row; the next sweep rewrites it in place.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "Successfully synced transaction",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpSync,
		"id", id,
		"action", action,
		"version", p.Version,
		"amount_won", p.Transaction.Amount.Won)
	return nil
}
