package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gagyebu/internal/amqp"
	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
	sheetsmem "gagyebu/internal/sheets/memory"
)

type fakeTracker struct {
	mu      sync.Mutex
	rows    map[string]*ledger.PendingSync
	order   []string
	status  map[string]string
	listErr error
}

func newFakeTracker(rows ...ledger.PendingSync) *fakeTracker {
	f := &fakeTracker{rows: map[string]*ledger.PendingSync{}, status: map[string]string{}}
	for i := range rows {
		r := rows[i]
		f.rows[r.Transaction.ID] = &r
		f.order = append(f.order, r.Transaction.ID)
		f.status[r.Transaction.ID] = "pending"
	}
	return f
}

func (f *fakeTracker) ListPendingSync(_ context.Context, limit int) ([]ledger.PendingSync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ledger.PendingSync
	for _, id := range f.order {
		if f.status[id] != "synced" && len(out) < limit {
			out = append(out, *f.rows[id])
		}
	}
	return out, nil
}

func (f *fakeTracker) GetSyncState(_ context.Context, id string) (ledger.PendingSync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return ledger.PendingSync{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return *r, nil
}

func (f *fakeTracker) MarkSynced(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = "synced"
	return nil
}

func (f *fakeTracker) MarkSyncError(_ context.Context, id string, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = "error"
	return nil
}

func (f *fakeTracker) statusOf(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[id]
}

type failingExporter struct{}

func (failingExporter) AppendTransaction(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingExporter) DeleteTransaction(context.Context, string) error {
	return errors.New("quota exceeded")
}

type syncCall struct {
	action  string
	success bool
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []syncCall
}

func (r *recordingRecorder) RecordDuplicateCheck(string, int, bool, time.Duration) {}
func (r *recordingRecorder) RecordTransactionCreated(string)                       {}
func (r *recordingRecorder) RecordTransactionRejected(string)                      {}
func (r *recordingRecorder) RecordTransactionDeleted()                             {}
func (r *recordingRecorder) RecordHTTPRequest(string, string, int, time.Duration)  {}
func (r *recordingRecorder) RecordCacheLookup(string, bool)                        {}
func (r *recordingRecorder) RecordSync(action string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, syncCall{action, success})
}

func pending(id string, deleted bool) ledger.PendingSync {
	return ledger.PendingSync{
		Transaction: core.Transaction{
			ID:          id,
			HouseholdID: "h1",
			Type:        core.Expense,
			Amount:      core.Money{Won: 4500},
			Description: "커피",
			Date:        core.NewDate(2024, 3, 10),
			PersonType:  core.PersonHousehold,
		},
		Deleted: deleted,
		Version: 1,
	}
}

func TestHandleMessage_Upsert(t *testing.T) {
	// Arrange
	tracker := newFakeTracker(pending("t1", false))
	exporter := sheetsmem.New()
	rec := &recordingRecorder{}
	w := NewSyncWorker(tracker, exporter, rec, 0)

	// Act
	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage("t1", "h1", 1))

	// Assert
	require.NoError(t, err)
	rows := exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].ID)
	assert.Equal(t, "synced", tracker.statusOf("t1"))
	assert.Equal(t, []syncCall{{"upsert", true}}, rec.calls)
}

func TestHandleMessage_DeleteFollowsDatabaseState(t *testing.T) {
	ctx := context.Background()
	tracker := newFakeTracker(pending("t1", false))
	exporter := sheetsmem.New()
	w := NewSyncWorker(tracker, exporter, nil, 0)
	require.NoError(t, w.HandleMessage(ctx, amqp.NewTransactionSyncMessage("t1", "h1", 1)))

	tracker.rows["t1"].Deleted = true
	tracker.rows["t1"].Version = 2
	require.NoError(t, w.HandleMessage(ctx, amqp.NewTransactionDeleteMessage("t1", "h1", 0)))
	assert.Empty(t, exporter.Rows())

	// A late upsert for a deleted row must not resurrect it.
	require.NoError(t, w.HandleMessage(ctx, amqp.NewTransactionSyncMessage("t1", "h1", 1)))
	assert.Empty(t, exporter.Rows())
}

func TestHandleMessage_UnknownTransactionIsDropped(t *testing.T) {
	w := NewSyncWorker(newFakeTracker(), sheetsmem.New(), nil, 0)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage("ghost", "h1", 1))

	assert.NoError(t, err)
}

func TestHandleMessage_ExporterFailureMarksError(t *testing.T) {
	tracker := newFakeTracker(pending("t1", false))
	rec := &recordingRecorder{}
	w := NewSyncWorker(tracker, failingExporter{}, rec, 0)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage("t1", "h1", 1))

	assert.NoError(t, err)
	assert.Equal(t, "error", tracker.statusOf("t1"))
	assert.Equal(t, []syncCall{{"upsert", false}}, rec.calls)
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	tracker := newFakeTracker(pending("t1", false), pending("t2", false), pending("t3", true))
	exporter := sheetsmem.New()
	w := NewSyncWorker(tracker, exporter, nil, 2)

	synced, failed, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 0, failed)

	synced, _, err = w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Len(t, exporter.Rows(), 2)
	assert.Equal(t, "synced", tracker.statusOf("t3"))

	synced, failed, err = w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, synced+failed)
}

func TestProcessPending_Failures(t *testing.T) {
	tracker := newFakeTracker(pending("t1", false), pending("t2", true))
	w := NewSyncWorker(tracker, failingExporter{}, nil, 10)

	synced, failed, err := w.ProcessPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 2, failed)

	tracker.listErr = errors.New("database is locked")
	_, _, err = w.ProcessPending(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestRun_StopsOnCancel(t *testing.T) {
	tracker := newFakeTracker(pending("t1", false))
	exporter := sheetsmem.New()
	w := NewSyncWorker(tracker, exporter, nil, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return tracker.statusOf("t1") == "synced" }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.Error(t, w.Run(context.Background(), 0))
}
