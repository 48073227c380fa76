package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/duplicate"
	"gagyebu/internal/ledger"
	"gagyebu/internal/log"
	"gagyebu/internal/metrics"
)

// DefaultLookbackDays bounds how far around the candidate's date the
// duplicate check looks for history.
const DefaultLookbackDays = 90

// Publisher notifies the sync worker about changes. The AMQP client
// implements it.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, householdID string, version int64) error
	PublishTransactionDelete(ctx context.Context, id, householdID string, version int64) error
}

// TransactionStore is the part of a backend the service writes through.
type TransactionStore interface {
	ledger.TransactionWriter
	ledger.TransactionReader
}

// DuplicateError is returned by Create when the transaction very likely
// repeats one already recorded and the caller did not confirm it.
type DuplicateError struct {
	Matches []duplicate.Match
	Warning string
}

func (e *DuplicateError) Error() string {
	return "likely duplicate transaction: " + e.Warning
}

// DuplicateReport is the answer to a duplicate check.
type DuplicateReport struct {
	Matches []duplicate.Match
	Warning string
	Likely  bool
}

// TransactionService orchestrates transaction writes, the duplicate gate and
// sync notifications.
type TransactionService struct {
	store     TransactionStore
	publisher Publisher
	metrics   metrics.Recorder
	opts      duplicate.Options
	lookback  int
	now       func() time.Time
}

type Option func(*TransactionService)

// WithPublisher enables sync notifications. Without one, changes stay local
// until the worker's sweep picks them up.
func WithPublisher(p Publisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *TransactionService) { s.metrics = metrics.OrNoOp(r) }
}

// WithDuplicateOptions sets the tolerances for CheckDuplicates and for the
// matches attached to a DuplicateError. The gate itself always uses the
// strict tolerances.
func WithDuplicateOptions(o duplicate.Options) Option {
	return func(s *TransactionService) { s.opts = o }
}

func WithLookbackDays(days int) Option {
	return func(s *TransactionService) {
		if days > 0 {
			s.lookback = days
		}
	}
}

func NewTransactionService(store TransactionStore, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:    store,
		metrics:  metrics.NoOpRecorder{},
		opts:     duplicate.DefaultOptions(),
		lookback: DefaultLookbackDays,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates and stores tx. Unless confirmDuplicate is set, a likely
// duplicate is refused with a *DuplicateError.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction, confirmDuplicate bool) (core.Transaction, error) {
	tx = normalizeTransaction(tx)
	if err := tx.Validate(); err != nil {
		s.metrics.RecordTransactionRejected("invalid")
		return core.Transaction{}, err
	}

	if !confirmDuplicate {
		start := time.Now()
		history, err := s.history(ctx, tx)
		if err != nil {
			return core.Transaction{}, err
		}
		likely := duplicate.HasLikelyDuplicate(tx, history)
		var matches []duplicate.Match
		if likely {
			matches = duplicate.Detect(tx, history, s.opts)
			if len(matches) == 0 {
				matches = duplicate.Detect(tx, history, duplicate.StrictOptions())
			}
		}
		s.metrics.RecordDuplicateCheck("create", len(matches), likely, time.Since(start))
		if likely {
			s.metrics.RecordTransactionRejected("duplicate")
			warning := duplicate.Warning(matches)
			slog.InfoContext(ctx, "Transaction refused as likely duplicate",
				log.FieldComponent, log.ComponentLedger,
				log.FieldHousehold, tx.HouseholdID,
				log.FieldMatches, len(matches),
				"top_match", matches[0].Transaction.ID)
			return core.Transaction{}, &DuplicateError{Matches: matches, Warning: warning}
		}
	}

	saved, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.metrics.RecordTransactionCreated(string(saved.Type))

	// The row is stored; a failed notification is retried by the worker sweep.
	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, saved.ID, saved.HouseholdID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message", "id", saved.ID, "error", err)
		}
	} else {
		slog.DebugContext(ctx, "No publisher configured, skipping sync message", "id", saved.ID)
	}

	return saved, nil
}

// CheckDuplicates scores tx against the household's history without saving
// anything. tx may be incomplete: only household and type are required.
// Until a positive amount is entered there is nothing to compare, so the
// report stays empty.
func (s *TransactionService) CheckDuplicates(ctx context.Context, tx core.Transaction) (DuplicateReport, error) {
	tx = normalizeTransaction(tx)
	if tx.HouseholdID == "" {
		return DuplicateReport{}, core.ErrEmptyHousehold
	}
	if !tx.Type.IsValid() {
		return DuplicateReport{}, core.ErrInvalidType
	}

	start := time.Now()
	if tx.Amount.Won <= 0 {
		s.metrics.RecordDuplicateCheck("check", 0, false, time.Since(start))
		return DuplicateReport{Matches: []duplicate.Match{}}, nil
	}
	history, err := s.history(ctx, tx)
	if err != nil {
		return DuplicateReport{}, err
	}
	matches := duplicate.Detect(tx, history, s.opts)
	report := DuplicateReport{
		Matches: matches,
		Warning: duplicate.Warning(matches),
		Likely:  duplicate.HasLikelyDuplicate(tx, history),
	}
	s.metrics.RecordDuplicateCheck("check", len(matches), report.Likely, time.Since(start))
	return report, nil
}

// Delete removes a transaction and announces it to the sync worker.
func (s *TransactionService) Delete(ctx context.Context, householdID, id string) error {
	if err := s.store.DeleteTransaction(ctx, householdID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.metrics.RecordTransactionDeleted()

	if s.publisher != nil {
		// Version 0: the worker reads the current version from the database.
		if err := s.publisher.PublishTransactionDelete(ctx, id, householdID, 0); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		}
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, householdID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, householdID, id)
}

func (s *TransactionService) List(ctx context.Context, householdID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	if f.Type != "" && !f.Type.IsValid() {
		return nil, core.ErrInvalidType
	}
	return s.store.ListTransactions(ctx, householdID, f)
}

// history loads same-type transactions within the lookback window around
// the candidate's date, or before today when the candidate has no date yet.
func (s *TransactionService) history(ctx context.Context, tx core.Transaction) ([]core.Transaction, error) {
	f := ledger.TransactionFilter{Type: tx.Type}
	anchor := tx.Date
	if anchor.IsZero() {
		now := s.now().UTC()
		anchor = core.NewDate(now.Year(), int(now.Month()), now.Day())
	} else {
		f.To = core.Date{Time: anchor.AddDate(0, 0, s.lookback)}
	}
	f.From = core.Date{Time: anchor.AddDate(0, 0, -s.lookback)}

	history, err := s.store.ListTransactions(ctx, tx.HouseholdID, f)
	if err != nil {
		return nil, fmt.Errorf("load transaction history: %w", err)
	}
	// A transaction never duplicates itself.
	if tx.ID != "" {
		kept := history[:0:0]
		for _, h := range history {
			if h.ID != tx.ID {
				kept = append(kept, h)
			}
		}
		history = kept
	}
	return history, nil
}

func normalizeTransaction(tx core.Transaction) core.Transaction {
	tx.HouseholdID = strings.TrimSpace(tx.HouseholdID)
	tx.Description = strings.TrimSpace(tx.Description)
	tx.PaymentMethod = strings.TrimSpace(tx.PaymentMethod)
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Memo = strings.TrimSpace(tx.Memo)
	if tx.PersonType == "" {
		tx.PersonType = core.PersonHousehold
	}
	return tx
}

// IsDuplicate reports whether err is a *DuplicateError and returns it.
func IsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
