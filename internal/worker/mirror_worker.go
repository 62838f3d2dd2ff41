// Package worker keeps a secondary ledger store in step with the primary
// one, driven by "transaction appended" notifications.
package worker

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/sheets"
)

// seenCapacity bounds the message IDs remembered for redelivery detection.
const seenCapacity = 1024

// MirrorWorker replays appended transactions into a mirror store and
// periodically reconciles it against the primary store, which always wins.
type MirrorWorker struct {
	source sheets.LedgerLoader
	mirror sheets.LedgerStore
	logger *log.Logger

	// mu serializes the load-modify-save cycles on the mirror.
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func NewMirrorWorker(source sheets.LedgerLoader, mirror sheets.LedgerStore, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentBackend),
		seen:   make(map[string]struct{}),
	}
}

// HandleTransactionAppended appends the announced transaction to the mirror.
// A message ID that was already applied is acknowledged without effect.
func (w *MirrorWorker) HandleTransactionAppended(ctx context.Context, msg *amqp.TransactionAppendedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.seen[msg.ID]; dup {
		w.logger.DebugContext(ctx, "Skipping redelivered message", "id", msg.ID)
		return nil
	}

	tx, err := msg.Transaction()
	if err != nil {
		// Undecodable content will never succeed; drop it instead of requeueing.
		w.logger.WarnContext(ctx, "Discarding invalid notification", "id", msg.ID, log.FieldError, err)
		w.remember(msg.ID)
		return nil
	}

	current, err := w.loadMirror(ctx)
	if err != nil {
		return err
	}
	next, err := ledger.Append(current, tx)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}
	if err := w.mirror.Save(ctx, next); err != nil {
		return fmt.Errorf("save mirror: %w", err)
	}
	w.remember(msg.ID)

	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpAppend)
	w.logger.InfoContext(ctx, "Mirrored transaction", append(fields.ToSlice(), "id", msg.ID)...)
	return nil
}

// Reconcile copies the primary ledger over the mirror when they differ.
// It reports whether the mirror was rewritten.
func (w *MirrorWorker) Reconcile(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.source.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load source: %w", err)
	}
	primary, dropped := ledger.Normalize(rows)
	if len(dropped) > 0 {
		w.logger.WarnContext(ctx, "Source has malformed rows", log.FieldDropped, len(dropped))
	}

	current, err := w.loadMirror(ctx)
	if err != nil {
		return false, err
	}
	if sameTransactions(primary.Transactions(), current.Transactions()) {
		w.logger.DebugContext(ctx, "Mirror up to date", log.FieldRows, primary.Len())
		return false, nil
	}

	if err := w.mirror.Save(ctx, primary); err != nil {
		return false, fmt.Errorf("save mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirror reconciled",
		log.FieldRows, primary.Len(), "previous_rows", current.Len())
	return true, nil
}

func (w *MirrorWorker) loadMirror(ctx context.Context) (ledger.Ledger, error) {
	rows, err := w.mirror.Load(ctx)
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("load mirror: %w", err)
	}
	l, _ := ledger.Normalize(rows)
	return l, nil
}

func (w *MirrorWorker) remember(id string) {
	if id == "" {
		return
	}
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
	if len(w.order) > seenCapacity {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
}

func sameTransactions(a, b []core.Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if !x.Date.Equal(y.Date.Time) || x.Kind != y.Kind || x.Category != y.Category ||
			x.Note != y.Note || !x.Amount.Equal(y.Amount) {
			return false
		}
	}
	return true
}
