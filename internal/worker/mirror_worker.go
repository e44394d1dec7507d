package worker

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/sheets"
)

// MirrorWorker applies transaction events to a mirror.
type MirrorWorker struct {
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Prepare runs one-off setup on the mirror before events are consumed.
func (w *MirrorWorker) Prepare(ctx context.Context) error {
	hw, ok := w.mirror.(sheets.HeaderWriter)
	if !ok {
		return nil
	}
	if err := hw.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("ensure mirror header: %w", err)
	}
	return nil
}

// HandleEvent processes a single transaction event from AMQP. A returned
// error makes the consumer requeue the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldEventKind, ev.Kind,
		log.FieldTxID, ev.TransactionID,
		log.FieldUserID, ev.OwnerID)

	switch ev.Kind {
	case amqp.EventCreated, amqp.EventUpdated:
		if ev.Transaction == nil {
			return fmt.Errorf("%s event for transaction %d has no snapshot", ev.Kind, ev.TransactionID)
		}
		ref, err := w.mirror.Upsert(ctx, *ev.Transaction)
		if err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
		w.logger.InfoContext(ctx, "Mirrored transaction",
			log.FieldTxID, ev.TransactionID,
			log.FieldOperation, log.OpMirror,
			"row_ref", ref)

	case amqp.EventDeleted:
		if err := w.mirror.Delete(ctx, ev.OwnerID, ev.TransactionID); err != nil {
			return fmt.Errorf("mirror delete: %w", err)
		}
		w.logger.InfoContext(ctx, "Removed mirrored transaction",
			log.FieldTxID, ev.TransactionID)

	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}
