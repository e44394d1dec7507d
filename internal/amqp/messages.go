package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/core"
)

// EventKind says what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is published after every successful mutation. Created and
// updated events carry the full record so consumers never need the database.
type TransactionEvent struct {
	Kind          EventKind         `json:"kind"`
	OwnerID       int64             `json:"owner_id"`
	TransactionID int64             `json:"transaction_id"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewUpsertEvent builds a created or updated event from the stored record.
func NewUpsertEvent(kind EventKind, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:          kind,
		OwnerID:       tx.OwnerID,
		TransactionID: tx.ID,
		Transaction:   &tx,
		Timestamp:     time.Now().UTC(),
	}
}

func NewDeletedEvent(ownerID, id int64) *TransactionEvent {
	return &TransactionEvent{
		Kind:          EventDeleted,
		OwnerID:       ownerID,
		TransactionID: id,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Validate rejects events a consumer cannot act on.
func (e *TransactionEvent) Validate() error {
	if e.TransactionID <= 0 || e.OwnerID <= 0 {
		return fmt.Errorf("event missing ids: owner=%d transaction=%d", e.OwnerID, e.TransactionID)
	}
	switch e.Kind {
	case EventCreated, EventUpdated:
		if e.Transaction == nil {
			return fmt.Errorf("%s event without transaction", e.Kind)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
