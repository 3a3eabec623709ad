package events

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger event bus.
const (
	KindExpenseCreated     = "expense.created"
	KindExpenseDeleted     = "expense.deleted"
	KindOwedSettled        = "owed.settled"
	KindOwedToMeSettled    = "owedtome.settled"
	KindMaterializationRun = "materialization.run"
)

// LedgerEvent is a lightweight notification about a ledger change.
// Consumers that need the full record fetch it from the store; the event
// carries only identity and a few display fields.
type LedgerEvent struct {
	Kind        string    `json:"kind"`
	UserID      string    `json:"userId"`
	RecordID    string    `json:"recordId,omitempty"`
	AmountCents int64     `json:"amountCents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Person      string    `json:"person,omitempty"`
	Count       int       `json:"count,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind, userID string) LedgerEvent {
	return LedgerEvent{Kind: kind, UserID: userID, Timestamp: time.Now()}
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	return e, nil
}
