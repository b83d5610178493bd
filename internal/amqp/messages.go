package amqp

import (
	"encoding/json"
	"time"

	"tracker/internal/core"
)

// Routing keys on the events exchange.
const (
	RoutingEntryMaterialized = "entry.materialized"
	RoutingBudgetTierChanged = "budget.tier_changed"
)

// EntryMaterializedMessage announces a ledger entry auto-inserted from a
// recurring template.
type EntryMaterializedMessage struct {
	Owner      string    `json:"owner"`
	EntryID    int64     `json:"entry_id"`
	TemplateID int64     `json:"template_id"`
	Category   string    `json:"category"`
	Amount     string    `json:"amount"`
	Date       string    `json:"date"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEntryMaterializedMessage builds the message for an inserted entry.
func NewEntryMaterializedMessage(e core.LedgerEntry, templateID int64) *EntryMaterializedMessage {
	return &EntryMaterializedMessage{
		Owner:      e.Owner,
		EntryID:    e.ID,
		TemplateID: templateID,
		Category:   e.Category,
		Amount:     string(e.Amount),
		Date:       e.Date,
		Timestamp:  time.Now(),
	}
}

func (m *EntryMaterializedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryMaterializedMessageFromJSON(data []byte) (*EntryMaterializedMessage, error) {
	var msg EntryMaterializedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetTierChangedMessage announces that an owner's budget tier moved.
type BudgetTierChangedMessage struct {
	Owner        string    `json:"owner"`
	PreviousTier core.Tier `json:"previous_tier"`
	Tier         core.Tier `json:"tier"`
	Percent      int       `json:"percent"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewBudgetTierChangedMessage(owner string, previous core.Tier, status core.BudgetStatus) *BudgetTierChangedMessage {
	return &BudgetTierChangedMessage{
		Owner:        owner,
		PreviousTier: previous,
		Tier:         status.Tier,
		Percent:      status.Percent,
		Timestamp:    time.Now(),
	}
}

func (m *BudgetTierChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetTierChangedMessageFromJSON(data []byte) (*BudgetTierChangedMessage, error) {
	var msg BudgetTierChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
