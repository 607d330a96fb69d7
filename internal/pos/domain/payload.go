package domain

import (
	"github.com/google/uuid"
)

// SyncJobVersion is the current wire version of SyncJob payloads.
const SyncJobVersion = 1

// SyncJob is the in-memory job payload referencing one durable queue entry.
// It carries identifiers only; the handler reloads the entry so restarts and
// retries always see the current durable state.
type SyncJob struct {
	Version        int
	TenantID       uuid.UUID
	QueueEntryID   uuid.UUID
	DeviceID       uuid.UUID
	IdempotencyKey string
}

// NewSyncJob builds a sync job payload from a queue entry.
func NewSyncJob(entry *QueueEntry) SyncJob {
	return SyncJob{
		Version:        SyncJobVersion,
		TenantID:       entry.TenantID,
		QueueEntryID:   entry.ID,
		DeviceID:       entry.DeviceID,
		IdempotencyKey: entry.IdempotencyKey,
	}
}

// TransactionPayload is the decrypted JSON structure of an offline transaction.
type TransactionPayload struct {
	LocalTransactionID string     `json:"local_transaction_id"`
	Amount             int64      `json:"amount"`
	Currency           string     `json:"currency"`
	CustomerID         string     `json:"customer_id"`
	PaymentMethodID    string     `json:"payment_method_id"`
	Items              []LineItem `json:"items"`
}

// LineItem is one cart line inside a decrypted transaction payload.
type LineItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
