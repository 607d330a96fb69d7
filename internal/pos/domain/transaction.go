package domain

import (
	"time"

	"github.com/google/uuid"
)

// OfflineTransaction is the immutable audit record written after a queue entry
// syncs successfully. One record per queue entry.
type OfflineTransaction struct {
	// ID is the unique identifier for this audit record.
	ID uuid.UUID
	// TenantID scopes the record to a single tenant.
	TenantID uuid.UUID
	// DeviceID is the device that originated the transaction.
	DeviceID uuid.UUID
	// QueueEntryID references the synced queue entry (unique).
	QueueEntryID uuid.UUID
	// LocalTransactionID is copied from the queue entry for query convenience.
	LocalTransactionID string
	// OfflineAt is the client timestamp when the sale happened offline.
	OfflineAt time.Time
	// PaymentIntentID is the payment provider reference created during sync.
	PaymentIntentID string
	// Amount is the transaction total in minor currency units.
	Amount int64
	// Currency is the ISO 4217 currency code.
	Currency string
	// SyncedAt is the server timestamp when the sync completed.
	SyncedAt time.Time
	// SyncDuration is how long the sync attempt took.
	SyncDuration time.Duration
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
}
