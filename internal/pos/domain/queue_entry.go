package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/jobs"
)

// SyncStatus is the durable state of an offline queue entry.
type SyncStatus string

const (
	// SyncStatusQueued means the entry is waiting for a sync attempt.
	SyncStatusQueued SyncStatus = "queued"
	// SyncStatusProcessing means a sync attempt has claimed the entry.
	SyncStatusProcessing SyncStatus = "processing"
	// SyncStatusCompleted is terminal success.
	SyncStatusCompleted SyncStatus = "completed"
	// SyncStatusFailed is terminal failure pending operator remediation.
	SyncStatusFailed SyncStatus = "failed"
)

// SyncPriority is the client-requested sync priority for a queue entry.
type SyncPriority string

const (
	SyncPriorityCritical SyncPriority = "critical"
	SyncPriorityHigh     SyncPriority = "high"
	SyncPriorityDefault  SyncPriority = "default"
)

// ParseSyncPriority maps a client-supplied priority string to a SyncPriority,
// falling back to high for unknown or empty values.
func ParseSyncPriority(value string) SyncPriority {
	switch SyncPriority(value) {
	case SyncPriorityCritical, SyncPriorityHigh, SyncPriorityDefault:
		return SyncPriority(value)
	default:
		return SyncPriorityHigh
	}
}

// JobPriority maps the durable sync priority to an in-memory job lane.
func (p SyncPriority) JobPriority() jobs.Priority {
	switch p {
	case SyncPriorityCritical:
		return jobs.PriorityCritical
	case SyncPriorityDefault:
		return jobs.PriorityDefault
	default:
		return jobs.PriorityHigh
	}
}

// QueueEntry is one encrypted offline transaction waiting to be replayed.
// The server never sees the plaintext until the sync handler decrypts it with
// the device key version recorded at upload time.
type QueueEntry struct {
	// ID is the unique identifier for this entry.
	ID uuid.UUID
	// TenantID scopes the entry to a single tenant.
	TenantID uuid.UUID
	// DeviceID is the device that uploaded the entry.
	DeviceID uuid.UUID
	// EncryptedPayload is the AES-256-GCM ciphertext (tag appended).
	EncryptedPayload []byte
	// EncryptionKeyVersion pins the device key version used by the client.
	EncryptionKeyVersion int
	// EncryptionIV is the 12-byte GCM nonce chosen by the client.
	EncryptionIV []byte
	// LocalTransactionID is the client-side transaction identifier.
	LocalTransactionID string
	// TransactionAt is the client timestamp when the sale happened offline.
	TransactionAt time.Time
	// Amount is the transaction total in minor currency units.
	Amount int64
	// Currency is the ISO 4217 currency code.
	Currency string
	// SyncStatus is the durable sync state.
	SyncStatus SyncStatus
	// SyncPriority selects the in-memory job lane.
	SyncPriority SyncPriority
	// SyncStartedAt is when the latest attempt claimed the entry.
	SyncStartedAt *time.Time
	// SyncCompletedAt is when the entry reached completed.
	SyncCompletedAt *time.Time
	// AttemptCount is the number of sync attempts made so far.
	AttemptCount int
	// LastSyncError is the message from the most recent failed attempt.
	LastSyncError string
	// IdempotencyKey is the unique de-duplication token (tenant:device:localTxID).
	IdempotencyKey string
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last state change.
	UpdatedAt time.Time
}

// NewIdempotencyKey builds the unique de-duplication token for one offline
// transaction. The same triple always produces the same key, which is what
// makes replays collapse instead of double-charging.
func NewIdempotencyKey(tenantID, deviceID uuid.UUID, localTransactionID string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, deviceID, localTransactionID)
}
