// Package usecase implements business logic orchestration for POS device
// pairing and offline transaction sync. Use cases coordinate repositories,
// cryptographic services, the priority job framework, and the payment provider.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// DeviceRepository defines the interface for Device persistence operations.
type DeviceRepository interface {
	Create(ctx context.Context, device *posDomain.Device) error
	Update(ctx context.Context, device *posDomain.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*posDomain.Device, error)
	GetByTenantAndIdentifier(ctx context.Context, tenantID uuid.UUID, identifier string) (*posDomain.Device, error)
	GetByPairingCode(ctx context.Context, code string) (*posDomain.Device, error)
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*posDomain.Device, error)
}

// DeviceKeyRepository defines the interface for DeviceKey persistence operations.
type DeviceKeyRepository interface {
	Create(ctx context.Context, key *posDomain.DeviceKey) error
	GetByDeviceAndVersion(ctx context.Context, deviceID uuid.UUID, version int) (*posDomain.DeviceKey, error)
}

// QueueEntryRepository defines the interface for QueueEntry persistence operations.
type QueueEntryRepository interface {
	Create(ctx context.Context, entry *posDomain.QueueEntry) error
	Update(ctx context.Context, entry *posDomain.QueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*posDomain.QueueEntry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*posDomain.QueueEntry, error)
	ListQueued(ctx context.Context, limit int) ([]*posDomain.QueueEntry, error)
	ListByDeviceAndStatus(
		ctx context.Context,
		deviceID uuid.UUID,
		status posDomain.SyncStatus,
		offset, limit int,
	) ([]*posDomain.QueueEntry, error)
	CountByDeviceAndStatus(ctx context.Context, deviceID uuid.UUID, status posDomain.SyncStatus) (int64, error)
}

// OfflineTransactionRepository defines the interface for audit record persistence.
type OfflineTransactionRepository interface {
	Create(ctx context.Context, tx *posDomain.OfflineTransaction) error
	GetByQueueEntryID(ctx context.Context, queueEntryID uuid.UUID) (*posDomain.OfflineTransaction, error)
	GetByDeviceAndLocalTransactionID(
		ctx context.Context,
		deviceID uuid.UUID,
		localTransactionID string,
	) (*posDomain.OfflineTransaction, error)
}

// ActivityLogRepository defines the interface for device audit trail persistence.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *posDomain.ActivityLog) error
	ListByDevice(ctx context.Context, deviceID uuid.UUID, offset, limit int) ([]*posDomain.ActivityLog, error)
}

// InitiatePairingInput carries the device registration details.
type InitiatePairingInput struct {
	DeviceIdentifier string
	DeviceName       string
	LocationName     string
	HardwareModel    string
}

// PairingResult is returned by CompletePairing. EncryptionKey holds the raw
// device key base64-encoded; this is the only time it ever leaves the server.
type PairingResult struct {
	DeviceID             uuid.UUID
	DeviceName           string
	EncryptionKey        string
	EncryptionKeyVersion int
}

// DeviceUseCase defines the business logic for the device pairing lifecycle.
type DeviceUseCase interface {
	// InitiatePairing registers a device (or refreshes the code of a known
	// non-active one) and returns it carrying a fresh pairing code.
	InitiatePairing(ctx context.Context, in InitiatePairingInput) (*posDomain.Device, error)
	// CompletePairing activates the pending device holding the code and returns
	// the raw encryption key exactly once. Invalid and expired codes both
	// return posDomain.ErrPairingFailed.
	CompletePairing(ctx context.Context, code string) (*PairingResult, error)
	Heartbeat(ctx context.Context, deviceID uuid.UUID, firmwareVersion string) error
	MarkSyncCompleted(ctx context.Context, deviceID uuid.UUID) error
	Suspend(ctx context.Context, deviceID uuid.UUID) error
	Reactivate(ctx context.Context, deviceID uuid.UUID) error
	Retire(ctx context.Context, deviceID uuid.UUID) error
	ListActiveDevices(ctx context.Context, offset, limit int) ([]*posDomain.Device, error)
}

// UploadItem is one encrypted transaction inside an upload batch.
type UploadItem struct {
	LocalTransactionID   string
	EncryptedPayload     []byte
	EncryptionIV         []byte
	EncryptionKeyVersion int
	TransactionAt        time.Time
	Amount               int64
	Currency             string
	Priority             posDomain.SyncPriority
}

// UploadResult reports how an upload batch was handled.
type UploadResult struct {
	Accepted   int
	Duplicates int
}

// QueueStatus summarizes the sync queue for one device.
type QueueStatus struct {
	Queued       int64
	Processing   int64
	Failed       int64
	Completed    int64
	LastSyncedAt *time.Time
}

// SyncUseCase defines the business logic for offline transaction sync.
type SyncUseCase interface {
	// UploadBatch persists and enqueues a batch of encrypted transactions for
	// an active device owned by the calling tenant.
	UploadBatch(ctx context.Context, deviceID uuid.UUID, firmwareVersion string, items []UploadItem) (*UploadResult, error)
	// EnqueueSync pushes a persisted queue entry onto the in-memory job queue.
	EnqueueSync(ctx context.Context, entry *posDomain.QueueEntry) error
	// ProcessNext drains one job from the in-memory queue (dispatcher hook).
	ProcessNext(ctx context.Context) bool
	// DispatchLoop ticks at the configured interval draining bounded batches
	// until the context is cancelled.
	DispatchLoop(ctx context.Context)
	// RecoverQueued re-enqueues durable QUEUED entries after a restart.
	RecoverQueued(ctx context.Context, limit int) (int, error)
	// RequeueFailed resets a FAILED entry to QUEUED for another run.
	RequeueFailed(ctx context.Context, entryID uuid.UUID) error
	// Status reports per-status queue counts for a device.
	Status(ctx context.Context, deviceID uuid.UUID) (*QueueStatus, error)
}
