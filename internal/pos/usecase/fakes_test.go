package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// fakeTxManager runs the function directly; the fakes below are their own
// source of truth and need no transactional scope.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDeviceRepository struct {
	mu      sync.Mutex
	devices map[uuid.UUID]*posDomain.Device
}

func newFakeDeviceRepository() *fakeDeviceRepository {
	return &fakeDeviceRepository{devices: make(map[uuid.UUID]*posDomain.Device)}
}

func (f *fakeDeviceRepository) Create(ctx context.Context, device *posDomain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.devices {
		if existing.TenantID == device.TenantID && existing.DeviceIdentifier == device.DeviceIdentifier {
			return apperrors.Wrap(apperrors.ErrConflict, "device identifier already registered")
		}
	}
	clone := *device
	f.devices[device.ID] = &clone
	return nil
}

func (f *fakeDeviceRepository) Update(ctx context.Context, device *posDomain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[device.ID]; !ok {
		return posDomain.ErrDeviceNotFound
	}
	clone := *device
	f.devices[device.ID] = &clone
	return nil
}

func (f *fakeDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.devices[id]
	if !ok {
		return nil, posDomain.ErrDeviceNotFound
	}
	clone := *device
	return &clone, nil
}

func (f *fakeDeviceRepository) GetByTenantAndIdentifier(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*posDomain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, device := range f.devices {
		if device.TenantID == tenantID && device.DeviceIdentifier == identifier {
			clone := *device
			return &clone, nil
		}
	}
	return nil, posDomain.ErrDeviceNotFound
}

func (f *fakeDeviceRepository) GetByPairingCode(ctx context.Context, code string) (*posDomain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, device := range f.devices {
		if device.Status == posDomain.DeviceStatusPending &&
			device.PairingCode != nil && *device.PairingCode == code {
			clone := *device
			return &clone, nil
		}
	}
	return nil, posDomain.ErrDeviceNotFound
}

func (f *fakeDeviceRepository) ListActiveByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*posDomain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var devices []*posDomain.Device
	for _, device := range f.devices {
		if device.TenantID == tenantID && device.Status == posDomain.DeviceStatusActive {
			clone := *device
			devices = append(devices, &clone)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceName < devices[j].DeviceName })
	if offset >= len(devices) {
		return nil, nil
	}
	devices = devices[offset:]
	if limit > 0 && limit < len(devices) {
		devices = devices[:limit]
	}
	return devices, nil
}

type deviceKeyID struct {
	deviceID uuid.UUID
	version  int
}

type fakeDeviceKeyRepository struct {
	mu   sync.Mutex
	keys map[deviceKeyID]*posDomain.DeviceKey
}

func newFakeDeviceKeyRepository() *fakeDeviceKeyRepository {
	return &fakeDeviceKeyRepository{keys: make(map[deviceKeyID]*posDomain.DeviceKey)}
}

func (f *fakeDeviceKeyRepository) Create(ctx context.Context, key *posDomain.DeviceKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := deviceKeyID{deviceID: key.DeviceID, version: key.KeyVersion}
	if _, ok := f.keys[id]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "device key version already exists")
	}
	clone := *key
	f.keys[id] = &clone
	return nil
}

func (f *fakeDeviceKeyRepository) GetByDeviceAndVersion(
	ctx context.Context,
	deviceID uuid.UUID,
	version int,
) (*posDomain.DeviceKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[deviceKeyID{deviceID: deviceID, version: version}]
	if !ok {
		return nil, posDomain.ErrKeyVersionNotFound
	}
	clone := *key
	return &clone, nil
}

type fakeQueueEntryRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*posDomain.QueueEntry
	byKey   map[string]uuid.UUID
}

func newFakeQueueEntryRepository() *fakeQueueEntryRepository {
	return &fakeQueueEntryRepository{
		entries: make(map[uuid.UUID]*posDomain.QueueEntry),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (f *fakeQueueEntryRepository) Create(ctx context.Context, entry *posDomain.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byKey[entry.IdempotencyKey]; ok {
		return posDomain.ErrDuplicateTransaction
	}
	clone := *entry
	f.entries[entry.ID] = &clone
	f.byKey[entry.IdempotencyKey] = entry.ID
	return nil
}

func (f *fakeQueueEntryRepository) Update(ctx context.Context, entry *posDomain.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entry.ID]; !ok {
		return posDomain.ErrQueueEntryNotFound
	}
	clone := *entry
	f.entries[entry.ID] = &clone
	return nil
}

func (f *fakeQueueEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, posDomain.ErrQueueEntryNotFound
	}
	clone := *entry
	return &clone, nil
}

func (f *fakeQueueEntryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*posDomain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byKey[key]
	if !ok {
		return nil, posDomain.ErrQueueEntryNotFound
	}
	clone := *f.entries[id]
	return &clone, nil
}

func (f *fakeQueueEntryRepository) ListQueued(ctx context.Context, limit int) ([]*posDomain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rank := map[posDomain.SyncPriority]int{
		posDomain.SyncPriorityCritical: 0,
		posDomain.SyncPriorityHigh:     1,
		posDomain.SyncPriorityDefault:  2,
	}
	var entries []*posDomain.QueueEntry
	for _, entry := range f.entries {
		if entry.SyncStatus == posDomain.SyncStatusQueued {
			clone := *entry
			entries = append(entries, &clone)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if rank[entries[i].SyncPriority] != rank[entries[j].SyncPriority] {
			return rank[entries[i].SyncPriority] < rank[entries[j].SyncPriority]
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeQueueEntryRepository) ListByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
	offset, limit int,
) ([]*posDomain.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []*posDomain.QueueEntry
	for _, entry := range f.entries {
		if entry.DeviceID == deviceID && entry.SyncStatus == status {
			clone := *entry
			entries = append(entries, &clone)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeQueueEntryRepository) CountByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, entry := range f.entries {
		if entry.DeviceID == deviceID && entry.SyncStatus == status {
			count++
		}
	}
	return count, nil
}

type fakeTransactionRepository struct {
	mu           sync.Mutex
	byQueueEntry map[uuid.UUID]*posDomain.OfflineTransaction
	byLocalTx    map[string]uuid.UUID
}

func newFakeTransactionRepository() *fakeTransactionRepository {
	return &fakeTransactionRepository{
		byQueueEntry: make(map[uuid.UUID]*posDomain.OfflineTransaction),
		byLocalTx:    make(map[string]uuid.UUID),
	}
}

func localTxKey(deviceID uuid.UUID, localTransactionID string) string {
	return deviceID.String() + ":" + localTransactionID
}

func (f *fakeTransactionRepository) Create(ctx context.Context, tx *posDomain.OfflineTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byQueueEntry[tx.QueueEntryID]; ok {
		return posDomain.ErrDuplicateTransaction
	}
	clone := *tx
	f.byQueueEntry[tx.QueueEntryID] = &clone
	f.byLocalTx[localTxKey(tx.DeviceID, tx.LocalTransactionID)] = tx.QueueEntryID
	return nil
}

func (f *fakeTransactionRepository) GetByQueueEntryID(
	ctx context.Context,
	queueEntryID uuid.UUID,
) (*posDomain.OfflineTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.byQueueEntry[queueEntryID]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "offline transaction not found")
	}
	clone := *tx
	return &clone, nil
}

func (f *fakeTransactionRepository) GetByDeviceAndLocalTransactionID(
	ctx context.Context,
	deviceID uuid.UUID,
	localTransactionID string,
) (*posDomain.OfflineTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byLocalTx[localTxKey(deviceID, localTransactionID)]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "offline transaction not found")
	}
	clone := *f.byQueueEntry[id]
	return &clone, nil
}

func (f *fakeTransactionRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byQueueEntry)
}

type fakeActivityLogRepository struct {
	mu   sync.Mutex
	logs []*posDomain.ActivityLog
}

func newFakeActivityLogRepository() *fakeActivityLogRepository {
	return &fakeActivityLogRepository{}
}

func (f *fakeActivityLogRepository) Create(ctx context.Context, log *posDomain.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *log
	f.logs = append(f.logs, &clone)
	return nil
}

func (f *fakeActivityLogRepository) ListByDevice(
	ctx context.Context,
	deviceID uuid.UUID,
	offset, limit int,
) ([]*posDomain.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var logs []*posDomain.ActivityLog
	for _, log := range f.logs {
		if log.DeviceID == deviceID {
			clone := *log
			logs = append(logs, &clone)
		}
	}
	if offset >= len(logs) {
		return nil, nil
	}
	logs = logs[offset:]
	if limit > 0 && limit < len(logs) {
		logs = logs[:limit]
	}
	return logs, nil
}

func (f *fakeActivityLogRepository) countByType(activity posDomain.ActivityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, log := range f.logs {
		if log.ActivityType == activity {
			count++
		}
	}
	return count
}
