package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/metrics"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// deviceUseCaseWithMetrics decorates DeviceUseCase with metrics instrumentation.
type deviceUseCaseWithMetrics struct {
	next    DeviceUseCase
	metrics metrics.BusinessMetrics
}

// NewDeviceUseCaseWithMetrics wraps a DeviceUseCase with metrics recording.
func NewDeviceUseCaseWithMetrics(useCase DeviceUseCase, m metrics.BusinessMetrics) DeviceUseCase {
	return &deviceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// InitiatePairing records metrics for pairing initiation operations.
func (d *deviceUseCaseWithMetrics) InitiatePairing(
	ctx context.Context,
	in InitiatePairingInput,
) (*posDomain.Device, error) {
	start := time.Now()
	device, err := d.next.InitiatePairing(ctx, in)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "initiate_pairing", status)
	d.metrics.RecordDuration(ctx, "pos_device", "initiate_pairing", time.Since(start), status)

	return device, err
}

// CompletePairing records metrics for pairing completion operations.
func (d *deviceUseCaseWithMetrics) CompletePairing(ctx context.Context, code string) (*PairingResult, error) {
	start := time.Now()
	result, err := d.next.CompletePairing(ctx, code)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "complete_pairing", status)
	d.metrics.RecordDuration(ctx, "pos_device", "complete_pairing", time.Since(start), status)

	return result, err
}

// Heartbeat records metrics for device heartbeat operations.
func (d *deviceUseCaseWithMetrics) Heartbeat(ctx context.Context, deviceID uuid.UUID, firmwareVersion string) error {
	start := time.Now()
	err := d.next.Heartbeat(ctx, deviceID, firmwareVersion)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "heartbeat", status)
	d.metrics.RecordDuration(ctx, "pos_device", "heartbeat", time.Since(start), status)

	return err
}

// MarkSyncCompleted passes through without instrumentation; it is an internal
// bookkeeping call already covered by the sync metrics.
func (d *deviceUseCaseWithMetrics) MarkSyncCompleted(ctx context.Context, deviceID uuid.UUID) error {
	return d.next.MarkSyncCompleted(ctx, deviceID)
}

// Suspend records metrics for device suspension operations.
func (d *deviceUseCaseWithMetrics) Suspend(ctx context.Context, deviceID uuid.UUID) error {
	start := time.Now()
	err := d.next.Suspend(ctx, deviceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "suspend", status)
	d.metrics.RecordDuration(ctx, "pos_device", "suspend", time.Since(start), status)

	return err
}

// Reactivate records metrics for device reactivation operations.
func (d *deviceUseCaseWithMetrics) Reactivate(ctx context.Context, deviceID uuid.UUID) error {
	start := time.Now()
	err := d.next.Reactivate(ctx, deviceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "reactivate", status)
	d.metrics.RecordDuration(ctx, "pos_device", "reactivate", time.Since(start), status)

	return err
}

// Retire records metrics for device retirement operations.
func (d *deviceUseCaseWithMetrics) Retire(ctx context.Context, deviceID uuid.UUID) error {
	start := time.Now()
	err := d.next.Retire(ctx, deviceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "retire", status)
	d.metrics.RecordDuration(ctx, "pos_device", "retire", time.Since(start), status)

	return err
}

// ListActiveDevices records metrics for device listing operations.
func (d *deviceUseCaseWithMetrics) ListActiveDevices(
	ctx context.Context,
	offset, limit int,
) ([]*posDomain.Device, error) {
	start := time.Now()
	devices, err := d.next.ListActiveDevices(ctx, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "pos_device", "list_active", status)
	d.metrics.RecordDuration(ctx, "pos_device", "list_active", time.Since(start), status)

	return devices, err
}

// syncUseCaseWithMetrics decorates SyncUseCase with metrics instrumentation.
// Per-job processing metrics come from the job framework; this decorator
// covers the request-facing operations.
type syncUseCaseWithMetrics struct {
	next    SyncUseCase
	metrics metrics.BusinessMetrics
}

// NewSyncUseCaseWithMetrics wraps a SyncUseCase with metrics recording.
func NewSyncUseCaseWithMetrics(useCase SyncUseCase, m metrics.BusinessMetrics) SyncUseCase {
	return &syncUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// UploadBatch records metrics for batch upload operations.
func (s *syncUseCaseWithMetrics) UploadBatch(
	ctx context.Context,
	deviceID uuid.UUID,
	firmwareVersion string,
	items []UploadItem,
) (*UploadResult, error) {
	start := time.Now()
	result, err := s.next.UploadBatch(ctx, deviceID, firmwareVersion, items)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "pos_sync", "upload_batch", status)
	s.metrics.RecordDuration(ctx, "pos_sync", "upload_batch", time.Since(start), status)

	return result, err
}

// EnqueueSync passes through; queue depth and overflow are tracked by the job framework.
func (s *syncUseCaseWithMetrics) EnqueueSync(ctx context.Context, entry *posDomain.QueueEntry) error {
	return s.next.EnqueueSync(ctx, entry)
}

// ProcessNext passes through; job outcomes are tracked by the job framework.
func (s *syncUseCaseWithMetrics) ProcessNext(ctx context.Context) bool {
	return s.next.ProcessNext(ctx)
}

// DispatchLoop passes through.
func (s *syncUseCaseWithMetrics) DispatchLoop(ctx context.Context) {
	s.next.DispatchLoop(ctx)
}

// RecoverQueued records metrics for startup recovery operations.
func (s *syncUseCaseWithMetrics) RecoverQueued(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	recovered, err := s.next.RecoverQueued(ctx, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "pos_sync", "recover_queued", status)
	s.metrics.RecordDuration(ctx, "pos_sync", "recover_queued", time.Since(start), status)

	return recovered, err
}

// RequeueFailed records metrics for operator requeue operations.
func (s *syncUseCaseWithMetrics) RequeueFailed(ctx context.Context, entryID uuid.UUID) error {
	start := time.Now()
	err := s.next.RequeueFailed(ctx, entryID)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "pos_sync", "requeue_failed", status)
	s.metrics.RecordDuration(ctx, "pos_sync", "requeue_failed", time.Since(start), status)

	return err
}

// Status records metrics for queue status lookups.
func (s *syncUseCaseWithMetrics) Status(ctx context.Context, deviceID uuid.UUID) (*QueueStatus, error) {
	start := time.Now()
	queueStatus, err := s.next.Status(ctx, deviceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "pos_sync", "queue_status", status)
	s.metrics.RecordDuration(ctx, "pos_sync", "queue_status", time.Since(start), status)

	return queueStatus, err
}
