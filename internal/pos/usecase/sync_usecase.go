package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
	cryptoService "github.com/allisson/possync/internal/crypto/service"
	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	"github.com/allisson/possync/internal/jobs"
	"github.com/allisson/possync/internal/metrics"
	"github.com/allisson/possync/internal/payment"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// ProcessorName identifies the offline sync processor in metrics and logs.
const ProcessorName = "pos.offline_sync"

// SyncOptions configures the sync use case's dispatcher and retry behavior.
type SyncOptions struct {
	// JobConfig carries per-priority lane capacities and retry policies.
	JobConfig jobs.Config
	// DispatchInterval is the time between dispatcher ticks.
	DispatchInterval time.Duration
	// DispatchBatchSize bounds how many entries one tick may process.
	DispatchBatchSize int
	// Workers is the number of concurrent drainers per tick.
	Workers int
}

// syncUseCase implements the SyncUseCase interface. It owns the in-memory
// priority queue, dead-letter queue, and processor for sync jobs; durable
// state lives in the queue entry repository.
type syncUseCase struct {
	txManager       database.TxManager
	deviceUseCase   DeviceUseCase
	deviceRepo      DeviceRepository
	deviceKeyRepo   DeviceKeyRepository
	queueRepo       QueueEntryRepository
	transactionRepo OfflineTransactionRepository
	activityLogRepo ActivityLogRepository
	keyService      cryptoService.DeviceKeyService
	provider        payment.Provider

	queue     *jobs.PriorityQueue[posDomain.SyncJob]
	dlq       *jobs.DeadLetter[posDomain.SyncJob]
	processor *jobs.Processor[posDomain.SyncJob]
	options   SyncOptions

	// dispatching guards against overlapping ticks when a batch outlives the
	// dispatch interval.
	dispatching atomic.Bool

	logger *slog.Logger
}

// NewSyncUseCase creates a sync use case wired to the priority job framework.
func NewSyncUseCase(
	txManager database.TxManager,
	deviceUseCase DeviceUseCase,
	deviceRepo DeviceRepository,
	deviceKeyRepo DeviceKeyRepository,
	queueRepo QueueEntryRepository,
	transactionRepo OfflineTransactionRepository,
	activityLogRepo ActivityLogRepository,
	keyService cryptoService.DeviceKeyService,
	provider payment.Provider,
	options SyncOptions,
	jobMetrics metrics.JobMetrics,
	logger *slog.Logger,
) SyncUseCase {
	s := &syncUseCase{
		txManager:       txManager,
		deviceUseCase:   deviceUseCase,
		deviceRepo:      deviceRepo,
		deviceKeyRepo:   deviceKeyRepo,
		queueRepo:       queueRepo,
		transactionRepo: transactionRepo,
		activityLogRepo: activityLogRepo,
		keyService:      keyService,
		provider:        provider,
		options:         options,
		logger:          logger,
	}

	s.queue = jobs.NewPriorityQueue[posDomain.SyncJob](ProcessorName, options.JobConfig, jobMetrics, logger)
	s.dlq = jobs.NewDeadLetter[posDomain.SyncJob](ProcessorName, jobMetrics, logger)
	s.processor = jobs.NewProcessor(
		ProcessorName,
		s.queue,
		s.dlq,
		options.JobConfig,
		s.processQueueEntry,
		func(job posDomain.SyncJob) uuid.UUID { return job.TenantID },
		jobMetrics,
		logger,
	)
	return s
}

// UploadBatch persists a batch of encrypted transactions for an active device
// owned by the calling tenant and enqueues each for sync. Duplicates (already
// synced or already queued) are counted and skipped, never re-charged.
func (s *syncUseCase) UploadBatch(
	ctx context.Context,
	deviceID uuid.UUID,
	firmwareVersion string,
	items []UploadItem,
) (*UploadResult, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.TenantID != tenantID {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "device does not belong to tenant")
	}
	if device.Status != posDomain.DeviceStatusActive {
		return nil, posDomain.ErrDeviceNotActive
	}

	if err := s.deviceUseCase.Heartbeat(ctx, device.ID, firmwareVersion); err != nil {
		s.logger.Error("failed to update device heartbeat",
			slog.String("device_id", device.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	result := &UploadResult{}
	for _, item := range items {
		if item.LocalTransactionID == "" {
			s.logger.Warn("skipping upload item without local transaction id",
				slog.String("device_id", device.ID.String()),
			)
			continue
		}

		idempotencyKey := posDomain.NewIdempotencyKey(tenantID, device.ID, item.LocalTransactionID)

		// Already synced: the audit record exists.
		if _, err := s.transactionRepo.GetByDeviceAndLocalTransactionID(
			ctx, device.ID, item.LocalTransactionID,
		); err == nil {
			result.Duplicates++
			continue
		} else if !apperrors.Is(err, apperrors.ErrNotFound) {
			return result, err
		}

		// Already queued: the idempotency key exists.
		if _, err := s.queueRepo.GetByIdempotencyKey(ctx, idempotencyKey); err == nil {
			result.Duplicates++
			continue
		} else if !apperrors.Is(err, apperrors.ErrNotFound) {
			return result, err
		}

		now := time.Now().UTC()
		entry := &posDomain.QueueEntry{
			ID:                   uuid.Must(uuid.NewV7()),
			TenantID:             tenantID,
			DeviceID:             device.ID,
			EncryptedPayload:     item.EncryptedPayload,
			EncryptionKeyVersion: item.EncryptionKeyVersion,
			EncryptionIV:         item.EncryptionIV,
			LocalTransactionID:   item.LocalTransactionID,
			TransactionAt:        item.TransactionAt,
			Amount:               item.Amount,
			Currency:             item.Currency,
			SyncStatus:           posDomain.SyncStatusQueued,
			SyncPriority:         item.Priority,
			IdempotencyKey:       idempotencyKey,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.queueRepo.Create(ctx, entry); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				// Lost a race with a concurrent upload of the same transaction.
				result.Duplicates++
				continue
			}
			return result, err
		}

		if err := s.EnqueueSync(ctx, entry); err != nil {
			// The entry is durable; a later recovery pass picks it up. The
			// caller still needs the overload signal.
			return result, err
		}
		result.Accepted++
	}

	s.logger.Info("offline batch uploaded",
		slog.String("device_id", device.ID.String()),
		slog.Int("accepted", result.Accepted),
		slog.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

// EnqueueSync pushes a persisted queue entry onto the in-memory job queue.
func (s *syncUseCase) EnqueueSync(ctx context.Context, entry *posDomain.QueueEntry) error {
	if !s.queue.Enqueue(posDomain.NewSyncJob(entry), entry.SyncPriority.JobPriority()) {
		s.logger.Error("sync queue full",
			slog.String("queue_entry_id", entry.ID.String()),
			slog.String("priority", string(entry.SyncPriority)),
		)
		return posDomain.ErrQueueFull
	}
	return nil
}

// ProcessNext drains one job from the in-memory queue.
func (s *syncUseCase) ProcessNext(ctx context.Context) bool {
	return s.processor.ProcessNext(ctx)
}

// DispatchLoop ticks at the configured interval, draining a bounded batch per
// tick with a skip-if-running guard. Stops when the context is cancelled.
func (s *syncUseCase) DispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchTick(ctx)
		}
	}
}

// dispatchTick processes up to DispatchBatchSize entries across Workers
// concurrent drainers. Overlapping ticks are skipped, not queued.
func (s *syncUseCase) dispatchTick(ctx context.Context) {
	if !s.dispatching.CompareAndSwap(false, true) {
		return
	}
	defer s.dispatching.Store(false)

	workers := s.options.Workers
	if workers < 1 {
		workers = 1
	}

	var processed atomic.Int64
	budget := int64(s.options.DispatchBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				if budget > 0 {
					// Reserve a slot before processing; release it when the
					// budget is spent or the queue runs dry.
					if processed.Add(1) > budget {
						processed.Add(-1)
						return nil
					}
					if !s.processor.ProcessNext(gctx) {
						processed.Add(-1)
						return nil
					}
					continue
				}
				if !s.processor.ProcessNext(gctx) {
					return nil
				}
				processed.Add(1)
			}
		})
	}
	_ = g.Wait()

	if n := processed.Load(); n > 0 {
		s.logger.Debug("sync dispatcher drained entries", slog.Int64("processed", n))
	}
}

// RecoverQueued re-enqueues durable QUEUED entries after a restart, in
// priority order. Stops early when a lane fills up.
func (s *syncUseCase) RecoverQueued(ctx context.Context, limit int) (int, error) {
	entries, err := s.queueRepo.ListQueued(ctx, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, entry := range entries {
		if err := s.EnqueueSync(ctx, entry); err != nil {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("recovered queued entries", slog.Int("count", recovered))
	}
	return recovered, nil
}

// RequeueFailed resets a FAILED entry back to QUEUED with a fresh attempt
// budget and re-enqueues it. Operator remediation path for entries that
// failed non-retryably (e.g., after restoring a deleted key version).
func (s *syncUseCase) RequeueFailed(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.queueRepo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.SyncStatus != posDomain.SyncStatusFailed {
		return apperrors.Wrap(apperrors.ErrConflict, "queue entry is not failed")
	}

	entry.SyncStatus = posDomain.SyncStatusQueued
	entry.AttemptCount = 0
	entry.LastSyncError = ""
	entry.UpdatedAt = time.Now().UTC()
	if err := s.queueRepo.Update(ctx, entry); err != nil {
		return err
	}

	s.logger.Info("failed entry requeued", slog.String("queue_entry_id", entry.ID.String()))
	return s.EnqueueSync(ctx, entry)
}

// Status reports per-status queue counts and the last successful sync time for
// a device owned by the calling tenant.
func (s *syncUseCase) Status(ctx context.Context, deviceID uuid.UUID) (*QueueStatus, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.TenantID != tenantID {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "device does not belong to tenant")
	}

	status := &QueueStatus{LastSyncedAt: device.LastSyncedAt}
	counts := []struct {
		status posDomain.SyncStatus
		target *int64
	}{
		{posDomain.SyncStatusQueued, &status.Queued},
		{posDomain.SyncStatusProcessing, &status.Processing},
		{posDomain.SyncStatusFailed, &status.Failed},
		{posDomain.SyncStatusCompleted, &status.Completed},
	}
	for _, c := range counts {
		count, err := s.queueRepo.CountByDeviceAndStatus(ctx, deviceID, c.status)
		if err != nil {
			return nil, err
		}
		*c.target = count
	}
	return status, nil
}

// processQueueEntry is the job handler: reload, claim, decrypt, replay the
// payment idempotently, write the audit record, and mark the entry completed.
func (s *syncUseCase) processQueueEntry(ctx context.Context, job posDomain.SyncJob) error {
	entry, err := s.queueRepo.GetByID(ctx, job.QueueEntryID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("queue entry not found, skipping",
				slog.String("queue_entry_id", job.QueueEntryID.String()),
			)
			return nil
		}
		return err
	}

	if entry.SyncStatus == posDomain.SyncStatusCompleted {
		s.logger.Info("queue entry already completed, skipping",
			slog.String("queue_entry_id", entry.ID.String()),
		)
		return nil
	}

	device, err := s.deviceRepo.GetByID(ctx, entry.DeviceID)
	if err != nil {
		return err
	}

	// Claim the entry before any work so attempt accounting survives crashes.
	now := time.Now().UTC()
	entry.SyncStatus = posDomain.SyncStatusProcessing
	entry.SyncStartedAt = &now
	entry.AttemptCount++
	entry.UpdatedAt = now
	if err := s.queueRepo.Update(ctx, entry); err != nil {
		return err
	}
	s.logActivity(ctx, device, posDomain.ActivitySyncStarted, map[string]any{
		"queue_entry_id": entry.ID.String(),
		"attempt":        entry.AttemptCount,
	})

	started := time.Now()
	intent, err := s.replayTransaction(ctx, entry)
	if err != nil {
		return s.failSync(ctx, device, entry, err)
	}

	duration := time.Since(started)
	completedAt := time.Now().UTC()

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		record := &posDomain.OfflineTransaction{
			ID:                 uuid.Must(uuid.NewV7()),
			TenantID:           entry.TenantID,
			DeviceID:           entry.DeviceID,
			QueueEntryID:       entry.ID,
			LocalTransactionID: entry.LocalTransactionID,
			OfflineAt:          entry.TransactionAt,
			PaymentIntentID:    intent.Reference,
			Amount:             entry.Amount,
			Currency:           entry.Currency,
			SyncedAt:           completedAt,
			SyncDuration:       duration,
			CreatedAt:          completedAt,
		}
		if err := s.transactionRepo.Create(txCtx, record); err != nil {
			// A replayed sync already wrote the audit record; finishing the
			// entry is all that is left.
			if !apperrors.Is(err, apperrors.ErrConflict) {
				return err
			}
		}

		entry.SyncStatus = posDomain.SyncStatusCompleted
		entry.SyncCompletedAt = &completedAt
		entry.LastSyncError = ""
		entry.UpdatedAt = completedAt
		return s.queueRepo.Update(txCtx, entry)
	})
	if err != nil {
		return s.failSync(ctx, device, entry, err)
	}

	if err := s.deviceUseCase.MarkSyncCompleted(ctx, entry.DeviceID); err != nil {
		s.logger.Error("failed to mark device sync completed",
			slog.String("device_id", entry.DeviceID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logActivity(ctx, device, posDomain.ActivitySyncCompleted, map[string]any{
		"queue_entry_id":    entry.ID.String(),
		"payment_intent_id": intent.Reference,
	})
	s.logger.Info("offline transaction synced",
		slog.String("queue_entry_id", entry.ID.String()),
		slog.String("local_transaction_id", entry.LocalTransactionID),
		slog.String("payment_intent_id", intent.Reference),
		slog.Duration("duration", duration),
	)
	return nil
}

// replayTransaction decrypts the entry payload with its recorded key version
// and replays the payment through the provider using the entry's idempotency
// key. Corruption and permanent payment declines come back non-retryable.
func (s *syncUseCase) replayTransaction(
	ctx context.Context,
	entry *posDomain.QueueEntry,
) (*payment.Intent, error) {
	keyRecord, err := s.deviceKeyRepo.GetByDeviceAndVersion(ctx, entry.DeviceID, entry.EncryptionKeyVersion)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, jobs.NonRetryable(posDomain.ErrKeyVersionNotFound)
		}
		return nil, err
	}

	rawKey, err := s.keyService.DecryptDeviceKey(keyRecord.KeyCiphertext)
	if err != nil {
		return nil, jobs.NonRetryable(apperrors.Wrap(err, "failed to unwrap device key"))
	}
	defer cryptoDomain.Zero(rawKey)

	plaintext, err := s.keyService.DecryptPayload(rawKey, entry.EncryptedPayload, entry.EncryptionIV)
	if err != nil {
		return nil, jobs.NonRetryable(posDomain.ErrPayloadCorrupt)
	}

	var payload posDomain.TransactionPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, jobs.NonRetryable(posDomain.ErrPayloadCorrupt)
	}

	intent, err := s.provider.CreateIntent(ctx, payment.CreateIntentRequest{
		Amount:                 payload.Amount,
		Currency:               payload.Currency,
		CustomerReference:      payload.CustomerID,
		PaymentMethodReference: payload.PaymentMethodID,
		CaptureImmediately:     true,
		Metadata: map[string]string{
			"offline_tx_id": payload.LocalTransactionID,
			"device_id":     entry.DeviceID.String(),
		},
		IdempotencyKey: entry.IdempotencyKey,
	})
	if err != nil {
		// Permanent declines go to manual reconciliation, not another attempt.
		if apperrors.Is(err, payment.ErrInsufficientFunds) || apperrors.Is(err, payment.ErrReferenceExpired) {
			return nil, jobs.NonRetryable(err)
		}
		return nil, err
	}
	return intent, nil
}

// failSync records the failure on the durable entry. Non-retryable errors and
// exhausted budgets mark it FAILED; otherwise it returns to QUEUED for the
// processor's in-memory retry.
func (s *syncUseCase) failSync(
	ctx context.Context,
	device *posDomain.Device,
	entry *posDomain.QueueEntry,
	syncErr error,
) error {
	policy := s.options.JobConfig.RetryPolicyFor(entry.SyncPriority.JobPriority())

	entry.LastSyncError = syncErr.Error()
	if jobs.IsNonRetryable(syncErr) || policy.Exhausted(entry.AttemptCount) {
		entry.SyncStatus = posDomain.SyncStatusFailed
	} else {
		entry.SyncStatus = posDomain.SyncStatusQueued
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.queueRepo.Update(ctx, entry); err != nil {
		s.logger.Error("failed to persist sync failure",
			slog.String("queue_entry_id", entry.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logActivity(ctx, device, posDomain.ActivitySyncFailed, map[string]any{
		"queue_entry_id": entry.ID.String(),
		"attempt":        strconv.Itoa(entry.AttemptCount),
		"error":          syncErr.Error(),
	})
	s.logger.Error("offline sync failed",
		slog.String("queue_entry_id", entry.ID.String()),
		slog.Int("attempt", entry.AttemptCount),
		slog.String("status", string(entry.SyncStatus)),
		slog.String("error", syncErr.Error()),
	)
	return syncErr
}

// DeadLetterDepth exposes the dead-letter queue depth for operators.
func (s *syncUseCase) DeadLetterDepth() int {
	return s.dlq.Depth()
}

func (s *syncUseCase) logActivity(
	ctx context.Context,
	device *posDomain.Device,
	activity posDomain.ActivityType,
	metadata map[string]any,
) {
	if err := s.activityLogRepo.Create(ctx, posDomain.NewActivityLog(device, activity, metadata)); err != nil {
		s.logger.Error("failed to write activity log",
			slog.String("device_id", device.ID.String()),
			slog.String("activity", string(activity)),
			slog.String("error", err.Error()),
		)
	}
}
