package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/allisson/possync/internal/errors"
	"github.com/allisson/possync/internal/jobs"
	"github.com/allisson/possync/internal/metrics"
	"github.com/allisson/possync/internal/payment"
	posDomain "github.com/allisson/possync/internal/pos/domain"
	"github.com/allisson/possync/internal/tenant"
)

type syncUseCaseFixture struct {
	device     *deviceUseCaseFixture
	useCase    SyncUseCase
	queueRepo  *fakeQueueEntryRepository
	txRepo     *fakeTransactionRepository
	provider   *payment.StubProvider
	pairedDev  *posDomain.Device
	rawKey     []byte
	keyVersion int
}

func testSyncOptions() SyncOptions {
	policy := jobs.NewRetryPolicy(3, 0, 0, 1.0)
	return SyncOptions{
		JobConfig: jobs.NewConfigBuilder().
			RetryPolicy(jobs.PriorityCritical, policy).
			RetryPolicy(jobs.PriorityHigh, policy).
			RetryPolicy(jobs.PriorityDefault, policy).
			QueueCapacity(jobs.PriorityCritical, 10).
			QueueCapacity(jobs.PriorityHigh, 10).
			QueueCapacity(jobs.PriorityDefault, 10).
			Build(),
		DispatchInterval:  5 * time.Millisecond,
		DispatchBatchSize: 50,
		Workers:           2,
	}
}

func newSyncUseCaseFixture(t *testing.T) *syncUseCaseFixture {
	t.Helper()
	return newSyncUseCaseFixtureWithOptions(t, testSyncOptions())
}

func newSyncUseCaseFixtureWithOptions(t *testing.T, options SyncOptions) *syncUseCaseFixture {
	t.Helper()
	deviceFixture := newDeviceUseCaseFixture(t)
	pairedDev, pairing := deviceFixture.pairDevice(t, "pos-001")

	rawKey, err := base64.StdEncoding.DecodeString(pairing.EncryptionKey)
	require.NoError(t, err)

	f := &syncUseCaseFixture{
		device:     deviceFixture,
		queueRepo:  newFakeQueueEntryRepository(),
		txRepo:     newFakeTransactionRepository(),
		provider:   payment.NewStubProvider(),
		pairedDev:  pairedDev,
		rawKey:     rawKey,
		keyVersion: pairing.EncryptionKeyVersion,
	}
	f.useCase = NewSyncUseCase(
		&fakeTxManager{},
		deviceFixture.useCase,
		deviceFixture.deviceRepo,
		deviceFixture.keyRepo,
		f.queueRepo,
		f.txRepo,
		deviceFixture.activityLog,
		deviceFixture.keyService,
		f.provider,
		options,
		metrics.NewNoOpJobMetrics(),
		testLogger(),
	)
	return f
}

func (f *syncUseCaseFixture) encryptedItem(t *testing.T, localTxID string, amount int64) UploadItem {
	t.Helper()
	payload := posDomain.TransactionPayload{
		LocalTransactionID: localTxID,
		Amount:             amount,
		Currency:           "USD",
		CustomerID:         "cus_123",
		PaymentMethodID:    "pm_456",
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	ciphertext, iv, err := f.device.keyService.EncryptPayload(f.rawKey, data)
	require.NoError(t, err)

	return UploadItem{
		LocalTransactionID:   localTxID,
		EncryptedPayload:     ciphertext,
		EncryptionIV:         iv,
		EncryptionKeyVersion: f.keyVersion,
		TransactionAt:        time.Now().UTC().Add(-time.Hour),
		Amount:               amount,
		Currency:             "USD",
		Priority:             posDomain.SyncPriorityHigh,
	}
}

func (f *syncUseCaseFixture) uploadOne(t *testing.T, localTxID string) *posDomain.QueueEntry {
	t.Helper()
	result, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "", []UploadItem{
		f.encryptedItem(t, localTxID, 1250),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Accepted)

	key := posDomain.NewIdempotencyKey(f.device.tenantID, f.pairedDev.ID, localTxID)
	entry, err := f.queueRepo.GetByIdempotencyKey(f.device.ctx, key)
	require.NoError(t, err)
	return entry
}

func TestSyncUseCase_UploadBatch(t *testing.T) {
	t.Parallel()

	t.Run("accepts new items and counts duplicates on re-upload", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		items := []UploadItem{
			f.encryptedItem(t, "tx-1", 1250),
			f.encryptedItem(t, "tx-2", 900),
		}

		result, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "2.1.0", items)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Accepted)
		assert.Equal(t, 0, result.Duplicates)

		// The device connected; retrying the same batch must not double-charge.
		result, err = f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "2.1.0", items)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Accepted)
		assert.Equal(t, 2, result.Duplicates)
	})

	t.Run("skips items without a local transaction id", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		item := f.encryptedItem(t, "tx-1", 1250)
		item.LocalTransactionID = ""

		result, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "", []UploadItem{item})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Accepted)
		assert.Equal(t, 0, result.Duplicates)
	})

	t.Run("rejects a suspended device", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		require.NoError(t, f.device.useCase.Suspend(f.device.ctx, f.pairedDev.ID))

		_, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "", []UploadItem{
			f.encryptedItem(t, "tx-1", 1250),
		})
		assert.ErrorIs(t, err, posDomain.ErrDeviceNotActive)
	})

	t.Run("rejects a device owned by another tenant", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		otherCtx := tenant.WithTenant(context.Background(), uuid.Must(uuid.NewV7()))

		_, err := f.useCase.UploadBatch(otherCtx, f.pairedDev.ID, "", []UploadItem{
			f.encryptedItem(t, "tx-1", 1250),
		})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestSyncUseCase_ProcessNext(t *testing.T) {
	t.Parallel()

	t.Run("replays the transaction and completes the entry", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		entry := f.uploadOne(t, "tx-1")

		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		processed, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusCompleted, processed.SyncStatus)
		assert.Equal(t, 1, processed.AttemptCount)
		require.NotNil(t, processed.SyncCompletedAt)

		record, err := f.txRepo.GetByQueueEntryID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "tx-1", record.LocalTransactionID)
		assert.Equal(t, int64(1250), record.Amount)
		assert.NotEmpty(t, record.PaymentIntentID)
		assert.Equal(t, 1, f.provider.IntentCount())

		device, err := f.device.deviceRepo.GetByID(f.device.ctx, f.pairedDev.ID)
		require.NoError(t, err)
		assert.NotNil(t, device.LastSyncedAt)

		assert.Equal(t, 1, f.device.activityLog.countByType(posDomain.ActivitySyncStarted))
		assert.Equal(t, 1, f.device.activityLog.countByType(posDomain.ActivitySyncCompleted))
	})

	t.Run("replaying a completed entry creates no second charge", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		entry := f.uploadOne(t, "tx-1")
		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		require.NoError(t, f.useCase.EnqueueSync(f.device.ctx, entry))
		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		assert.Equal(t, 1, f.provider.IntentCount())
		assert.Equal(t, 1, f.txRepo.count())
		assert.Equal(t, 1, f.device.activityLog.countByType(posDomain.ActivitySyncCompleted))
	})

	t.Run("returns false on an empty queue", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		assert.False(t, f.useCase.ProcessNext(f.device.ctx))
	})
}

func TestSyncUseCase_RetryBudget(t *testing.T) {
	t.Parallel()

	t.Run("transient failures requeue until attempts run out", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		f.provider.FailWith = payment.ErrUnavailable
		entry := f.uploadOne(t, "tx-1")

		// Two failed attempts return the entry to queued.
		for i := 1; i <= 2; i++ {
			require.True(t, f.useCase.ProcessNext(f.device.ctx))
			current, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
			require.NoError(t, err)
			assert.Equal(t, posDomain.SyncStatusQueued, current.SyncStatus)
			assert.Equal(t, i, current.AttemptCount)
			assert.Contains(t, current.LastSyncError, "unavailable")
		}

		// The third exhausts the budget.
		require.True(t, f.useCase.ProcessNext(f.device.ctx))
		failed, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusFailed, failed.SyncStatus)
		assert.Equal(t, 3, failed.AttemptCount)

		assert.False(t, f.useCase.ProcessNext(f.device.ctx))
		assert.Equal(t, 0, f.txRepo.count())
		assert.Equal(t, 3, f.device.activityLog.countByType(posDomain.ActivitySyncFailed))
		assert.Equal(t, 1, f.useCase.(*syncUseCase).DeadLetterDepth())
	})

	t.Run("permanent payment declines fail on the first attempt", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		f.provider.FailWith = payment.ErrInsufficientFunds
		entry := f.uploadOne(t, "tx-1")

		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		failed, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusFailed, failed.SyncStatus)
		assert.Equal(t, 1, failed.AttemptCount)
		assert.False(t, f.useCase.ProcessNext(f.device.ctx))
	})

	t.Run("corrupt payloads fail without retrying", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		item := f.encryptedItem(t, "tx-1", 1250)
		item.EncryptedPayload[0] ^= 0xff

		_, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "", []UploadItem{item})
		require.NoError(t, err)
		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		key := posDomain.NewIdempotencyKey(f.device.tenantID, f.pairedDev.ID, "tx-1")
		failed, err := f.queueRepo.GetByIdempotencyKey(f.device.ctx, key)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusFailed, failed.SyncStatus)
		assert.Equal(t, 1, failed.AttemptCount)
		assert.Contains(t, failed.LastSyncError, posDomain.ErrPayloadCorrupt.Error())
	})

	t.Run("missing key version fails without retrying", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		item := f.encryptedItem(t, "tx-1", 1250)
		item.EncryptionKeyVersion = 99

		_, err := f.useCase.UploadBatch(f.device.ctx, f.pairedDev.ID, "", []UploadItem{item})
		require.NoError(t, err)
		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		key := posDomain.NewIdempotencyKey(f.device.tenantID, f.pairedDev.ID, "tx-1")
		failed, err := f.queueRepo.GetByIdempotencyKey(f.device.ctx, key)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusFailed, failed.SyncStatus)
	})
}

func TestSyncUseCase_KeyRotation(t *testing.T) {
	t.Parallel()

	f := newSyncUseCaseFixture(t)
	f.uploadOne(t, "tx-v1")

	// Rotate the device key before the backlog drains.
	require.NoError(t, f.device.useCase.Suspend(f.device.ctx, f.pairedDev.ID))
	refreshed, err := f.device.useCase.InitiatePairing(f.device.ctx, InitiatePairingInput{
		DeviceIdentifier: "pos-001",
	})
	require.NoError(t, err)
	second, err := f.device.useCase.CompletePairing(f.device.ctx, *refreshed.PairingCode)
	require.NoError(t, err)
	require.Equal(t, 2, second.EncryptionKeyVersion)

	// The entry recorded key version 1 and must still decrypt with it.
	require.True(t, f.useCase.ProcessNext(f.device.ctx))

	key := posDomain.NewIdempotencyKey(f.device.tenantID, f.pairedDev.ID, "tx-v1")
	entry, err := f.queueRepo.GetByIdempotencyKey(f.device.ctx, key)
	require.NoError(t, err)
	assert.Equal(t, posDomain.SyncStatusCompleted, entry.SyncStatus)
	assert.Equal(t, 1, f.provider.IntentCount())
}

func TestSyncUseCase_RequeueFailed(t *testing.T) {
	t.Parallel()

	t.Run("resets the attempt budget and replays successfully", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		f.provider.FailWith = payment.ErrUnavailable
		entry := f.uploadOne(t, "tx-1")

		for f.useCase.ProcessNext(f.device.ctx) {
		}
		failed, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		require.Equal(t, posDomain.SyncStatusFailed, failed.SyncStatus)

		// Processor outage over.
		f.provider.FailWith = nil
		require.NoError(t, f.useCase.RequeueFailed(f.device.ctx, entry.ID))
		require.True(t, f.useCase.ProcessNext(f.device.ctx))

		completed, err := f.queueRepo.GetByID(f.device.ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, posDomain.SyncStatusCompleted, completed.SyncStatus)
		assert.Equal(t, 1, completed.AttemptCount)
	})

	t.Run("rejects entries that are not failed", func(t *testing.T) {
		t.Parallel()
		f := newSyncUseCaseFixture(t)
		entry := f.uploadOne(t, "tx-1")

		err := f.useCase.RequeueFailed(f.device.ctx, entry.ID)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestSyncUseCase_RecoverQueued(t *testing.T) {
	t.Parallel()

	f := newSyncUseCaseFixture(t)
	f.uploadOne(t, "tx-1")
	f.uploadOne(t, "tx-2")

	// Simulate a restart: a fresh use case over the same durable state has an
	// empty in-memory queue.
	restarted := NewSyncUseCase(
		&fakeTxManager{},
		f.device.useCase,
		f.device.deviceRepo,
		f.device.keyRepo,
		f.queueRepo,
		f.txRepo,
		f.device.activityLog,
		f.device.keyService,
		f.provider,
		testSyncOptions(),
		metrics.NewNoOpJobMetrics(),
		testLogger(),
	)
	assert.False(t, restarted.ProcessNext(f.device.ctx))

	recovered, err := restarted.RecoverQueued(f.device.ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)

	require.True(t, restarted.ProcessNext(f.device.ctx))
	require.True(t, restarted.ProcessNext(f.device.ctx))
	assert.Equal(t, 2, f.txRepo.count())
}

func TestSyncUseCase_Status(t *testing.T) {
	t.Parallel()

	f := newSyncUseCaseFixture(t)
	f.uploadOne(t, "tx-1")
	f.uploadOne(t, "tx-2")
	require.True(t, f.useCase.ProcessNext(f.device.ctx))

	status, err := f.useCase.Status(f.device.ctx, f.pairedDev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Queued)
	assert.Equal(t, int64(0), status.Processing)
	assert.Equal(t, int64(0), status.Failed)
	assert.Equal(t, int64(1), status.Completed)
	assert.NotNil(t, status.LastSyncedAt)

	otherCtx := tenant.WithTenant(context.Background(), uuid.Must(uuid.NewV7()))
	_, err = f.useCase.Status(otherCtx, f.pairedDev.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSyncUseCase_DispatchLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSyncUseCaseFixture(t)
	f.uploadOne(t, "tx-1")
	f.uploadOne(t, "tx-2")
	f.uploadOne(t, "tx-3")

	ctx, cancel := context.WithCancel(f.device.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.useCase.DispatchLoop(ctx)
	}()

	require.Eventually(t, func() bool {
		return f.txRepo.count() == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 3, f.provider.IntentCount())
}

func TestSyncUseCase_DispatchTickBatchSize(t *testing.T) {
	t.Parallel()

	options := testSyncOptions()
	options.DispatchBatchSize = 3
	options.Workers = 4
	f := newSyncUseCaseFixtureWithOptions(t, options)

	for _, localTxID := range []string{"tx-1", "tx-2", "tx-3", "tx-4", "tx-5"} {
		f.uploadOne(t, localTxID)
	}

	// A single tick drains exactly the batch size even with concurrent workers.
	f.useCase.(*syncUseCase).dispatchTick(f.device.ctx)
	assert.Equal(t, 3, f.txRepo.count())

	f.useCase.(*syncUseCase).dispatchTick(f.device.ctx)
	assert.Equal(t, 5, f.txRepo.count())
	assert.False(t, f.useCase.ProcessNext(f.device.ctx))
}
