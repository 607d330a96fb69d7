package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/possync/internal/metrics"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// stubDeviceUseCase lets each test plug in just the method under decoration.
type stubDeviceUseCase struct {
	DeviceUseCase
	completePairing func(ctx context.Context, code string) (*PairingResult, error)
	suspend         func(ctx context.Context, deviceID uuid.UUID) error
}

func (s *stubDeviceUseCase) CompletePairing(ctx context.Context, code string) (*PairingResult, error) {
	return s.completePairing(ctx, code)
}

func (s *stubDeviceUseCase) Suspend(ctx context.Context, deviceID uuid.UUID) error {
	return s.suspend(ctx, deviceID)
}

type stubSyncUseCase struct {
	SyncUseCase
	uploadBatch func(
		ctx context.Context,
		deviceID uuid.UUID,
		firmwareVersion string,
		items []UploadItem,
	) (*UploadResult, error)
}

func (s *stubSyncUseCase) UploadBatch(
	ctx context.Context,
	deviceID uuid.UUID,
	firmwareVersion string,
	items []UploadItem,
) (*UploadResult, error) {
	return s.uploadBatch(ctx, deviceID, firmwareVersion, items)
}

func TestDeviceMetricsDecorator_CompletePairing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		t.Parallel()
		expected := &PairingResult{
			DeviceID:             uuid.Must(uuid.NewV7()),
			DeviceName:           "Front Counter",
			EncryptionKeyVersion: 1,
		}
		next := &stubDeviceUseCase{
			completePairing: func(ctx context.Context, code string) (*PairingResult, error) {
				return expected, nil
			},
		}
		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "pos_device", "complete_pairing", "success").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "pos_device", "complete_pairing", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		decorator := NewDeviceUseCaseWithMetrics(next, mockMetrics)
		result, err := decorator.CompletePairing(ctx, "ABCD2345")

		assert.NoError(t, err)
		assert.Equal(t, expected, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		t.Parallel()
		next := &stubDeviceUseCase{
			completePairing: func(ctx context.Context, code string) (*PairingResult, error) {
				return nil, posDomain.ErrPairingFailed
			},
		}
		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "pos_device", "complete_pairing", "error").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "pos_device", "complete_pairing", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		decorator := NewDeviceUseCaseWithMetrics(next, mockMetrics)
		result, err := decorator.CompletePairing(ctx, "ABCD2345")

		assert.ErrorIs(t, err, posDomain.ErrPairingFailed)
		assert.Nil(t, result)
		mockMetrics.AssertExpectations(t)
	})
}

func TestDeviceMetricsDecorator_Suspend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	next := &stubDeviceUseCase{
		suspend: func(ctx context.Context, deviceID uuid.UUID) error { return nil },
	}
	mockMetrics := &mockBusinessMetrics{}
	mockMetrics.On("RecordOperation", ctx, "pos_device", "suspend", "success").
		Return().
		Once()
	mockMetrics.On("RecordDuration", ctx, "pos_device", "suspend", mock.AnythingOfType("time.Duration"), "success").
		Return().
		Once()

	decorator := NewDeviceUseCaseWithMetrics(next, mockMetrics)
	assert.NoError(t, decorator.Suspend(ctx, uuid.Must(uuid.NewV7())))
	mockMetrics.AssertExpectations(t)
}

func TestSyncMetricsDecorator_UploadBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		t.Parallel()
		expected := &UploadResult{Accepted: 2, Duplicates: 1}
		next := &stubSyncUseCase{
			uploadBatch: func(
				ctx context.Context,
				deviceID uuid.UUID,
				firmwareVersion string,
				items []UploadItem,
			) (*UploadResult, error) {
				return expected, nil
			},
		}
		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "pos_sync", "upload_batch", "success").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "pos_sync", "upload_batch", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		decorator := NewSyncUseCaseWithMetrics(next, mockMetrics)
		result, err := decorator.UploadBatch(ctx, uuid.Must(uuid.NewV7()), "2.1.0", nil)

		assert.NoError(t, err)
		assert.Equal(t, expected, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		t.Parallel()
		expectedError := errors.New("database error")
		next := &stubSyncUseCase{
			uploadBatch: func(
				ctx context.Context,
				deviceID uuid.UUID,
				firmwareVersion string,
				items []UploadItem,
			) (*UploadResult, error) {
				return nil, expectedError
			},
		}
		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "pos_sync", "upload_batch", "error").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "pos_sync", "upload_batch", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		decorator := NewSyncUseCaseWithMetrics(next, mockMetrics)
		result, err := decorator.UploadBatch(ctx, uuid.Must(uuid.NewV7()), "2.1.0", nil)

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, expectedError, err)
		mockMetrics.AssertExpectations(t)
	})
}
