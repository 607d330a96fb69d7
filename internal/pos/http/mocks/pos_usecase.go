// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	posDomain "github.com/allisson/possync/internal/pos/domain"
	posUseCase "github.com/allisson/possync/internal/pos/usecase"
)

// MockDeviceUseCase is a mock implementation of DeviceUseCase for testing.
type MockDeviceUseCase struct {
	mock.Mock
}

// InitiatePairing mocks the InitiatePairing method of DeviceUseCase.
func (m *MockDeviceUseCase) InitiatePairing(
	ctx context.Context,
	in posUseCase.InitiatePairingInput,
) (*posDomain.Device, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posDomain.Device), args.Error(1)
}

// CompletePairing mocks the CompletePairing method of DeviceUseCase.
func (m *MockDeviceUseCase) CompletePairing(ctx context.Context, code string) (*posUseCase.PairingResult, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posUseCase.PairingResult), args.Error(1)
}

// Heartbeat mocks the Heartbeat method of DeviceUseCase.
func (m *MockDeviceUseCase) Heartbeat(ctx context.Context, deviceID uuid.UUID, firmwareVersion string) error {
	args := m.Called(ctx, deviceID, firmwareVersion)
	return args.Error(0)
}

// MarkSyncCompleted mocks the MarkSyncCompleted method of DeviceUseCase.
func (m *MockDeviceUseCase) MarkSyncCompleted(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// Suspend mocks the Suspend method of DeviceUseCase.
func (m *MockDeviceUseCase) Suspend(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// Reactivate mocks the Reactivate method of DeviceUseCase.
func (m *MockDeviceUseCase) Reactivate(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// Retire mocks the Retire method of DeviceUseCase.
func (m *MockDeviceUseCase) Retire(ctx context.Context, deviceID uuid.UUID) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// ListActiveDevices mocks the ListActiveDevices method of DeviceUseCase.
func (m *MockDeviceUseCase) ListActiveDevices(ctx context.Context, offset, limit int) ([]*posDomain.Device, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*posDomain.Device), args.Error(1)
}

// MockSyncUseCase is a mock implementation of SyncUseCase for testing.
type MockSyncUseCase struct {
	mock.Mock
}

// UploadBatch mocks the UploadBatch method of SyncUseCase.
func (m *MockSyncUseCase) UploadBatch(
	ctx context.Context,
	deviceID uuid.UUID,
	firmwareVersion string,
	items []posUseCase.UploadItem,
) (*posUseCase.UploadResult, error) {
	args := m.Called(ctx, deviceID, firmwareVersion, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posUseCase.UploadResult), args.Error(1)
}

// EnqueueSync mocks the EnqueueSync method of SyncUseCase.
func (m *MockSyncUseCase) EnqueueSync(ctx context.Context, entry *posDomain.QueueEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// ProcessNext mocks the ProcessNext method of SyncUseCase.
func (m *MockSyncUseCase) ProcessNext(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// DispatchLoop mocks the DispatchLoop method of SyncUseCase.
func (m *MockSyncUseCase) DispatchLoop(ctx context.Context) {
	m.Called(ctx)
}

// RecoverQueued mocks the RecoverQueued method of SyncUseCase.
func (m *MockSyncUseCase) RecoverQueued(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

// RequeueFailed mocks the RequeueFailed method of SyncUseCase.
func (m *MockSyncUseCase) RequeueFailed(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

// Status mocks the Status method of SyncUseCase.
func (m *MockSyncUseCase) Status(ctx context.Context, deviceID uuid.UUID) (*posUseCase.QueueStatus, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posUseCase.QueueStatus), args.Error(1)
}
