package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
)

// Manual mocks for KMS since they might not be generated in all environments
type MockKMSService struct {
	mock.Mock
}

func (m *MockKMSService) OpenKeeper(ctx context.Context, uri string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

type MockKMSKeeper struct {
	mock.Mock
}

func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Close() error {
	return m.Called().Error(0)
}

func TestRunCreateMasterKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success_kms", func(t *testing.T) {
		mockService := &MockKMSService{}
		mockKeeper := &MockKMSKeeper{}

		mockService.On("OpenKeeper", ctx, "base64key://...").Return(mockKeeper, nil)
		mockKeeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return([]byte("encrypted"), nil)
		mockKeeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, mockService, logger, &out, "base64key://...")
		require.NoError(t, err)
		require.Contains(t, out.String(), cryptoDomain.WrappedMasterKeyEnvVar)
		require.Contains(t, out.String(), "KMS_KEY_URI")
		require.NotContains(t, out.String(), cryptoDomain.MasterKeyEnvVar+"=")

		mockService.AssertExpectations(t)
		mockKeeper.AssertExpectations(t)
	})

	t.Run("success_plain", func(t *testing.T) {
		mockService := &MockKMSService{}

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, mockService, logger, &out, "")
		require.NoError(t, err)
		require.Contains(t, out.String(), cryptoDomain.MasterKeyEnvVar+"=")

		mockService.AssertNotCalled(t, "OpenKeeper", mock.Anything, mock.Anything)
	})

	t.Run("error_open_keeper", func(t *testing.T) {
		mockService := &MockKMSService{}

		mockService.On("OpenKeeper", ctx, "gcpkms://broken").
			Return(nil, errors.New("boom"))

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, mockService, logger, &out, "gcpkms://broken")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("error_encrypt", func(t *testing.T) {
		mockService := &MockKMSService{}
		mockKeeper := &MockKMSKeeper{}

		mockService.On("OpenKeeper", ctx, "base64key://...").Return(mockKeeper, nil)
		mockKeeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).
			Return([]byte(nil), errors.New("boom"))
		mockKeeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, mockService, logger, &out, "base64key://...")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to encrypt master key")
	})
}
