package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens secrets keepers for the configured KMS provider using gocloud.dev/secrets.
type KMSService interface {
	// OpenKeeper opens a secrets.Keeper for the configured KMS provider.
	// Returns an error if the KMS provider URI is invalid or connection fails.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
// Returns a KMSKeeper which *secrets.Keeper implements.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// UnwrapMasterKey loads the master key, unwrapping POS_MASTER_KEY_WRAPPED with
// the KMS when a key URI is configured and falling back to the plain
// POS_MASTER_KEY variable otherwise.
func UnwrapMasterKey(ctx context.Context, kms KMSService, keyURI string) (*cryptoDomain.MasterKey, error) {
	if keyURI == "" {
		return cryptoDomain.LoadMasterKeyFromEnv()
	}

	wrapped := os.Getenv(cryptoDomain.WrappedMasterKeyEnvVar)
	if wrapped == "" {
		return nil, fmt.Errorf(
			"%s must be set when a KMS key URI is configured",
			cryptoDomain.WrappedMasterKeyEnvVar,
		)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidMasterKeyBase64, err)
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = keeper.Close() }()

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}

	masterKey, err := cryptoDomain.NewMasterKey(key)
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, err
	}
	return masterKey, nil
}
