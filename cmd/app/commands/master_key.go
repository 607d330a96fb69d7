package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
	cryptoService "github.com/allisson/possync/internal/crypto/service"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key
// used to wrap per-device encryption keys. Key material is zeroed from memory
// after encoding.
//
// When a KMS key URI is provided the master key is encrypted with the KMS and
// the wrapped ciphertext is printed as POS_MASTER_KEY_WRAPPED. Without a URI
// the key is printed plain as POS_MASTER_KEY, which is only acceptable for
// local development.
func RunCreateMasterKey(
	ctx context.Context,
	kms cryptoService.KMSService,
	logger *slog.Logger,
	out io.Writer,
	kmsKeyURI string,
) error {
	// Generate a cryptographically secure 32-byte master key
	masterKey := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsKeyURI == "" {
		logger.Warn("generating a plain master key, use a KMS key URI in production")

		fmt.Fprintln(out, "# Plain mode: store this key in a secret manager, never in source control")
		fmt.Fprintf(out, "%s=%q\n", cryptoDomain.MasterKeyEnvVar, base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Error("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	fmt.Fprintln(out, "# KMS mode: the master key never leaves this process unwrapped")
	fmt.Fprintf(out, "%s=%q\n", cryptoDomain.WrappedMasterKeyEnvVar, base64.StdEncoding.EncodeToString(ciphertext))
	fmt.Fprintf(out, "KMS_KEY_URI=%q\n", kmsKeyURI)

	return nil
}
