package domain

import (
	"github.com/allisson/possync/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrMasterKeyNotSet indicates the POS_MASTER_KEY environment variable is missing.
	ErrMasterKeyNotSet = errors.New("POS_MASTER_KEY environment variable not set")

	// ErrInvalidMasterKeyBase64 indicates the master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.New("master key must be base64-encoded")

	// ErrInvalidKeySize indicates a cryptographic key is not exactly 32 bytes.
	//
	// Master keys and device keys must be 256 bits for AES-256-GCM.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with (authentication failure)
	//   - Invalid IV provided
	//   - Corrupted encrypted data
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers. Callers must treat this as
	// unrecoverable for the key version involved.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrMalformedBlob indicates an encrypted device key blob is too short to
	// contain an IV and an authentication tag.
	ErrMalformedBlob = errors.Wrap(errors.ErrInvalidInput, "malformed encrypted blob")
)
