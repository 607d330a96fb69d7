// Package domain defines the cryptographic domain models for device key
// envelope encryption: a single 256-bit server master key protects per-device
// symmetric keys at rest. Raw device key bytes are never persisted; only the
// envelope-encrypted blob and a SHA-256 hash for integrity checks are stored.
package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// MasterKeyEnvVar is the environment variable holding the base64-encoded
// 256-bit master key. In production the value should come from a secret store
// or be KMS-wrapped (see POS_MASTER_KEY_WRAPPED / KMS_KEY_URI).
const MasterKeyEnvVar = "POS_MASTER_KEY"

// WrappedMasterKeyEnvVar holds the KMS-wrapped master key ciphertext (base64).
// Used only when a KMS key URI is configured.
const WrappedMasterKeyEnvVar = "POS_MASTER_KEY_WRAPPED"

// MasterKeySize is the required master key length in bytes (AES-256).
const MasterKeySize = 32

// MasterKey is the root of the device key encryption hierarchy. It is injected
// from the environment or a KMS at startup, never generated per call.
type MasterKey struct {
	Key []byte
}

// NewMasterKey validates the raw key material and wraps it.
// The caller keeps ownership of the slice; Close zeroes it.
func NewMasterKey(key []byte) (*MasterKey, error) {
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, MasterKeySize, len(key))
	}
	return &MasterKey{Key: key}, nil
}

// GenerateMasterKey creates a fresh random 256-bit master key.
// Used by the create-master-key operator command.
func GenerateMasterKey() (*MasterKey, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return &MasterKey{Key: key}, nil
}

// Close zeroes the key material. Call during application shutdown.
func (m *MasterKey) Close() {
	Zero(m.Key)
	m.Key = nil
}

// Base64 returns the standard base64 encoding of the key material.
func (m *MasterKey) Base64() string {
	return base64.StdEncoding.EncodeToString(m.Key)
}

// LoadMasterKeyFromEnv loads the master key from the POS_MASTER_KEY
// environment variable. The value must be a base64-encoded 32-byte key.
func LoadMasterKeyFromEnv() (*MasterKey, error) {
	raw := os.Getenv(MasterKeyEnvVar)
	if raw == "" {
		return nil, ErrMasterKeyNotSet
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}

	masterKey, err := NewMasterKey(key)
	if err != nil {
		Zero(key)
		return nil, err
	}
	return masterKey, nil
}
