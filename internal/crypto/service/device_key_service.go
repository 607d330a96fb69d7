package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
)

// deviceKeyService implements DeviceKeyService with a single master-key-bound
// AES-256-GCM cipher for envelope operations and per-device ciphers for
// payload operations.
//
// The envelope blob layout is IV || ciphertext+tag so a device key record is a
// single opaque column. Payload ciphertext and IV travel separately because
// offline devices upload them as distinct fields.
type deviceKeyService struct {
	envelope *AESGCMCipher
}

// NewDeviceKeyService creates a DeviceKeyService bound to the server master key.
func NewDeviceKeyService(masterKey *cryptoDomain.MasterKey) (DeviceKeyService, error) {
	envelope, err := NewAESGCM(masterKey.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create envelope cipher: %w", err)
	}
	return &deviceKeyService{envelope: envelope}, nil
}

// GenerateDeviceKey creates a fresh random 256-bit device key.
func (s *deviceKeyService) GenerateDeviceKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate device key: %w", err)
	}
	return key, nil
}

// HashDeviceKey returns the SHA-256 hex digest of the raw key.
func (s *deviceKeyService) HashDeviceKey(rawKey []byte) string {
	sum := sha256.Sum256(rawKey)
	return hex.EncodeToString(sum[:])
}

// EncryptDeviceKey envelope-encrypts a raw device key under the master key.
func (s *deviceKeyService) EncryptDeviceKey(rawKey []byte) ([]byte, error) {
	if len(rawKey) != cryptoDomain.MasterKeySize {
		return nil, fmt.Errorf(
			"%w: device key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.MasterKeySize,
			len(rawKey),
		)
	}

	ciphertext, iv, err := s.envelope.Encrypt(rawKey)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, len(iv)+len(ciphertext))
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// DecryptDeviceKey splits the IV from the blob, authenticates, and decrypts.
func (s *deviceKeyService) DecryptDeviceKey(blob []byte) ([]byte, error) {
	ivSize := s.envelope.IVSize()
	if len(blob) <= ivSize {
		return nil, cryptoDomain.ErrMalformedBlob
	}
	return s.envelope.Decrypt(blob[ivSize:], blob[:ivSize])
}

// EncryptPayload encrypts a transaction payload under a raw device key.
func (s *deviceKeyService) EncryptPayload(rawKey, plaintext []byte) ([]byte, []byte, error) {
	cipher, err := NewAESGCM(rawKey)
	if err != nil {
		return nil, nil, err
	}
	return cipher.Encrypt(plaintext)
}

// DecryptPayload decrypts an uploaded transaction payload with a raw device key.
func (s *deviceKeyService) DecryptPayload(rawKey, ciphertext, iv []byte) ([]byte, error) {
	cipher, err := NewAESGCM(rawKey)
	if err != nil {
		return nil, err
	}
	return cipher.Decrypt(ciphertext, iv)
}
