// Package service implements the cryptographic services protecting device keys
// and offline transaction payloads: AES-256-GCM authenticated encryption, the
// device key envelope cipher, and KMS integration for the master key.
package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
)

// AESGCMCipher provides AES-256-GCM authenticated encryption.
//
// Security properties:
//   - 256-bit key size
//   - 12-byte IV (96 bits, randomly generated per encryption)
//   - 16-byte authentication tag (128 bits, appended to ciphertext)
//
// The cipher instance is stateless and safe for concurrent use from multiple
// goroutines. Each encryption operation generates a unique IV independently;
// the random IV per encryption avoids nonce reuse across re-pairings.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.MasterKeySize {
		return nil, fmt.Errorf(
			"%w: key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.MasterKeySize,
			len(key),
		)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// IVSize returns the IV length in bytes (12 for GCM).
func (a *AESGCMCipher) IVSize() int {
	return a.aead.NonceSize()
}

// Encrypt encrypts plaintext and returns the ciphertext (with the 16-byte
// authentication tag appended) and the randomly generated 12-byte IV. The IV
// must be stored alongside the ciphertext for later decryption.
func (a *AESGCMCipher) Encrypt(plaintext []byte) (ciphertext, iv []byte, err error) {
	iv = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext = a.aead.Seal(nil, iv, plaintext, nil)
	return ciphertext, iv, nil
}

// Decrypt authenticates and decrypts ciphertext with the IV used at
// encryption time. Authentication failure means tampering or the wrong key;
// no plaintext is returned in that case.
func (a *AESGCMCipher) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
