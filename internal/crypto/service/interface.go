package service

// DeviceKeyService defines the cryptographic operations for POS device keys:
// generation, integrity hashing, envelope encryption of the key itself under
// the server master key, and payload encryption under a raw device key.
type DeviceKeyService interface {
	// GenerateDeviceKey creates a fresh random 256-bit device key.
	GenerateDeviceKey() ([]byte, error)

	// HashDeviceKey returns the SHA-256 hex digest of the raw key for fast
	// integrity checks. The hash is the only key-derived value ever persisted
	// besides the encrypted blob.
	HashDeviceKey(rawKey []byte) string

	// EncryptDeviceKey envelope-encrypts a raw device key under the master key
	// and returns an opaque blob laid out as IV || ciphertext+tag.
	EncryptDeviceKey(rawKey []byte) ([]byte, error)

	// DecryptDeviceKey splits the IV from the blob, authenticates, and decrypts.
	// Tag-verification failure is unrecoverable for that key version.
	DecryptDeviceKey(blob []byte) ([]byte, error)

	// EncryptPayload encrypts a transaction payload under a raw device key,
	// returning ciphertext (tag appended) and the IV separately, matching what
	// offline devices upload.
	EncryptPayload(rawKey, plaintext []byte) (ciphertext, iv []byte, err error)

	// DecryptPayload decrypts an uploaded transaction payload with the device
	// key version recorded at encryption time.
	DecryptPayload(rawKey, ciphertext, iv []byte) ([]byte, error)
}
