package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeviceKey is one version of a device's encryption key, stored only as an
// envelope-encrypted blob under the server master key. Versions are never
// reused: every re-pairing persists a new row so previously queued payloads
// stay decryptable with their recorded key version.
type DeviceKey struct {
	// ID is the unique identifier for this key record.
	ID uuid.UUID
	// TenantID scopes the key to a single tenant.
	TenantID uuid.UUID
	// DeviceID is the device this key belongs to.
	DeviceID uuid.UUID
	// KeyVersion is the monotonic version, unique per device.
	KeyVersion int
	// KeyCiphertext is the envelope blob (IV || ciphertext+tag).
	KeyCiphertext []byte
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
}
