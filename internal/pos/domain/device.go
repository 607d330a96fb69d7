// Package domain defines the core domain models for POS device management and
// offline transaction sync. Devices pair through short-lived staff-entered codes
// and receive a versioned AES-256 encryption key that protects every offline
// payload they later upload.
package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// DeviceStatus is the lifecycle state of a POS device.
type DeviceStatus string

const (
	// DeviceStatusPending means pairing was initiated but not yet completed.
	DeviceStatusPending DeviceStatus = "pending"
	// DeviceStatusActive means the device is paired and may upload transactions.
	DeviceStatusActive DeviceStatus = "active"
	// DeviceStatusSuspended means uploads are blocked until reactivation.
	DeviceStatusSuspended DeviceStatus = "suspended"
	// DeviceStatusRetired is terminal; the device can never upload again.
	DeviceStatusRetired DeviceStatus = "retired"
)

const (
	// PairingCodeAlphabet excludes ambiguous characters (0/O, 1/I) so staff can
	// read codes off a screen without transcription errors.
	PairingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// PairingCodeLength is the number of characters in a pairing code.
	PairingCodeLength = 8

	// PendingKeyHash is the placeholder key hash stored before the first
	// pairing completes and a real key exists.
	PendingKeyHash = "PENDING"
)

// Device represents a registered POS terminal scoped to a tenant.
type Device struct {
	// ID is the unique identifier for this device.
	ID uuid.UUID
	// TenantID scopes the device to a single tenant.
	TenantID uuid.UUID
	// DeviceIdentifier is the client-provided hardware identifier, unique per tenant.
	DeviceIdentifier string
	// DeviceName is the human-readable display name.
	DeviceName string
	// LocationName is the store or location the device operates in.
	LocationName string
	// HardwareModel is the reported hardware model string.
	HardwareModel string
	// FirmwareVersion is the last firmware version reported via heartbeat.
	FirmwareVersion string
	// EncryptionKeyHash is the SHA-256 hex digest of the current raw device key,
	// or PendingKeyHash before the first pairing completes. The raw key itself
	// is never stored.
	EncryptionKeyHash string
	// EncryptionKeyVersion is the version of the current device key.
	EncryptionKeyVersion int
	// PairingCode is the active pairing code (nil once pairing completes).
	PairingCode *string
	// PairingExpiresAt bounds the pairing code validity window.
	PairingExpiresAt *time.Time
	// Status is the device lifecycle state.
	Status DeviceStatus
	// LastSeenAt is the last heartbeat or pairing contact.
	LastSeenAt *time.Time
	// LastSyncedAt is the last successful offline transaction sync.
	LastSyncedAt *time.Time
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last modification.
	UpdatedAt time.Time
}

// PairingCodeValid reports whether the device holds a pairing code that has not
// expired at the given instant.
func (d *Device) PairingCodeValid(now time.Time) bool {
	return d.PairingCode != nil && d.PairingExpiresAt != nil && now.Before(*d.PairingExpiresAt)
}

// GeneratePairingCode returns a fresh random pairing code drawn from
// PairingCodeAlphabet using crypto/rand.
func GeneratePairingCode() (string, error) {
	buf := make([]byte, PairingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, PairingCodeLength)
	for i, b := range buf {
		code[i] = PairingCodeAlphabet[int(b)%len(PairingCodeAlphabet)]
	}
	return string(code), nil
}
