package domain

import (
	"github.com/allisson/possync/internal/errors"
)

// POS-specific error definitions.
var (
	// ErrDeviceNotFound indicates no device matches the given identifier.
	ErrDeviceNotFound = errors.Wrap(errors.ErrNotFound, "device not found")

	// ErrDeviceNotActive indicates the device status does not permit the operation.
	ErrDeviceNotActive = errors.Wrap(errors.ErrConflict, "device is not active")

	// ErrPairingFailed is the uniform caller-facing pairing error. Invalid and
	// expired codes both map here so the response does not reveal whether a
	// guessed code ever existed.
	ErrPairingFailed = errors.Wrap(errors.ErrInvalidInput, "pairing failed")

	// ErrKeyVersionNotFound indicates the key version recorded on a queue entry
	// has no stored key record. Not retryable; the key row must be restored.
	ErrKeyVersionNotFound = errors.Wrap(errors.ErrNotFound, "device key version not found")

	// ErrDuplicateTransaction indicates the local transaction was already
	// uploaded or synced.
	ErrDuplicateTransaction = errors.Wrap(errors.ErrConflict, "duplicate offline transaction")

	// ErrPayloadCorrupt indicates the encrypted payload failed authentication
	// or the decrypted bytes are not a valid transaction. Not retryable.
	ErrPayloadCorrupt = errors.Wrap(errors.ErrInvalidInput, "offline payload corrupt")

	// ErrQueueFull indicates the in-memory sync queue rejected the job.
	ErrQueueFull = errors.Wrap(errors.ErrConflict, "sync queue full")

	// ErrQueueEntryNotFound indicates no queue entry matches the given ID.
	ErrQueueEntryNotFound = errors.Wrap(errors.ErrNotFound, "queue entry not found")
)
