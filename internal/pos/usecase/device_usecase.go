package usecase

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
	cryptoService "github.com/allisson/possync/internal/crypto/service"
	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
	"github.com/allisson/possync/internal/tenant"
)

// deviceUseCase implements the DeviceUseCase interface.
type deviceUseCase struct {
	txManager         database.TxManager
	deviceRepo        DeviceRepository
	deviceKeyRepo     DeviceKeyRepository
	activityLogRepo   ActivityLogRepository
	keyService        cryptoService.DeviceKeyService
	pairingExpiration time.Duration
	logger            *slog.Logger
}

// NewDeviceUseCase creates a new device use case instance with the provided dependencies.
func NewDeviceUseCase(
	txManager database.TxManager,
	deviceRepo DeviceRepository,
	deviceKeyRepo DeviceKeyRepository,
	activityLogRepo ActivityLogRepository,
	keyService cryptoService.DeviceKeyService,
	pairingExpiration time.Duration,
	logger *slog.Logger,
) DeviceUseCase {
	return &deviceUseCase{
		txManager:         txManager,
		deviceRepo:        deviceRepo,
		deviceKeyRepo:     deviceKeyRepo,
		activityLogRepo:   activityLogRepo,
		keyService:        keyService,
		pairingExpiration: pairingExpiration,
		logger:            logger,
	}
}

// InitiatePairing registers a new device in pending state or refreshes the
// pairing code of an existing non-active device. An already active device
// cannot be re-paired without being suspended or retired first.
func (d *deviceUseCase) InitiatePairing(
	ctx context.Context,
	in InitiatePairingInput,
) (*posDomain.Device, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	code, err := posDomain.GeneratePairingCode()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate pairing code")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(d.pairingExpiration)

	existing, err := d.deviceRepo.GetByTenantAndIdentifier(ctx, tenantID, in.DeviceIdentifier)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	var device *posDomain.Device
	if existing != nil {
		if existing.Status == posDomain.DeviceStatusActive {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "device already paired and active")
		}
		existing.PairingCode = &code
		existing.PairingExpiresAt = &expiresAt
		existing.Status = posDomain.DeviceStatusPending
		existing.UpdatedAt = now
		if err := d.deviceRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		device = existing
	} else {
		device = &posDomain.Device{
			ID:                   uuid.Must(uuid.NewV7()),
			TenantID:             tenantID,
			DeviceIdentifier:     in.DeviceIdentifier,
			DeviceName:           in.DeviceName,
			LocationName:         in.LocationName,
			HardwareModel:        in.HardwareModel,
			EncryptionKeyHash:    posDomain.PendingKeyHash,
			EncryptionKeyVersion: 1,
			PairingCode:          &code,
			PairingExpiresAt:     &expiresAt,
			Status:               posDomain.DeviceStatusPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := d.deviceRepo.Create(ctx, device); err != nil {
			return nil, err
		}
	}

	d.logActivity(ctx, device, posDomain.ActivityPairingInitiated, map[string]any{
		"device_identifier": in.DeviceIdentifier,
	})
	d.logger.Info("pairing initiated",
		slog.String("device_id", device.ID.String()),
		slog.String("device_identifier", in.DeviceIdentifier),
		slog.Time("expires_at", expiresAt),
	)
	return device, nil
}

// CompletePairing activates the pending device holding the code, generates a
// fresh device key at the next monotonic version, and returns the raw key
// base64-encoded. This is the only moment the raw key exists outside the
// device; only its hash and its envelope blob are persisted.
func (d *deviceUseCase) CompletePairing(ctx context.Context, code string) (*PairingResult, error) {
	device, err := d.deviceRepo.GetByPairingCode(ctx, code)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			d.logger.Warn("pairing attempt with invalid code")
			return nil, posDomain.ErrPairingFailed
		}
		return nil, err
	}

	now := time.Now().UTC()
	if !device.PairingCodeValid(now) {
		d.logger.Warn("pairing attempt with expired code",
			slog.String("device_id", device.ID.String()),
		)
		return nil, posDomain.ErrPairingFailed
	}

	rawKey, err := d.keyService.GenerateDeviceKey()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(rawKey)

	blob, err := d.keyService.EncryptDeviceKey(rawKey)
	if err != nil {
		return nil, err
	}

	// First pairing keeps version 1; every re-pairing bumps it so earlier
	// queued payloads stay decryptable with their recorded version.
	version := device.EncryptionKeyVersion
	if device.EncryptionKeyHash != posDomain.PendingKeyHash {
		version++
	}

	err = d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		key := &posDomain.DeviceKey{
			ID:            uuid.Must(uuid.NewV7()),
			TenantID:      device.TenantID,
			DeviceID:      device.ID,
			KeyVersion:    version,
			KeyCiphertext: blob,
			CreatedAt:     now,
		}
		if err := d.deviceKeyRepo.Create(txCtx, key); err != nil {
			return err
		}

		device.EncryptionKeyHash = d.keyService.HashDeviceKey(rawKey)
		device.EncryptionKeyVersion = version
		device.Status = posDomain.DeviceStatusActive
		device.PairingCode = nil
		device.PairingExpiresAt = nil
		device.LastSeenAt = &now
		device.UpdatedAt = now
		return d.deviceRepo.Update(txCtx, device)
	})
	if err != nil {
		return nil, err
	}

	d.logActivity(ctx, device, posDomain.ActivityDevicePaired, map[string]any{
		"key_version": version,
	})
	d.logger.Info("device paired",
		slog.String("device_id", device.ID.String()),
		slog.Int("key_version", version),
	)

	return &PairingResult{
		DeviceID:             device.ID,
		DeviceName:           device.DeviceName,
		EncryptionKey:        base64.StdEncoding.EncodeToString(rawKey),
		EncryptionKeyVersion: version,
	}, nil
}

// Heartbeat updates the device's last-seen timestamp and tracks firmware changes.
func (d *deviceUseCase) Heartbeat(ctx context.Context, deviceID uuid.UUID, firmwareVersion string) error {
	device, err := d.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	device.LastSeenAt = &now
	device.UpdatedAt = now

	if firmwareVersion != "" && firmwareVersion != device.FirmwareVersion {
		previous := device.FirmwareVersion
		device.FirmwareVersion = firmwareVersion
		d.logActivity(ctx, device, posDomain.ActivityFirmwareUpdate, map[string]any{
			"previous": previous,
			"current":  firmwareVersion,
		})
	}

	return d.deviceRepo.Update(ctx, device)
}

// MarkSyncCompleted records a successful offline transaction sync on the device.
func (d *deviceUseCase) MarkSyncCompleted(ctx context.Context, deviceID uuid.UUID) error {
	device, err := d.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	device.LastSyncedAt = &now
	device.LastSeenAt = &now
	device.UpdatedAt = now
	return d.deviceRepo.Update(ctx, device)
}

// Suspend blocks uploads from an active device.
func (d *deviceUseCase) Suspend(ctx context.Context, deviceID uuid.UUID) error {
	return d.transition(
		ctx,
		deviceID,
		[]posDomain.DeviceStatus{posDomain.DeviceStatusActive},
		posDomain.DeviceStatusSuspended,
		posDomain.ActivityDeviceSuspended,
	)
}

// Reactivate restores a suspended device to active.
func (d *deviceUseCase) Reactivate(ctx context.Context, deviceID uuid.UUID) error {
	return d.transition(
		ctx,
		deviceID,
		[]posDomain.DeviceStatus{posDomain.DeviceStatusSuspended},
		posDomain.DeviceStatusActive,
		posDomain.ActivityDeviceReactivated,
	)
}

// Retire permanently decommissions a device. Retired is terminal.
func (d *deviceUseCase) Retire(ctx context.Context, deviceID uuid.UUID) error {
	return d.transition(
		ctx,
		deviceID,
		[]posDomain.DeviceStatus{
			posDomain.DeviceStatusPending,
			posDomain.DeviceStatusActive,
			posDomain.DeviceStatusSuspended,
		},
		posDomain.DeviceStatusRetired,
		posDomain.ActivityDeviceRetired,
	)
}

// ListActiveDevices retrieves active devices for the calling tenant.
func (d *deviceUseCase) ListActiveDevices(
	ctx context.Context,
	offset, limit int,
) ([]*posDomain.Device, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return d.deviceRepo.ListActiveByTenant(ctx, tenantID, offset, limit)
}

func (d *deviceUseCase) transition(
	ctx context.Context,
	deviceID uuid.UUID,
	from []posDomain.DeviceStatus,
	to posDomain.DeviceStatus,
	activity posDomain.ActivityType,
) error {
	device, err := d.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}

	allowed := false
	for _, status := range from {
		if device.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.Wrap(
			apperrors.ErrConflict,
			"invalid device status transition from "+string(device.Status),
		)
	}

	device.Status = to
	device.UpdatedAt = time.Now().UTC()
	if err := d.deviceRepo.Update(ctx, device); err != nil {
		return err
	}

	d.logActivity(ctx, device, activity, nil)
	d.logger.Info("device status changed",
		slog.String("device_id", device.ID.String()),
		slog.String("status", string(to)),
	)
	return nil
}

// logActivity writes an audit row. Audit failures are logged but never fail
// the operation they describe.
func (d *deviceUseCase) logActivity(
	ctx context.Context,
	device *posDomain.Device,
	activity posDomain.ActivityType,
	metadata map[string]any,
) {
	if err := d.activityLogRepo.Create(ctx, posDomain.NewActivityLog(device, activity, metadata)); err != nil {
		d.logger.Error("failed to write activity log",
			slog.String("device_id", device.ID.String()),
			slog.String("activity", string(activity)),
			slog.String("error", err.Error()),
		)
	}
}

// tenantFromContext resolves the calling tenant or rejects the request.
func tenantFromContext(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return uuid.Nil, apperrors.Wrap(apperrors.ErrUnauthorized, "tenant not resolved")
	}
	return tenantID, nil
}
