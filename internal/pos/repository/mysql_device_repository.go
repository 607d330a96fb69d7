package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// MySQLDeviceRepository implements Device persistence for MySQL databases.
// UUIDs are stored as BINARY(16).
type MySQLDeviceRepository struct {
	db *sql.DB
}

// NewMySQLDeviceRepository creates a new MySQL Device repository instance.
func NewMySQLDeviceRepository(db *sql.DB) *MySQLDeviceRepository {
	return &MySQLDeviceRepository{db: db}
}

// Create inserts a new device into the MySQL database.
func (m *MySQLDeviceRepository) Create(ctx context.Context, device *posDomain.Device) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pos_devices (` + deviceColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, tenantID, err := marshalDeviceIDs(device)
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
		device.DeviceIdentifier,
		device.DeviceName,
		device.LocationName,
		device.HardwareModel,
		device.FirmwareVersion,
		device.EncryptionKeyHash,
		device.EncryptionKeyVersion,
		device.PairingCode,
		device.PairingExpiresAt,
		device.Status,
		device.LastSeenAt,
		device.LastSyncedAt,
		device.CreatedAt,
		device.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "device identifier already registered")
		}
		return apperrors.Wrap(err, "failed to create device")
	}
	return nil
}

// Update persists the mutable fields of a device.
func (m *MySQLDeviceRepository) Update(ctx context.Context, device *posDomain.Device) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE pos_devices
			  SET device_name = ?, location_name = ?, hardware_model = ?, firmware_version = ?,
				  encryption_key_hash = ?, encryption_key_version = ?, pairing_code = ?,
				  pairing_expires_at = ?, status = ?, last_seen_at = ?, last_synced_at = ?,
				  updated_at = ?
			  WHERE id = ?`

	id, err := device.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		device.DeviceName,
		device.LocationName,
		device.HardwareModel,
		device.FirmwareVersion,
		device.EncryptionKeyHash,
		device.EncryptionKeyVersion,
		device.PairingCode,
		device.PairingExpiresAt,
		device.Status,
		device.LastSeenAt,
		device.LastSyncedAt,
		device.UpdatedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update device")
	}
	return nil
}

// GetByID retrieves a device by its ID.
func (m *MySQLDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	return scanMySQLDevice(querier.QueryRowContext(ctx, query, idBytes))
}

// GetByTenantAndIdentifier retrieves a device by tenant and client hardware identifier.
func (m *MySQLDeviceRepository) GetByTenantAndIdentifier(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE tenant_id = ? AND device_identifier = ?`

	tenantBytes, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	return scanMySQLDevice(querier.QueryRowContext(ctx, query, tenantBytes, identifier))
}

// GetByPairingCode retrieves a pending device holding the given pairing code.
func (m *MySQLDeviceRepository) GetByPairingCode(
	ctx context.Context,
	code string,
) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE pairing_code = ? AND status = ?`

	return scanMySQLDevice(querier.QueryRowContext(ctx, query, code, posDomain.DeviceStatusPending))
}

// ListActiveByTenant retrieves active devices for a tenant ordered by name, with pagination.
func (m *MySQLDeviceRepository) ListActiveByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*posDomain.Device, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE tenant_id = ? AND status = ?
			  ORDER BY device_name ASC
			  LIMIT ? OFFSET ?`

	tenantBytes, err := tenantID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}

	rows, err := querier.QueryContext(ctx, query, tenantBytes, posDomain.DeviceStatusActive, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active devices")
	}
	defer func() { _ = rows.Close() }()

	var devices []*posDomain.Device
	for rows.Next() {
		device, err := scanMySQLDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate devices")
	}
	return devices, nil
}

func marshalDeviceIDs(device *posDomain.Device) ([]byte, []byte, error) {
	id, err := device.ID.MarshalBinary()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal device id")
	}
	tenantID, err := device.TenantID.MarshalBinary()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal tenant id")
	}
	return id, tenantID, nil
}

func scanMySQLDevice(row rowScanner) (*posDomain.Device, error) {
	var device posDomain.Device
	var id, tenantID []byte
	err := row.Scan(
		&id,
		&tenantID,
		&device.DeviceIdentifier,
		&device.DeviceName,
		&device.LocationName,
		&device.HardwareModel,
		&device.FirmwareVersion,
		&device.EncryptionKeyHash,
		&device.EncryptionKeyVersion,
		&device.PairingCode,
		&device.PairingExpiresAt,
		&device.Status,
		&device.LastSeenAt,
		&device.LastSyncedAt,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, posDomain.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan device")
	}

	if err := device.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal device id")
	}
	if err := device.TenantID.UnmarshalBinary(tenantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	return &device, nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
