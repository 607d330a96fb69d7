// Package repository implements data persistence for POS devices and the
// offline sync queue. Repositories support both PostgreSQL and MySQL, like
// every other aggregate in this codebase.
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

const deviceColumns = `id, tenant_id, device_identifier, device_name, location_name, hardware_model,
	firmware_version, encryption_key_hash, encryption_key_version, pairing_code, pairing_expires_at,
	status, last_seen_at, last_synced_at, created_at, updated_at`

// PostgreSQLDeviceRepository implements Device persistence for PostgreSQL databases.
type PostgreSQLDeviceRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeviceRepository creates a new PostgreSQL Device repository instance.
func NewPostgreSQLDeviceRepository(db *sql.DB) *PostgreSQLDeviceRepository {
	return &PostgreSQLDeviceRepository{db: db}
}

// Create inserts a new device into the PostgreSQL database.
func (p *PostgreSQLDeviceRepository) Create(ctx context.Context, device *posDomain.Device) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pos_devices (` + deviceColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := querier.ExecContext(
		ctx,
		query,
		device.ID,
		device.TenantID,
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
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "device identifier already registered")
		}
		return apperrors.Wrap(err, "failed to create device")
	}
	return nil
}

// Update persists the mutable fields of a device.
func (p *PostgreSQLDeviceRepository) Update(ctx context.Context, device *posDomain.Device) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pos_devices
			  SET device_name = $1, location_name = $2, hardware_model = $3, firmware_version = $4,
				  encryption_key_hash = $5, encryption_key_version = $6, pairing_code = $7,
				  pairing_expires_at = $8, status = $9, last_seen_at = $10, last_synced_at = $11,
				  updated_at = $12
			  WHERE id = $13`

	_, err := querier.ExecContext(
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
		device.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update device")
	}
	return nil
}

// GetByID retrieves a device by its ID.
func (p *PostgreSQLDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices WHERE id = $1`

	return scanPostgreSQLDevice(querier.QueryRowContext(ctx, query, id))
}

// GetByTenantAndIdentifier retrieves a device by tenant and client hardware identifier.
func (p *PostgreSQLDeviceRepository) GetByTenantAndIdentifier(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE tenant_id = $1 AND device_identifier = $2`

	return scanPostgreSQLDevice(querier.QueryRowContext(ctx, query, tenantID, identifier))
}

// GetByPairingCode retrieves a pending device holding the given pairing code.
func (p *PostgreSQLDeviceRepository) GetByPairingCode(
	ctx context.Context,
	code string,
) (*posDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE pairing_code = $1 AND status = $2`

	return scanPostgreSQLDevice(querier.QueryRowContext(ctx, query, code, posDomain.DeviceStatusPending))
}

// ListActiveByTenant retrieves active devices for a tenant ordered by name, with pagination.
func (p *PostgreSQLDeviceRepository) ListActiveByTenant(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*posDomain.Device, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deviceColumns + ` FROM pos_devices
			  WHERE tenant_id = $1 AND status = $2
			  ORDER BY device_name ASC
			  OFFSET $3 LIMIT $4`

	rows, err := querier.QueryContext(ctx, query, tenantID, posDomain.DeviceStatusActive, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active devices")
	}
	defer func() { _ = rows.Close() }()

	var devices []*posDomain.Device
	for rows.Next() {
		device, err := scanPostgreSQLDevice(rows)
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

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLDevice(row rowScanner) (*posDomain.Device, error) {
	var device posDomain.Device
	err := row.Scan(
		&device.ID,
		&device.TenantID,
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
	return &device, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
