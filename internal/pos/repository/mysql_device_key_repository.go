package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// MySQLDeviceKeyRepository implements DeviceKey persistence for MySQL databases.
type MySQLDeviceKeyRepository struct {
	db *sql.DB
}

// NewMySQLDeviceKeyRepository creates a new MySQL DeviceKey repository instance.
func NewMySQLDeviceKeyRepository(db *sql.DB) *MySQLDeviceKeyRepository {
	return &MySQLDeviceKeyRepository{db: db}
}

// Create inserts a new device key version. The (device_id, key_version) pair is
// unique so a version can never be silently overwritten.
func (m *MySQLDeviceKeyRepository) Create(ctx context.Context, key *posDomain.DeviceKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pos_device_keys (id, tenant_id, device_id, key_version, key_ciphertext, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}
	tenantID, err := key.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}
	deviceID, err := key.DeviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
		deviceID,
		key.KeyVersion,
		key.KeyCiphertext,
		key.CreatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "device key version already exists")
		}
		return apperrors.Wrap(err, "failed to create device key")
	}
	return nil
}

// GetByDeviceAndVersion retrieves one key version for a device.
func (m *MySQLDeviceKeyRepository) GetByDeviceAndVersion(
	ctx context.Context,
	deviceID uuid.UUID,
	version int,
) (*posDomain.DeviceKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, device_id, key_version, key_ciphertext, created_at
			  FROM pos_device_keys
			  WHERE device_id = ? AND key_version = ?`

	deviceBytes, err := deviceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	var key posDomain.DeviceKey
	var id, tenantID, device []byte
	err = querier.QueryRowContext(ctx, query, deviceBytes, version).Scan(
		&id,
		&tenantID,
		&device,
		&key.KeyVersion,
		&key.KeyCiphertext,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, posDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get device key")
	}

	if err := key.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key id")
	}
	if err := key.TenantID.UnmarshalBinary(tenantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	if err := key.DeviceID.UnmarshalBinary(device); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal device id")
	}
	return &key, nil
}
