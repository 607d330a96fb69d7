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

// PostgreSQLDeviceKeyRepository implements DeviceKey persistence for PostgreSQL databases.
type PostgreSQLDeviceKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeviceKeyRepository creates a new PostgreSQL DeviceKey repository instance.
func NewPostgreSQLDeviceKeyRepository(db *sql.DB) *PostgreSQLDeviceKeyRepository {
	return &PostgreSQLDeviceKeyRepository{db: db}
}

// Create inserts a new device key version. The (device_id, key_version) pair is
// unique so a version can never be silently overwritten.
func (p *PostgreSQLDeviceKeyRepository) Create(ctx context.Context, key *posDomain.DeviceKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pos_device_keys (id, tenant_id, device_id, key_version, key_ciphertext, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.TenantID,
		key.DeviceID,
		key.KeyVersion,
		key.KeyCiphertext,
		key.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "device key version already exists")
		}
		return apperrors.Wrap(err, "failed to create device key")
	}
	return nil
}

// GetByDeviceAndVersion retrieves one key version for a device.
func (p *PostgreSQLDeviceKeyRepository) GetByDeviceAndVersion(
	ctx context.Context,
	deviceID uuid.UUID,
	version int,
) (*posDomain.DeviceKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, device_id, key_version, key_ciphertext, created_at
			  FROM pos_device_keys
			  WHERE device_id = $1 AND key_version = $2`

	var key posDomain.DeviceKey
	err := querier.QueryRowContext(ctx, query, deviceID, version).Scan(
		&key.ID,
		&key.TenantID,
		&key.DeviceID,
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
	return &key, nil
}
