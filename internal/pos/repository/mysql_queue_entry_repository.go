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

// MySQLQueueEntryRepository implements QueueEntry persistence for MySQL databases.
type MySQLQueueEntryRepository struct {
	db *sql.DB
}

// NewMySQLQueueEntryRepository creates a new MySQL QueueEntry repository instance.
func NewMySQLQueueEntryRepository(db *sql.DB) *MySQLQueueEntryRepository {
	return &MySQLQueueEntryRepository{db: db}
}

// Create inserts a new queue entry. A duplicate idempotency key maps to
// ErrDuplicateTransaction so uploads collapse instead of double-queuing.
func (m *MySQLQueueEntryRepository) Create(ctx context.Context, entry *posDomain.QueueEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pos_offline_queue (` + queueEntryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal entry id")
	}
	tenantID, err := entry.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}
	deviceID, err := entry.DeviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
		deviceID,
		entry.EncryptedPayload,
		entry.EncryptionKeyVersion,
		entry.EncryptionIV,
		entry.LocalTransactionID,
		entry.TransactionAt,
		entry.Amount,
		entry.Currency,
		entry.SyncStatus,
		entry.SyncPriority,
		entry.SyncStartedAt,
		entry.SyncCompletedAt,
		entry.AttemptCount,
		entry.LastSyncError,
		entry.IdempotencyKey,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return posDomain.ErrDuplicateTransaction
		}
		return apperrors.Wrap(err, "failed to create queue entry")
	}
	return nil
}

// Update persists the sync state fields of a queue entry.
func (m *MySQLQueueEntryRepository) Update(ctx context.Context, entry *posDomain.QueueEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE pos_offline_queue
			  SET sync_status = ?, sync_started_at = ?, sync_completed_at = ?,
				  attempt_count = ?, last_sync_error = ?, updated_at = ?
			  WHERE id = ?`

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal entry id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.SyncStatus,
		entry.SyncStartedAt,
		entry.SyncCompletedAt,
		entry.AttemptCount,
		entry.LastSyncError,
		entry.UpdatedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update queue entry")
	}
	return nil
}

// GetByID retrieves a queue entry by its ID.
func (m *MySQLQueueEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal entry id")
	}

	return scanMySQLQueueEntry(querier.QueryRowContext(ctx, query, idBytes))
}

// GetByIdempotencyKey retrieves a queue entry by its unique idempotency key.
func (m *MySQLQueueEntryRepository) GetByIdempotencyKey(
	ctx context.Context,
	key string,
) (*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue WHERE idempotency_key = ?`

	return scanMySQLQueueEntry(querier.QueryRowContext(ctx, query, key))
}

// ListQueued retrieves queued entries ordered by priority rank then age.
// Used by startup recovery and operator requeue paths.
func (m *MySQLQueueEntryRepository) ListQueued(
	ctx context.Context,
	limit int,
) ([]*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue
			  WHERE sync_status = ?
			  ORDER BY CASE sync_priority
				  WHEN 'critical' THEN 0
				  WHEN 'high' THEN 1
				  ELSE 2
			  END ASC, created_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, posDomain.SyncStatusQueued, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list queued entries")
	}
	defer func() { _ = rows.Close() }()

	return collectQueueEntries(rows, scanMySQLQueueEntry)
}

// ListByDeviceAndStatus retrieves entries for a device in a given sync status.
func (m *MySQLQueueEntryRepository) ListByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
	offset, limit int,
) ([]*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue
			  WHERE device_id = ? AND sync_status = ?
			  ORDER BY created_at ASC
			  LIMIT ? OFFSET ?`

	deviceBytes, err := deviceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	rows, err := querier.QueryContext(ctx, query, deviceBytes, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list entries by device and status")
	}
	defer func() { _ = rows.Close() }()

	return collectQueueEntries(rows, scanMySQLQueueEntry)
}

// CountByDeviceAndStatus counts entries for a device in a given sync status.
func (m *MySQLQueueEntryRepository) CountByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM pos_offline_queue WHERE device_id = ? AND sync_status = ?`

	deviceBytes, err := deviceID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal device id")
	}

	var count int64
	if err := querier.QueryRowContext(ctx, query, deviceBytes, status).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count entries by device and status")
	}
	return count, nil
}

func scanMySQLQueueEntry(row rowScanner) (*posDomain.QueueEntry, error) {
	var entry posDomain.QueueEntry
	var id, tenantID, deviceID []byte
	err := row.Scan(
		&id,
		&tenantID,
		&deviceID,
		&entry.EncryptedPayload,
		&entry.EncryptionKeyVersion,
		&entry.EncryptionIV,
		&entry.LocalTransactionID,
		&entry.TransactionAt,
		&entry.Amount,
		&entry.Currency,
		&entry.SyncStatus,
		&entry.SyncPriority,
		&entry.SyncStartedAt,
		&entry.SyncCompletedAt,
		&entry.AttemptCount,
		&entry.LastSyncError,
		&entry.IdempotencyKey,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, posDomain.ErrQueueEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan queue entry")
	}

	if err := entry.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal entry id")
	}
	if err := entry.TenantID.UnmarshalBinary(tenantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	if err := entry.DeviceID.UnmarshalBinary(deviceID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal device id")
	}
	return &entry, nil
}
