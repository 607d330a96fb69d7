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

const queueEntryColumns = `id, tenant_id, device_id, encrypted_payload, encryption_key_version,
	encryption_iv, local_transaction_id, transaction_at, amount, currency, sync_status,
	sync_priority, sync_started_at, sync_completed_at, attempt_count, last_sync_error,
	idempotency_key, created_at, updated_at`

// PostgreSQLQueueEntryRepository implements QueueEntry persistence for PostgreSQL databases.
type PostgreSQLQueueEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLQueueEntryRepository creates a new PostgreSQL QueueEntry repository instance.
func NewPostgreSQLQueueEntryRepository(db *sql.DB) *PostgreSQLQueueEntryRepository {
	return &PostgreSQLQueueEntryRepository{db: db}
}

// Create inserts a new queue entry. A duplicate idempotency key maps to
// ErrDuplicateTransaction so uploads collapse instead of double-queuing.
func (p *PostgreSQLQueueEntryRepository) Create(ctx context.Context, entry *posDomain.QueueEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pos_offline_queue (` + queueEntryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.TenantID,
		entry.DeviceID,
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
		if isPostgreSQLUniqueViolation(err) {
			return posDomain.ErrDuplicateTransaction
		}
		return apperrors.Wrap(err, "failed to create queue entry")
	}
	return nil
}

// Update persists the sync state fields of a queue entry.
func (p *PostgreSQLQueueEntryRepository) Update(ctx context.Context, entry *posDomain.QueueEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pos_offline_queue
			  SET sync_status = $1, sync_started_at = $2, sync_completed_at = $3,
				  attempt_count = $4, last_sync_error = $5, updated_at = $6
			  WHERE id = $7`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.SyncStatus,
		entry.SyncStartedAt,
		entry.SyncCompletedAt,
		entry.AttemptCount,
		entry.LastSyncError,
		entry.UpdatedAt,
		entry.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update queue entry")
	}
	return nil
}

// GetByID retrieves a queue entry by its ID.
func (p *PostgreSQLQueueEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue WHERE id = $1`

	return scanPostgreSQLQueueEntry(querier.QueryRowContext(ctx, query, id))
}

// GetByIdempotencyKey retrieves a queue entry by its unique idempotency key.
func (p *PostgreSQLQueueEntryRepository) GetByIdempotencyKey(
	ctx context.Context,
	key string,
) (*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue WHERE idempotency_key = $1`

	return scanPostgreSQLQueueEntry(querier.QueryRowContext(ctx, query, key))
}

// ListQueued retrieves queued entries ordered by priority rank then age.
// Used by startup recovery and operator requeue paths.
func (p *PostgreSQLQueueEntryRepository) ListQueued(
	ctx context.Context,
	limit int,
) ([]*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue
			  WHERE sync_status = $1
			  ORDER BY CASE sync_priority
				  WHEN 'critical' THEN 0
				  WHEN 'high' THEN 1
				  ELSE 2
			  END ASC, created_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, posDomain.SyncStatusQueued, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list queued entries")
	}
	defer func() { _ = rows.Close() }()

	return collectQueueEntries(rows, scanPostgreSQLQueueEntry)
}

// ListByDeviceAndStatus retrieves entries for a device in a given sync status.
func (p *PostgreSQLQueueEntryRepository) ListByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
	offset, limit int,
) ([]*posDomain.QueueEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + queueEntryColumns + ` FROM pos_offline_queue
			  WHERE device_id = $1 AND sync_status = $2
			  ORDER BY created_at ASC
			  OFFSET $3 LIMIT $4`

	rows, err := querier.QueryContext(ctx, query, deviceID, status, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list entries by device and status")
	}
	defer func() { _ = rows.Close() }()

	return collectQueueEntries(rows, scanPostgreSQLQueueEntry)
}

// CountByDeviceAndStatus counts entries for a device in a given sync status.
func (p *PostgreSQLQueueEntryRepository) CountByDeviceAndStatus(
	ctx context.Context,
	deviceID uuid.UUID,
	status posDomain.SyncStatus,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM pos_offline_queue WHERE device_id = $1 AND sync_status = $2`

	var count int64
	if err := querier.QueryRowContext(ctx, query, deviceID, status).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count entries by device and status")
	}
	return count, nil
}

func scanPostgreSQLQueueEntry(row rowScanner) (*posDomain.QueueEntry, error) {
	var entry posDomain.QueueEntry
	err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.DeviceID,
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
	return &entry, nil
}

func collectQueueEntries(
	rows *sql.Rows,
	scan func(rowScanner) (*posDomain.QueueEntry, error),
) ([]*posDomain.QueueEntry, error) {
	var entries []*posDomain.QueueEntry
	for rows.Next() {
		entry, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate queue entries")
	}
	return entries, nil
}
