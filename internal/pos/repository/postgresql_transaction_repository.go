package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

const offlineTransactionColumns = `id, tenant_id, device_id, queue_entry_id, local_transaction_id,
	offline_at, payment_intent_id, amount, currency, synced_at, sync_duration_ms, created_at`

// PostgreSQLOfflineTransactionRepository implements OfflineTransaction persistence for PostgreSQL databases.
type PostgreSQLOfflineTransactionRepository struct {
	db *sql.DB
}

// NewPostgreSQLOfflineTransactionRepository creates a new PostgreSQL OfflineTransaction repository instance.
func NewPostgreSQLOfflineTransactionRepository(db *sql.DB) *PostgreSQLOfflineTransactionRepository {
	return &PostgreSQLOfflineTransactionRepository{db: db}
}

// Create inserts the audit record for a synced queue entry. The queue_entry_id
// column is unique so a replayed sync can never produce a second record.
func (p *PostgreSQLOfflineTransactionRepository) Create(
	ctx context.Context,
	tx *posDomain.OfflineTransaction,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pos_offline_transactions (` + offlineTransactionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.TenantID,
		tx.DeviceID,
		tx.QueueEntryID,
		tx.LocalTransactionID,
		tx.OfflineAt,
		tx.PaymentIntentID,
		tx.Amount,
		tx.Currency,
		tx.SyncedAt,
		tx.SyncDuration.Milliseconds(),
		tx.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return posDomain.ErrDuplicateTransaction
		}
		return apperrors.Wrap(err, "failed to create offline transaction")
	}
	return nil
}

// GetByQueueEntryID retrieves the audit record for a queue entry.
func (p *PostgreSQLOfflineTransactionRepository) GetByQueueEntryID(
	ctx context.Context,
	queueEntryID uuid.UUID,
) (*posDomain.OfflineTransaction, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offlineTransactionColumns + ` FROM pos_offline_transactions
			  WHERE queue_entry_id = $1`

	return scanPostgreSQLOfflineTransaction(querier.QueryRowContext(ctx, query, queueEntryID))
}

// GetByDeviceAndLocalTransactionID retrieves the audit record for a device's
// local transaction. Used by upload duplicate detection.
func (p *PostgreSQLOfflineTransactionRepository) GetByDeviceAndLocalTransactionID(
	ctx context.Context,
	deviceID uuid.UUID,
	localTransactionID string,
) (*posDomain.OfflineTransaction, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + offlineTransactionColumns + ` FROM pos_offline_transactions
			  WHERE device_id = $1 AND local_transaction_id = $2`

	return scanPostgreSQLOfflineTransaction(querier.QueryRowContext(ctx, query, deviceID, localTransactionID))
}

func scanPostgreSQLOfflineTransaction(row rowScanner) (*posDomain.OfflineTransaction, error) {
	var tx posDomain.OfflineTransaction
	var durationMs int64
	err := row.Scan(
		&tx.ID,
		&tx.TenantID,
		&tx.DeviceID,
		&tx.QueueEntryID,
		&tx.LocalTransactionID,
		&tx.OfflineAt,
		&tx.PaymentIntentID,
		&tx.Amount,
		&tx.Currency,
		&tx.SyncedAt,
		&durationMs,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan offline transaction")
	}
	tx.SyncDuration = time.Duration(durationMs) * time.Millisecond
	return &tx, nil
}
