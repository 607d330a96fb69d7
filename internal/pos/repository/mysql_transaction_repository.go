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

// MySQLOfflineTransactionRepository implements OfflineTransaction persistence for MySQL databases.
type MySQLOfflineTransactionRepository struct {
	db *sql.DB
}

// NewMySQLOfflineTransactionRepository creates a new MySQL OfflineTransaction repository instance.
func NewMySQLOfflineTransactionRepository(db *sql.DB) *MySQLOfflineTransactionRepository {
	return &MySQLOfflineTransactionRepository{db: db}
}

// Create inserts the audit record for a synced queue entry. The queue_entry_id
// column is unique so a replayed sync can never produce a second record.
func (m *MySQLOfflineTransactionRepository) Create(
	ctx context.Context,
	tx *posDomain.OfflineTransaction,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pos_offline_transactions (` + offlineTransactionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := tx.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}
	tenantID, err := tx.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}
	deviceID, err := tx.DeviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}
	queueEntryID, err := tx.QueueEntryID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal queue entry id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tenantID,
		deviceID,
		queueEntryID,
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
		if isMySQLUniqueViolation(err) {
			return posDomain.ErrDuplicateTransaction
		}
		return apperrors.Wrap(err, "failed to create offline transaction")
	}
	return nil
}

// GetByQueueEntryID retrieves the audit record for a queue entry.
func (m *MySQLOfflineTransactionRepository) GetByQueueEntryID(
	ctx context.Context,
	queueEntryID uuid.UUID,
) (*posDomain.OfflineTransaction, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + offlineTransactionColumns + ` FROM pos_offline_transactions
			  WHERE queue_entry_id = ?`

	queueEntryBytes, err := queueEntryID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal queue entry id")
	}

	return scanMySQLOfflineTransaction(querier.QueryRowContext(ctx, query, queueEntryBytes))
}

// GetByDeviceAndLocalTransactionID retrieves the audit record for a device's
// local transaction. Used by upload duplicate detection.
func (m *MySQLOfflineTransactionRepository) GetByDeviceAndLocalTransactionID(
	ctx context.Context,
	deviceID uuid.UUID,
	localTransactionID string,
) (*posDomain.OfflineTransaction, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + offlineTransactionColumns + ` FROM pos_offline_transactions
			  WHERE device_id = ? AND local_transaction_id = ?`

	deviceBytes, err := deviceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	return scanMySQLOfflineTransaction(querier.QueryRowContext(ctx, query, deviceBytes, localTransactionID))
}

func scanMySQLOfflineTransaction(row rowScanner) (*posDomain.OfflineTransaction, error) {
	var tx posDomain.OfflineTransaction
	var id, tenantID, deviceID, queueEntryID []byte
	var durationMs int64
	err := row.Scan(
		&id,
		&tenantID,
		&deviceID,
		&queueEntryID,
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

	if err := tx.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction id")
	}
	if err := tx.TenantID.UnmarshalBinary(tenantID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
	}
	if err := tx.DeviceID.UnmarshalBinary(deviceID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal device id")
	}
	if err := tx.QueueEntryID.UnmarshalBinary(queueEntryID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal queue entry id")
	}
	tx.SyncDuration = time.Duration(durationMs) * time.Millisecond
	return &tx, nil
}
