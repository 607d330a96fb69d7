package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/database"
	apperrors "github.com/allisson/possync/internal/errors"
	posDomain "github.com/allisson/possync/internal/pos/domain"
)

// MySQLActivityLogRepository implements ActivityLog persistence for MySQL databases.
type MySQLActivityLogRepository struct {
	db *sql.DB
}

// NewMySQLActivityLogRepository creates a new MySQL ActivityLog repository instance.
func NewMySQLActivityLogRepository(db *sql.DB) *MySQLActivityLogRepository {
	return &MySQLActivityLogRepository{db: db}
}

// Create inserts an audit trail row. Metadata is persisted as JSON.
func (m *MySQLActivityLogRepository) Create(ctx context.Context, log *posDomain.ActivityLog) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal activity metadata")
	}

	id, err := log.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal log id")
	}
	tenantID, err := log.TenantID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant id")
	}
	deviceID, err := log.DeviceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal device id")
	}

	query := `INSERT INTO pos_activity_log (id, tenant_id, device_id, activity_type, metadata, occurred_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, tenantID, deviceID, log.ActivityType, metadata, log.OccurredAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create activity log")
	}
	return nil
}

// ListByDevice retrieves audit rows for a device, newest first, with pagination.
func (m *MySQLActivityLogRepository) ListByDevice(
	ctx context.Context,
	deviceID uuid.UUID,
	offset, limit int,
) ([]*posDomain.ActivityLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, device_id, activity_type, metadata, occurred_at
			  FROM pos_activity_log
			  WHERE device_id = ?
			  ORDER BY occurred_at DESC
			  LIMIT ? OFFSET ?`

	deviceBytes, err := deviceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal device id")
	}

	rows, err := querier.QueryContext(ctx, query, deviceBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list activity logs")
	}
	defer func() { _ = rows.Close() }()

	var logs []*posDomain.ActivityLog
	for rows.Next() {
		var entry posDomain.ActivityLog
		var id, tenantID, device, metadata []byte
		if err := rows.Scan(&id, &tenantID, &device, &entry.ActivityType, &metadata, &entry.OccurredAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan activity log")
		}
		if err := entry.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal log id")
		}
		if err := entry.TenantID.UnmarshalBinary(tenantID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal tenant id")
		}
		if err := entry.DeviceID.UnmarshalBinary(device); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal device id")
		}
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal activity metadata")
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate activity logs")
	}
	return logs, nil
}
