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

// PostgreSQLActivityLogRepository implements ActivityLog persistence for PostgreSQL databases.
type PostgreSQLActivityLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLActivityLogRepository creates a new PostgreSQL ActivityLog repository instance.
func NewPostgreSQLActivityLogRepository(db *sql.DB) *PostgreSQLActivityLogRepository {
	return &PostgreSQLActivityLogRepository{db: db}
}

// Create inserts an audit trail row. Metadata is persisted as JSON.
func (p *PostgreSQLActivityLogRepository) Create(ctx context.Context, log *posDomain.ActivityLog) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal activity metadata")
	}

	query := `INSERT INTO pos_activity_log (id, tenant_id, device_id, activity_type, metadata, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = querier.ExecContext(
		ctx,
		query,
		log.ID,
		log.TenantID,
		log.DeviceID,
		log.ActivityType,
		metadata,
		log.OccurredAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create activity log")
	}
	return nil
}

// ListByDevice retrieves audit rows for a device, newest first, with pagination.
func (p *PostgreSQLActivityLogRepository) ListByDevice(
	ctx context.Context,
	deviceID uuid.UUID,
	offset, limit int,
) ([]*posDomain.ActivityLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, device_id, activity_type, metadata, occurred_at
			  FROM pos_activity_log
			  WHERE device_id = $1
			  ORDER BY occurred_at DESC
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, deviceID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list activity logs")
	}
	defer func() { _ = rows.Close() }()

	var logs []*posDomain.ActivityLog
	for rows.Next() {
		var entry posDomain.ActivityLog
		var metadata []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.DeviceID,
			&entry.ActivityType,
			&metadata,
			&entry.OccurredAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan activity log")
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
