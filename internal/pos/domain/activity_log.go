package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies a device audit event.
type ActivityType string

const (
	ActivityPairingInitiated  ActivityType = "pairing_initiated"
	ActivityDevicePaired      ActivityType = "device_paired"
	ActivityDeviceSuspended   ActivityType = "device_suspended"
	ActivityDeviceReactivated ActivityType = "device_reactivated"
	ActivityDeviceRetired     ActivityType = "device_retired"
	ActivitySyncStarted       ActivityType = "sync_started"
	ActivitySyncCompleted     ActivityType = "sync_completed"
	ActivitySyncFailed        ActivityType = "sync_failed"
	ActivityFirmwareUpdate    ActivityType = "firmware_update"
)

// ActivityLog is one row of the device audit trail.
type ActivityLog struct {
	// ID is the unique identifier for this log entry.
	ID uuid.UUID
	// TenantID scopes the entry to a single tenant.
	TenantID uuid.UUID
	// DeviceID is the device the activity relates to.
	DeviceID uuid.UUID
	// ActivityType classifies the event.
	ActivityType ActivityType
	// Metadata carries event-specific details, persisted as JSON.
	Metadata map[string]any
	// OccurredAt is when the activity happened.
	OccurredAt time.Time
}

// NewActivityLog builds an audit row for a device event. A nil metadata map is
// replaced by an empty one so persistence always writes a JSON object.
func NewActivityLog(device *Device, activityType ActivityType, metadata map[string]any) *ActivityLog {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &ActivityLog{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     device.TenantID,
		DeviceID:     device.ID,
		ActivityType: activityType,
		Metadata:     metadata,
		OccurredAt:   time.Now().UTC(),
	}
}
