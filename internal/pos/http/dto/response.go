package dto

import (
	"time"

	posDomain "github.com/allisson/possync/internal/pos/domain"
	posUseCase "github.com/allisson/possync/internal/pos/usecase"
)

// DeviceResponse represents a device in API responses. Key material never
// appears here; only the key version is exposed.
type DeviceResponse struct {
	ID                   string     `json:"id"`
	DeviceIdentifier     string     `json:"device_identifier"`
	DeviceName           string     `json:"device_name"`
	LocationName         string     `json:"location_name,omitempty"`
	HardwareModel        string     `json:"hardware_model,omitempty"`
	FirmwareVersion      string     `json:"firmware_version,omitempty"`
	Status               string     `json:"status"`
	EncryptionKeyVersion int        `json:"encryption_key_version"`
	LastSeenAt           *time.Time `json:"last_seen_at,omitempty"`
	LastSyncedAt         *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// MapDeviceToResponse converts a domain device to a response.
func MapDeviceToResponse(device *posDomain.Device) DeviceResponse {
	return DeviceResponse{
		ID:                   device.ID.String(),
		DeviceIdentifier:     device.DeviceIdentifier,
		DeviceName:           device.DeviceName,
		LocationName:         device.LocationName,
		HardwareModel:        device.HardwareModel,
		FirmwareVersion:      device.FirmwareVersion,
		Status:               string(device.Status),
		EncryptionKeyVersion: device.EncryptionKeyVersion,
		LastSeenAt:           device.LastSeenAt,
		LastSyncedAt:         device.LastSyncedAt,
		CreatedAt:            device.CreatedAt,
	}
}

// ListDevicesResponse represents a paginated list of devices.
type ListDevicesResponse struct {
	Data []DeviceResponse `json:"data"`
}

// MapDevicesToListResponse converts a slice of domain devices to a list response.
func MapDevicesToListResponse(devices []*posDomain.Device) ListDevicesResponse {
	data := make([]DeviceResponse, 0, len(devices))
	for _, device := range devices {
		data = append(data, MapDeviceToResponse(device))
	}
	return ListDevicesResponse{Data: data}
}

// PairingInitiatedResponse carries the pairing code for display to the operator.
type PairingInitiatedResponse struct {
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name"`
	PairingCode string    `json:"pairing_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// MapDeviceToPairingInitiatedResponse builds the response for a freshly
// initiated pairing. The device always carries a code and expiry here.
func MapDeviceToPairingInitiatedResponse(device *posDomain.Device) PairingInitiatedResponse {
	response := PairingInitiatedResponse{
		DeviceID:   device.ID.String(),
		DeviceName: device.DeviceName,
	}
	if device.PairingCode != nil {
		response.PairingCode = *device.PairingCode
	}
	if device.PairingExpiresAt != nil {
		response.ExpiresAt = *device.PairingExpiresAt
	}
	return response
}

// PairingCompletedResponse carries the raw device key, base64-encoded. This is
// the only response that ever contains key material.
type PairingCompletedResponse struct {
	DeviceID             string `json:"device_id"`
	DeviceName           string `json:"device_name"`
	EncryptionKey        string `json:"encryption_key"`
	EncryptionKeyVersion int    `json:"encryption_key_version"`
}

// MapPairingResultToResponse converts a pairing result to a response.
func MapPairingResultToResponse(result *posUseCase.PairingResult) PairingCompletedResponse {
	return PairingCompletedResponse{
		DeviceID:             result.DeviceID.String(),
		DeviceName:           result.DeviceName,
		EncryptionKey:        result.EncryptionKey,
		EncryptionKeyVersion: result.EncryptionKeyVersion,
	}
}

// UploadBatchResponse reports how an upload batch was handled.
type UploadBatchResponse struct {
	Enqueued   int `json:"enqueued"`
	Duplicates int `json:"duplicates"`
}

// MapUploadResultToResponse converts an upload result to a response.
func MapUploadResultToResponse(result *posUseCase.UploadResult) UploadBatchResponse {
	return UploadBatchResponse{
		Enqueued:   result.Accepted,
		Duplicates: result.Duplicates,
	}
}

// QueueStatusResponse summarizes the sync queue for one device.
type QueueStatusResponse struct {
	DeviceID     string     `json:"device_id"`
	Queued       int64      `json:"queued"`
	Processing   int64      `json:"processing"`
	Failed       int64      `json:"failed"`
	Completed    int64      `json:"completed"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// MapQueueStatusToResponse converts a queue status to a response.
func MapQueueStatusToResponse(deviceID string, status *posUseCase.QueueStatus) QueueStatusResponse {
	return QueueStatusResponse{
		DeviceID:     deviceID,
		Queued:       status.Queued,
		Processing:   status.Processing,
		Failed:       status.Failed,
		Completed:    status.Completed,
		LastSyncedAt: status.LastSyncedAt,
	}
}
