package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/possync/internal/errors"
	"github.com/allisson/possync/internal/httputil"
	"github.com/allisson/possync/internal/pos/http/dto"
	posUseCase "github.com/allisson/possync/internal/pos/usecase"
	customValidation "github.com/allisson/possync/internal/validation"
)

// DeviceHandler handles HTTP requests for the device pairing lifecycle.
type DeviceHandler struct {
	deviceUseCase posUseCase.DeviceUseCase
	logger        *slog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(deviceUseCase posUseCase.DeviceUseCase, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceUseCase: deviceUseCase,
		logger:        logger,
	}
}

// InitiatePairingHandler registers a device and returns a short-lived pairing code.
//
// Returns:
//   - 201 Created: Pairing initiated, response carries the code
//   - 400 Bad Request: Malformed JSON
//   - 409 Conflict: Device identifier already active for this tenant
//   - 422 Unprocessable Entity: Validation failed
func (h *DeviceHandler) InitiatePairingHandler(c *gin.Context) {
	var req dto.InitiatePairingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	device, err := h.deviceUseCase.InitiatePairing(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapDeviceToPairingInitiatedResponse(device))
}

// CompletePairingHandler exchanges a pairing code for the device encryption key.
// The raw key appears in this response exactly once and is never retrievable again.
//
// Returns:
//   - 200 OK: Device activated, response carries the base64 key
//   - 400 Bad Request: Malformed JSON
//   - 422 Unprocessable Entity: Validation failed or code invalid/expired
func (h *DeviceHandler) CompletePairingHandler(c *gin.Context) {
	var req dto.CompletePairingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.deviceUseCase.CompletePairing(c.Request.Context(), req.PairingCode)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPairingResultToResponse(result))
}

// HeartbeatHandler records a liveness ping from a device.
//
// Returns:
//   - 204 No Content: Heartbeat recorded
//   - 404 Not Found: Device does not exist
func (h *DeviceHandler) HeartbeatHandler(c *gin.Context) {
	deviceID, ok := parseDeviceID(c, "id", h.logger)
	if !ok {
		return
	}

	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.deviceUseCase.Heartbeat(c.Request.Context(), deviceID, req.FirmwareVersion); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// SuspendHandler suspends an active device.
func (h *DeviceHandler) SuspendHandler(c *gin.Context) {
	h.transition(c, h.deviceUseCase.Suspend)
}

// ReactivateHandler reactivates a suspended device.
func (h *DeviceHandler) ReactivateHandler(c *gin.Context) {
	h.transition(c, h.deviceUseCase.Reactivate)
}

// RetireHandler permanently retires a device.
func (h *DeviceHandler) RetireHandler(c *gin.Context) {
	h.transition(c, h.deviceUseCase.Retire)
}

// ListHandler returns the tenant's active devices with pagination.
//
// Returns:
//   - 200 OK: Device list
//   - 400 Bad Request: Invalid pagination parameters
func (h *DeviceHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	devices, err := h.deviceUseCase.ListActiveDevices(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDevicesToListResponse(devices))
}

func (h *DeviceHandler) transition(c *gin.Context, op func(ctx context.Context, deviceID uuid.UUID) error) {
	deviceID, ok := parseDeviceID(c, "id", h.logger)
	if !ok {
		return
	}

	if err := op(c.Request.Context(), deviceID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// SyncHandler handles HTTP requests for offline transaction upload and queue status.
type SyncHandler struct {
	syncUseCase posUseCase.SyncUseCase
	logger      *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUseCase posUseCase.SyncUseCase, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		syncUseCase: syncUseCase,
		logger:      logger,
	}
}

// UploadHandler accepts a batch of encrypted offline transactions from a device.
//
// Returns:
//   - 200 OK: Batch accepted, response reports enqueued and duplicate counts
//   - 400 Bad Request: Malformed JSON, invalid device id, or bad base64
//   - 403 Forbidden: Device belongs to another tenant
//   - 409 Conflict: Device is not active
//   - 422 Unprocessable Entity: Validation failed
func (h *SyncHandler) UploadHandler(c *gin.Context) {
	var req dto.UploadBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		httputil.HandleBadRequestGin(c, apperrors.Wrap(err, "invalid device_id"), h.logger)
		return
	}

	items, err := req.ToItems()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	result, err := h.syncUseCase.UploadBatch(c.Request.Context(), deviceID, req.FirmwareVersion, items)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUploadResultToResponse(result))
}

// StatusHandler reports per-status sync queue counts for a device.
//
// Returns:
//   - 200 OK: Queue status
//   - 403 Forbidden: Device belongs to another tenant
//   - 404 Not Found: Device does not exist
func (h *SyncHandler) StatusHandler(c *gin.Context) {
	deviceID, ok := parseDeviceID(c, "deviceID", h.logger)
	if !ok {
		return
	}

	status, err := h.syncUseCase.Status(c.Request.Context(), deviceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapQueueStatusToResponse(deviceID.String(), status))
}

func parseDeviceID(c *gin.Context, param string, logger *slog.Logger) (uuid.UUID, bool) {
	deviceID, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.HandleBadRequestGin(c, apperrors.Wrap(err, "invalid device id"), logger)
		return uuid.Nil, false
	}
	return deviceID, true
}
