// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"

	posDomain "github.com/allisson/possync/internal/pos/domain"
	posUseCase "github.com/allisson/possync/internal/pos/usecase"
	customValidation "github.com/allisson/possync/internal/validation"
)

// InitiatePairingRequest contains the parameters for registering a device.
type InitiatePairingRequest struct {
	DeviceIdentifier string `json:"device_identifier"`
	DeviceName       string `json:"device_name"`
	LocationName     string `json:"location_name"`
	HardwareModel    string `json:"hardware_model"`
}

// Validate checks if the initiate pairing request is valid.
func (r *InitiatePairingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DeviceIdentifier, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.DeviceName, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.LocationName, validation.Length(0, 255)),
		validation.Field(&r.HardwareModel, validation.Length(0, 255)),
	)
}

// ToInput converts the request to a use case input.
func (r *InitiatePairingRequest) ToInput() posUseCase.InitiatePairingInput {
	return posUseCase.InitiatePairingInput{
		DeviceIdentifier: r.DeviceIdentifier,
		DeviceName:       r.DeviceName,
		LocationName:     r.LocationName,
		HardwareModel:    r.HardwareModel,
	}
}

// CompletePairingRequest contains the pairing code entered on the device.
type CompletePairingRequest struct {
	PairingCode string `json:"pairing_code"`
}

// Validate checks if the complete pairing request is valid.
func (r *CompletePairingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PairingCode,
			validation.Required,
			validation.Length(posDomain.PairingCodeLength, posDomain.PairingCodeLength),
		),
	)
}

// HeartbeatRequest carries the optional firmware version reported by a device.
type HeartbeatRequest struct {
	FirmwareVersion string `json:"firmware_version"`
}

// Validate checks if the heartbeat request is valid.
func (r *HeartbeatRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FirmwareVersion, validation.Length(0, 64)),
	)
}

// UploadTransactionRequest is one encrypted transaction in an upload batch.
// EncryptedPayload and EncryptionIV are base64-encoded.
type UploadTransactionRequest struct {
	LocalTransactionID   string    `json:"local_transaction_id"`
	EncryptedPayload     string    `json:"encrypted_payload"`
	EncryptionIV         string    `json:"encryption_iv"`
	EncryptionKeyVersion int       `json:"encryption_key_version"`
	TransactionAt        time.Time `json:"transaction_at"`
	Amount               int64     `json:"amount"`
	Currency             string    `json:"currency"`
	Priority             string    `json:"priority"`
}

// Validate checks if the upload transaction is valid.
func (r *UploadTransactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.LocalTransactionID, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.EncryptedPayload, validation.Required, customValidation.Base64),
		validation.Field(&r.EncryptionIV, validation.Required, customValidation.Base64),
		validation.Field(&r.EncryptionKeyVersion, validation.Required, validation.Min(1)),
		validation.Field(&r.TransactionAt, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&r.Priority, validation.In("critical", "high", "default")),
	)
}

// UploadBatchRequest contains a batch of encrypted offline transactions.
type UploadBatchRequest struct {
	DeviceID        string                     `json:"device_id"`
	FirmwareVersion string                     `json:"firmware_version"`
	Transactions    []UploadTransactionRequest `json:"transactions"`
}

// Validate checks the batch envelope and every transaction in it.
func (r *UploadBatchRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DeviceID, validation.Required),
		validation.Field(&r.FirmwareVersion, validation.Length(0, 64)),
		validation.Field(&r.Transactions, validation.Required, validation.Length(1, 500)),
	)
	if err != nil {
		return err
	}

	for i := range r.Transactions {
		if err := r.Transactions[i].Validate(); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	return nil
}

// ToItems decodes the base64 fields and converts the batch to use case items.
func (r *UploadBatchRequest) ToItems() ([]posUseCase.UploadItem, error) {
	items := make([]posUseCase.UploadItem, 0, len(r.Transactions))
	for i, tx := range r.Transactions {
		payload, err := base64.StdEncoding.DecodeString(tx.EncryptedPayload)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: invalid base64 encrypted_payload: %w", i, err)
		}
		iv, err := base64.StdEncoding.DecodeString(tx.EncryptionIV)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: invalid base64 encryption_iv: %w", i, err)
		}

		items = append(items, posUseCase.UploadItem{
			LocalTransactionID:   tx.LocalTransactionID,
			EncryptedPayload:     payload,
			EncryptionIV:         iv,
			EncryptionKeyVersion: tx.EncryptionKeyVersion,
			TransactionAt:        tx.TransactionAt,
			Amount:               tx.Amount,
			Currency:             tx.Currency,
			Priority:             posDomain.ParseSyncPriority(tx.Priority),
		})
	}
	return items, nil
}
