package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/possync/internal/crypto/domain"
	cryptoService "github.com/allisson/possync/internal/crypto/service"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// MasterKey returns the master key, unwrapping it through the configured KMS
// when a key URI is set and reading it from the environment otherwise.
func (c *Container) MasterKey(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	var err error
	c.masterKeyInit.Do(func() {
		c.masterKey, err = cryptoService.UnwrapMasterKey(ctx, c.KMSService(), c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["masterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// DeviceKeyService returns the device key service used to generate, wrap, and
// unwrap per-device encryption keys.
func (c *Container) DeviceKeyService() (cryptoService.DeviceKeyService, error) {
	var err error
	c.deviceKeyInit.Do(func() {
		c.deviceKeyService, err = c.initDeviceKeyService()
		if err != nil {
			c.initErrors["deviceKeyService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceKeyService"]; exists {
		return nil, storedErr
	}
	return c.deviceKeyService, nil
}

// initDeviceKeyService creates the device key service backed by the master key.
func (c *Container) initDeviceKeyService() (cryptoService.DeviceKeyService, error) {
	masterKey, err := c.MasterKey(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load master key for device key service: %w", err)
	}

	service, err := cryptoService.NewDeviceKeyService(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create device key service: %w", err)
	}
	return service, nil
}
