package app

import (
	"fmt"

	"github.com/allisson/possync/internal/jobs"
	"github.com/allisson/possync/internal/payment"
	posRepository "github.com/allisson/possync/internal/pos/repository"
	posUseCase "github.com/allisson/possync/internal/pos/usecase"
)

// PaymentProvider returns the payment provider used to replay offline
// transactions. Only the in-process stub is wired today; a real gateway
// client slots in behind the same interface.
func (c *Container) PaymentProvider() payment.Provider {
	c.paymentProviderInit.Do(func() {
		c.paymentProvider = payment.NewStubProvider()
	})
	return c.paymentProvider
}

// DeviceRepository returns the device repository based on the database driver.
func (c *Container) DeviceRepository() (posUseCase.DeviceRepository, error) {
	var err error
	c.deviceRepoInit.Do(func() {
		c.deviceRepo, err = c.initDeviceRepository()
		if err != nil {
			c.initErrors["deviceRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceRepo"]; exists {
		return nil, storedErr
	}
	return c.deviceRepo, nil
}

// DeviceKeyRepository returns the device key repository based on the database driver.
func (c *Container) DeviceKeyRepository() (posUseCase.DeviceKeyRepository, error) {
	var err error
	c.deviceKeyRepoInit.Do(func() {
		c.deviceKeyRepo, err = c.initDeviceKeyRepository()
		if err != nil {
			c.initErrors["deviceKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.deviceKeyRepo, nil
}

// QueueEntryRepository returns the queue entry repository based on the database driver.
func (c *Container) QueueEntryRepository() (posUseCase.QueueEntryRepository, error) {
	var err error
	c.queueEntryRepoInit.Do(func() {
		c.queueEntryRepo, err = c.initQueueEntryRepository()
		if err != nil {
			c.initErrors["queueEntryRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queueEntryRepo"]; exists {
		return nil, storedErr
	}
	return c.queueEntryRepo, nil
}

// OfflineTransactionRepository returns the offline transaction repository based
// on the database driver.
func (c *Container) OfflineTransactionRepository() (posUseCase.OfflineTransactionRepository, error) {
	var err error
	c.transactionRepoInit.Do(func() {
		c.transactionRepo, err = c.initOfflineTransactionRepository()
		if err != nil {
			c.initErrors["transactionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionRepo"]; exists {
		return nil, storedErr
	}
	return c.transactionRepo, nil
}

// ActivityLogRepository returns the activity log repository based on the database driver.
func (c *Container) ActivityLogRepository() (posUseCase.ActivityLogRepository, error) {
	var err error
	c.activityLogRepoInit.Do(func() {
		c.activityLogRepo, err = c.initActivityLogRepository()
		if err != nil {
			c.initErrors["activityLogRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["activityLogRepo"]; exists {
		return nil, storedErr
	}
	return c.activityLogRepo, nil
}

// DeviceUseCase returns the device use case wrapped with business metrics.
func (c *Container) DeviceUseCase() (posUseCase.DeviceUseCase, error) {
	var err error
	c.deviceUseCaseInit.Do(func() {
		c.deviceUseCase, err = c.initDeviceUseCase()
		if err != nil {
			c.initErrors["deviceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceUseCase"]; exists {
		return nil, storedErr
	}
	return c.deviceUseCase, nil
}

// SyncUseCase returns the sync use case wrapped with business metrics.
func (c *Container) SyncUseCase() (posUseCase.SyncUseCase, error) {
	var err error
	c.syncUseCaseInit.Do(func() {
		c.syncUseCase, err = c.initSyncUseCase()
		if err != nil {
			c.initErrors["syncUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncUseCase"]; exists {
		return nil, storedErr
	}
	return c.syncUseCase, nil
}

// initDeviceRepository creates the device repository instance.
func (c *Container) initDeviceRepository() (posUseCase.DeviceRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for device repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return posRepository.NewMySQLDeviceRepository(db), nil
	case "postgres":
		return posRepository.NewPostgreSQLDeviceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeviceKeyRepository creates the device key repository instance.
func (c *Container) initDeviceKeyRepository() (posUseCase.DeviceKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for device key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return posRepository.NewMySQLDeviceKeyRepository(db), nil
	case "postgres":
		return posRepository.NewPostgreSQLDeviceKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initQueueEntryRepository creates the queue entry repository instance.
func (c *Container) initQueueEntryRepository() (posUseCase.QueueEntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for queue entry repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return posRepository.NewMySQLQueueEntryRepository(db), nil
	case "postgres":
		return posRepository.NewPostgreSQLQueueEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOfflineTransactionRepository creates the offline transaction repository instance.
func (c *Container) initOfflineTransactionRepository() (posUseCase.OfflineTransactionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for offline transaction repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return posRepository.NewMySQLOfflineTransactionRepository(db), nil
	case "postgres":
		return posRepository.NewPostgreSQLOfflineTransactionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initActivityLogRepository creates the activity log repository instance.
func (c *Container) initActivityLogRepository() (posUseCase.ActivityLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for activity log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return posRepository.NewMySQLActivityLogRepository(db), nil
	case "postgres":
		return posRepository.NewPostgreSQLActivityLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeviceUseCase creates the device use case with all its dependencies.
func (c *Container) initDeviceUseCase() (posUseCase.DeviceUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for device use case: %w", err)
	}

	deviceRepo, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for device use case: %w", err)
	}

	deviceKeyRepo, err := c.DeviceKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device key repository for device use case: %w", err)
	}

	activityLogRepo, err := c.ActivityLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity log repository for device use case: %w", err)
	}

	keyService, err := c.DeviceKeyService()
	if err != nil {
		return nil, fmt.Errorf("failed to get device key service for device use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for device use case: %w", err)
	}

	useCase := posUseCase.NewDeviceUseCase(
		txManager,
		deviceRepo,
		deviceKeyRepo,
		activityLogRepo,
		keyService,
		c.config.PairingCodeExpiration,
		c.Logger(),
	)

	return posUseCase.NewDeviceUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initSyncUseCase creates the sync use case with all its dependencies.
func (c *Container) initSyncUseCase() (posUseCase.SyncUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for sync use case: %w", err)
	}

	deviceUseCase, err := c.DeviceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get device use case for sync use case: %w", err)
	}

	deviceRepo, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for sync use case: %w", err)
	}

	deviceKeyRepo, err := c.DeviceKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device key repository for sync use case: %w", err)
	}

	queueRepo, err := c.QueueEntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry repository for sync use case: %w", err)
	}

	transactionRepo, err := c.OfflineTransactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get offline transaction repository for sync use case: %w", err)
	}

	activityLogRepo, err := c.ActivityLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity log repository for sync use case: %w", err)
	}

	keyService, err := c.DeviceKeyService()
	if err != nil {
		return nil, fmt.Errorf("failed to get device key service for sync use case: %w", err)
	}

	jobMetrics, err := c.JobMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get job metrics for sync use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for sync use case: %w", err)
	}

	retryPolicy := jobs.NewRetryPolicy(
		c.config.SyncMaxAttempts,
		c.config.SyncRetryInitialDelay,
		c.config.SyncRetryMaxDelay,
		c.config.SyncRetryMultiplier,
	)

	jobConfig := jobs.NewConfigBuilder().
		RetryPolicy(jobs.PriorityCritical, retryPolicy).
		RetryPolicy(jobs.PriorityHigh, retryPolicy).
		RetryPolicy(jobs.PriorityDefault, retryPolicy).
		QueueCapacity(jobs.PriorityCritical, c.config.SyncQueueCriticalCapacity).
		QueueCapacity(jobs.PriorityHigh, c.config.SyncQueueHighCapacity).
		QueueCapacity(jobs.PriorityDefault, c.config.SyncQueueDefaultCapacity).
		Build()

	options := posUseCase.SyncOptions{
		JobConfig:         jobConfig,
		DispatchInterval:  c.config.SyncDispatchInterval,
		DispatchBatchSize: c.config.SyncDispatchBatchSize,
		Workers:           c.config.SyncWorkers,
	}

	useCase := posUseCase.NewSyncUseCase(
		txManager,
		deviceUseCase,
		deviceRepo,
		deviceKeyRepo,
		queueRepo,
		transactionRepo,
		activityLogRepo,
		keyService,
		c.PaymentProvider(),
		options,
		jobMetrics,
		c.Logger(),
	)

	return posUseCase.NewSyncUseCaseWithMetrics(useCase, businessMetrics), nil
}
