package app

import (
	"fmt"

	auditHTTP "github.com/allisson/lockbox/internal/audit/http"
	auditRepository "github.com/allisson/lockbox/internal/audit/repository"
	auditUseCase "github.com/allisson/lockbox/internal/audit/usecase"
)

// EventRepository returns the audit event repository based on database driver.
func (c *Container) EventRepository() (auditUseCase.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepository, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepository"]; exists {
		return nil, storedErr
	}
	return c.eventRepository, nil
}

// EventUseCase returns the audit event use case.
func (c *Container) EventUseCase() (auditUseCase.EventUseCase, error) {
	var err error
	c.eventUseCaseInit.Do(func() {
		c.eventUseCase, err = c.initEventUseCase()
		if err != nil {
			c.initErrors["eventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// EventHandler returns the HTTP handler for audit event queries.
func (c *Container) EventHandler() (*auditHTTP.EventHandler, error) {
	var err error
	c.eventHandlerInit.Do(func() {
		c.eventHandler, err = c.initEventHandler()
		if err != nil {
			c.initErrors["eventHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventHandler"]; exists {
		return nil, storedErr
	}
	return c.eventHandler, nil
}

// initEventRepository creates the audit event repository based on the database driver.
func (c *Container) initEventRepository() (auditUseCase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLEventRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventUseCase creates the audit event use case with all its dependencies.
func (c *Container) initEventUseCase() (auditUseCase.EventUseCase, error) {
	eventRepository, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event use case: %w", err)
	}

	return auditUseCase.NewEventUseCase(eventRepository), nil
}

// initEventHandler creates the audit event HTTP handler with all its dependencies.
func (c *Container) initEventHandler() (*auditHTTP.EventHandler, error) {
	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for event handler: %w", err)
	}

	return auditHTTP.NewEventHandler(eventUseCase, c.Logger()), nil
}
