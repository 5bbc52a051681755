package config

import (
	"errors"
	"fmt"
)

// ValidateCore checks the settings every service needs before it can start.
func (c *Config) ValidateCore() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWT.Secret == "" || c.JWT.Secret == "change-this-secret" {
		errs = append(errs, errors.New("JWT_SECRET must be set to a non-default value"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
