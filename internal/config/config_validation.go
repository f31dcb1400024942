// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateClient checks the groups the sync client depends on. Each group is
// reported with its own sentinel error.
func (cfg *StructuredConfig) validateClient() error {
	var errs []error

	if err := validate.Struct(cfg.App); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidAppConfigs, err))
	} else if cfg.App.UserID == 0 && len(cfg.App.Groups) == 0 {
		errs = append(errs, fmt.Errorf("%w: no libraries configured", ErrInvalidAppConfigs))
	}
	if err := validate.Struct(cfg.Adapter); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidAdapterConfigs, err))
	}
	if err := validate.Struct(cfg.Storage); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidStorageConfigs, err))
	}
	if err := validate.Struct(cfg.Workers); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidWorkerConfigs, err))
	}
	if err := validate.Struct(cfg.Sync); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err))
	}
	if err := validate.Struct(cfg.Metrics); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidMetricsConfigs, err))
	}

	return errors.Join(errs...)
}

func (cfg *StructuredConfig) validateAPIServer() error {
	if err := validate.Struct(cfg.APIServer); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAPIServerConfigs, err)
	}
	return nil
}
