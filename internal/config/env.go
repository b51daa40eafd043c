// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/fedlog/internal/summary"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// SummaryConfig holds the summary persistence settings.
type SummaryConfig struct {
	// RootDir enables persistence when not empty.
	RootDir string `env:"SUMMARY_ROOT_DIR"`
	Backend string `env:"SUMMARY_BACKEND" envDefault:"tfevents"`
}

// LoadSummaryConfig reads SummaryConfig from the environment.
func LoadSummaryConfig() (*SummaryConfig, error) {
	var cfg SummaryConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if cfg.Backend == "" {
		cfg.Backend = summary.DefaultBackend
	}
	return &cfg, nil
}
