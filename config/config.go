// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the configuration of the usdcbridge command from
// flags, environment variables and an optional JSON config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/log"
)

const (
	defaultLogLevel          = "info"
	defaultMetricsPort       = uint16(9090)
	defaultL1ChainID         = uint64(1)
	defaultL2ChainID         = uint64(10)
	defaultMinGasLimit       = uint32(200_000)
	defaultMinGasLimitDeploy = uint32(3_000_000)
	defaultNATSTimeout       = 5 * time.Second
	defaultRetryTimeout      = 10 * time.Second
	defaultPollInterval      = time.Second
	defaultSignerCacheSize   = 1024
)

var (
	ErrInvalidChainID = errors.New("invalid chain id")
	ErrInvalidGas     = errors.New("invalid gas limit")
	ErrInvalidTiming  = errors.New("invalid relayer timing")
	ErrInvalidCache   = errors.New("invalid cache size")
)

// Config is the configuration of a local bridge simulation.
type Config struct {
	LogLevel string `mapstructure:"log-level" json:"log-level"`
	// MetricsPort is the port the prometheus endpoint listens on. Zero
	// disables it.
	MetricsPort       uint16        `mapstructure:"metrics-port" json:"metrics-port"`
	L1ChainID         uint64        `mapstructure:"l1-chain-id" json:"l1-chain-id"`
	L2ChainID         uint64        `mapstructure:"l2-chain-id" json:"l2-chain-id"`
	MinGasLimit       uint32        `mapstructure:"min-gas-limit" json:"min-gas-limit"`
	MinGasLimitDeploy uint32        `mapstructure:"min-gas-limit-deploy" json:"min-gas-limit-deploy"`
	NATSURL           string        `mapstructure:"nats-url" json:"nats-url"`
	NATSTimeout       time.Duration `mapstructure:"nats-timeout" json:"nats-timeout"`
	RetryTimeout      time.Duration `mapstructure:"relayer-retry-timeout" json:"relayer-retry-timeout"`
	PollInterval      time.Duration `mapstructure:"relayer-poll-interval" json:"relayer-poll-interval"`
	SignerCacheSize   int           `mapstructure:"signer-cache-size" json:"signer-cache-size"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := log.ToLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	switch {
	case c.L1ChainID == 0 || c.L2ChainID == 0:
		return fmt.Errorf("%w: chain ids must be non-zero", ErrInvalidChainID)
	case c.L1ChainID == c.L2ChainID:
		return fmt.Errorf("%w: L1 and L2 share chain id %d", ErrInvalidChainID, c.L1ChainID)
	case c.MinGasLimit == 0:
		return fmt.Errorf("%w: %s", ErrInvalidGas, MinGasLimitKey)
	case c.MinGasLimitDeploy < c.MinGasLimit:
		return fmt.Errorf("%w: %s below %s", ErrInvalidGas, MinGasLimitDeployKey, MinGasLimitKey)
	case c.RetryTimeout <= 0 || c.PollInterval <= 0:
		return fmt.Errorf("%w: durations must be positive", ErrInvalidTiming)
	case c.NATSURL != "" && c.NATSTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidTiming, NATSTimeoutKey)
	case c.SignerCacheSize <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidCache, SignerCacheSizeKey)
	}
	return nil
}
