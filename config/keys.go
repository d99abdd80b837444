// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"

	// Environment variable keys
	ConfigFileEnvKey = "CONFIG_FILE"

	// Top-level configuration keys
	LogLevelKey          = "log-level"
	MetricsPortKey       = "metrics-port"
	L1ChainIDKey         = "l1-chain-id"
	L2ChainIDKey         = "l2-chain-id"
	MinGasLimitKey       = "min-gas-limit"
	MinGasLimitDeployKey = "min-gas-limit-deploy"
	NATSURLKey           = "nats-url"
	NATSTimeoutKey       = "nats-timeout"
	RetryTimeoutKey      = "relayer-retry-timeout"
	PollIntervalKey      = "relayer-poll-interval"
	SignerCacheSizeKey   = "signer-cache-size"
)
