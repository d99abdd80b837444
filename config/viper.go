// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// BuildFlagSet returns the flags every key can be set with.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("usdcbridge", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Path to a JSON config file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level (trace, debug, info, warn, error, crit)")
	fs.Uint16(MetricsPortKey, defaultMetricsPort, "Port of the prometheus endpoint, 0 disables it")
	fs.Uint64(L1ChainIDKey, defaultL1ChainID, "EVM chain id of the L1 domain")
	fs.Uint64(L2ChainIDKey, defaultL2ChainID, "EVM chain id of the L2 domain")
	fs.Uint32(MinGasLimitKey, defaultMinGasLimit, "Minimum gas limit of bridge messages")
	fs.Uint32(MinGasLimitDeployKey, defaultMinGasLimitDeploy, "Minimum gas limit of the L2 deployment message")
	fs.String(NATSURLKey, "", "NATS server bridge events are published to, empty disables publishing")
	fs.Duration(NATSTimeoutKey, defaultNATSTimeout, "Timeout of the NATS connection attempt")
	fs.Duration(RetryTimeoutKey, defaultRetryTimeout, "How long the relayer retries an unavailable destination")
	fs.Duration(PollIntervalKey, defaultPollInterval, "How often the relayer drains the outboxes")
	fs.Int(SignerCacheSizeKey, defaultSignerCacheSize, "Number of recovered authorization signers cached")
	return fs
}

// BuildViper builds the viper instance. Every key may be provided by flag,
// environment variable or config file. The config file itself is set by the
// config-file flag or the CONFIG_FILE environment variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	filename := v.GetString(ConfigFileKey)
	if filename == "" {
		return v, nil
	}
	v.SetConfigFile(os.ExpandEnv(filename))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return v, nil
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
	v.SetDefault(L1ChainIDKey, defaultL1ChainID)
	v.SetDefault(L2ChainIDKey, defaultL2ChainID)
	v.SetDefault(MinGasLimitKey, defaultMinGasLimit)
	v.SetDefault(MinGasLimitDeployKey, defaultMinGasLimitDeploy)
	v.SetDefault(NATSTimeoutKey, defaultNATSTimeout)
	v.SetDefault(RetryTimeoutKey, defaultRetryTimeout)
	v.SetDefault(PollIntervalKey, defaultPollInterval)
	v.SetDefault(SignerCacheSizeKey, defaultSignerCacheSize)
}

// BuildConfig constructs the config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment variables
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}
