// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func buildConfig(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := BuildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := BuildViper(fs)
	if err != nil {
		return Config{}, err
	}
	return NewConfig(v)
}

func TestDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := buildConfig(t)
	require.NoError(err)
	require.Equal(Config{
		LogLevel:          defaultLogLevel,
		MetricsPort:       defaultMetricsPort,
		L1ChainID:         defaultL1ChainID,
		L2ChainID:         defaultL2ChainID,
		MinGasLimit:       defaultMinGasLimit,
		MinGasLimitDeploy: defaultMinGasLimitDeploy,
		NATSTimeout:       defaultNATSTimeout,
		RetryTimeout:      defaultRetryTimeout,
		PollInterval:      defaultPollInterval,
		SignerCacheSize:   defaultSignerCacheSize,
	}, cfg)
}

func TestPrecedence(t *testing.T) {
	require := require.New(t)

	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(file, []byte(`{
		"log-level": "debug",
		"l1-chain-id": 5,
		"l2-chain-id": 6,
		"relayer-poll-interval": "250ms"
	}`), 0o600))
	t.Setenv("L2_CHAIN_ID", "8")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := buildConfig(t, "--"+ConfigFileKey, file, "--"+L1ChainIDKey, "7")
	require.NoError(err)

	require.Equal("debug", cfg.LogLevel)               // file
	require.Equal(uint64(7), cfg.L1ChainID)            // flag over file
	require.Equal(uint64(8), cfg.L2ChainID)            // env over file
	require.Equal(250*time.Millisecond, cfg.PollInterval)
	require.Equal("nats://127.0.0.1:4222", cfg.NATSURL)
	require.Equal(defaultRetryTimeout, cfg.RetryTimeout)
}

func TestConfigFileFromEnv(t *testing.T) {
	require := require.New(t)

	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(file, []byte(`{"signer-cache-size": 16}`), 0o600))
	t.Setenv(ConfigFileEnvKey, file)

	cfg, err := buildConfig(t)
	require.NoError(err)
	require.Equal(16, cfg.SignerCacheSize)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := buildConfig(t, "--"+ConfigFileKey, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:   "zero chain id",
			modify: func(c *Config) { c.L2ChainID = 0 },
			err:    ErrInvalidChainID,
		},
		{
			name:   "shared chain id",
			modify: func(c *Config) { c.L2ChainID = c.L1ChainID },
			err:    ErrInvalidChainID,
		},
		{
			name:   "zero gas",
			modify: func(c *Config) { c.MinGasLimit = 0 },
			err:    ErrInvalidGas,
		},
		{
			name:   "deploy gas below message gas",
			modify: func(c *Config) { c.MinGasLimitDeploy = c.MinGasLimit - 1 },
			err:    ErrInvalidGas,
		},
		{
			name:   "zero poll interval",
			modify: func(c *Config) { c.PollInterval = 0 },
			err:    ErrInvalidTiming,
		},
		{
			name: "nats without timeout",
			modify: func(c *Config) {
				c.NATSURL = "nats://127.0.0.1:4222"
				c.NATSTimeout = 0
			},
			err: ErrInvalidTiming,
		},
		{
			name:   "empty signer cache",
			modify: func(c *Config) { c.SignerCacheSize = 0 },
			err:    ErrInvalidCache,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildConfig(t)
			require.NoError(t, err)
			tt.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.err)
		})
	}

	t.Run("log level", func(t *testing.T) {
		cfg, err := buildConfig(t)
		require.NoError(t, err)
		cfg.LogLevel = "loud"
		require.ErrorIs(t, cfg.Validate(), log.ErrUnknownLevel)
	})
}
