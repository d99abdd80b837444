// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		err   error
	}{
		{level: "info"},
		{level: "DEBUG"},
		{level: "warn"},
		{level: "off"},
		{level: "loud", err: log.ErrUnknownLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := newLogger(tt.level)
			require.ErrorIs(t, err, tt.err)
			if tt.err == nil {
				require.NotNil(t, l)
			}
		})
	}
}
