// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package checkpoint

import (
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestStageCommittedNonce(t *testing.T) {
	tests := []struct {
		name   string
		staged []uint64
		next   uint64
	}{
		{"in order", []uint64{0, 1, 2}, 3},
		{"gap", []uint64{0, 2, 3}, 1},
		{"out of order", []uint64{2, 1, 0, 4}, 3},
		{"duplicates", []uint64{0, 0, 1, 1, 1, 2}, 3},
		{"gap closes late", []uint64{3, 2, 1, 5, 0}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := NewCheckpointManager(log.NewNoOpLogger(), NewMemoryStore(), "l1->l2")
			require.NoError(t, err)
			for _, n := range tt.staged {
				cm.StageCommittedNonce(n)
			}
			require.Equal(t, tt.next, cm.Next())
		})
	}
}

func TestFlushAndResume(t *testing.T) {
	require := require.New(t)

	store := NewMemoryStore()
	cm, err := NewCheckpointManager(log.NewNoOpLogger(), store, "l2->l1")
	require.NoError(err)

	// nothing to write yet
	require.NoError(cm.Flush())
	_, ok, err := store.Get("l2->l1")
	require.NoError(err)
	require.False(ok)

	cm.StageCommittedNonce(0)
	cm.StageCommittedNonce(1)
	require.NoError(cm.Flush())
	next, ok, err := store.Get("l2->l1")
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(2), next)

	resumed, err := NewCheckpointManager(log.NewNoOpLogger(), store, "l2->l1")
	require.NoError(err)
	require.Equal(uint64(2), resumed.Next())
	resumed.StageCommittedNonce(1)
	require.Equal(uint64(2), resumed.Next())
}
