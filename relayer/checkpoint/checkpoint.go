// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package checkpoint

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/luxfi/log"
)

// Store persists the checkpoint of each channel.
type Store interface {
	Get(channel string) (uint64, bool, error)
	Put(channel string, next uint64) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]uint64)}
}

func (s *MemoryStore) Get(channel string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[channel]
	return v, ok, nil
}

func (s *MemoryStore) Put(channel string, next uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[channel] = next
	return nil
}

//
// CheckpointManager tracks, for one channel, the number of envelopes that
// have been processed contiguously from nonce 0. Envelopes may be processed
// out of order; a nonce is only committed once every lower nonce is.
//

type CheckpointManager struct {
	logger         log.Logger
	store          Store
	channel        string
	next           uint64
	lock           sync.RWMutex
	pendingCommits *uint64Heap
	// set when next moves and cleared once written
	dirty bool
}

func NewCheckpointManager(logger log.Logger, store Store, channel string) (*CheckpointManager, error) {
	h := &uint64Heap{}
	heap.Init(h)

	next, _, err := store.Get(channel)
	if err != nil {
		logger.Error("Failed to get checkpoint",
			log.String("channel", channel),
			log.Err(err),
		)
		return nil, fmt.Errorf("failed to get the checkpoint of %s: %w", channel, err)
	}
	logger.Info("Creating checkpoint manager",
		log.String("channel", channel),
		log.Uint64("next", next),
	)
	return &CheckpointManager{
		logger:         logger,
		store:          store,
		channel:        channel,
		next:           next,
		pendingCommits: h,
	}, nil
}

// Next returns the lowest nonce not yet committed
func (cm *CheckpointManager) Next() uint64 {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return cm.next
}

// Flush writes the checkpoint if it moved since the last write.
func (cm *CheckpointManager) Flush() error {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if !cm.dirty {
		return nil
	}

	if err := cm.store.Put(cm.channel, cm.next); err != nil {
		cm.logger.Error("Failed to write checkpoint",
			log.String("channel", cm.channel),
			log.Err(err),
		)
		return err
	}
	cm.logger.Debug("Wrote checkpoint",
		log.String("channel", cm.channel),
		log.Uint64("next", cm.next),
	)
	cm.dirty = false
	return nil
}

// StageCommittedNonce marks nonce as processed. Nonces are committed in
// sequence, so a nonce above the next expected one is held in memory until
// the gap closes.
func (cm *CheckpointManager) StageCommittedNonce(nonce uint64) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if nonce < cm.next {
		cm.logger.Debug("Nonce already committed, skipping",
			log.String("channel", cm.channel),
			log.Uint64("nonce", nonce),
			log.Uint64("next", cm.next),
		)
		return
	}

	heap.Push(cm.pendingCommits, nonce)
	for cm.pendingCommits.Len() > 0 && cm.pendingCommits.Peek() <= cm.next {
		// duplicates of an already committed nonce are dropped here
		if n := heap.Pop(cm.pendingCommits).(uint64); n == cm.next {
			cm.next++
			cm.dirty = true
		}
	}
}

type uint64Heap []uint64

func (h uint64Heap) Len() int           { return len(h) }
func (h uint64Heap) Less(i, j int) bool { return h[i] < h[j] }
func (h uint64Heap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *uint64Heap) Push(x any)        { *h = append(*h, x.(uint64)) }

func (h *uint64Heap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Peek returns the smallest element; the heap must not be empty.
func (h uint64Heap) Peek() uint64 { return h[0] }
