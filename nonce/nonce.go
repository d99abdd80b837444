// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package nonce tracks per-user authorization counters. A counter only moves
// forward, by one, each time an authorization signed over its current value
// is consumed.
package nonce

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// Registry holds the nonce of every user of one adapter.
type Registry struct {
	mu     sync.RWMutex
	nonces map[common.Address]uint64
	locks  *Locker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		nonces: make(map[common.Address]uint64),
		locks:  NewLocker(),
	}
}

// Current returns the next nonce user must sign over.
func (r *Registry) Current(user common.Address) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nonces[user]
}

// Consume runs the acquire-and-check sequence for user as one step. check
// receives the current nonce and must return nil for the authorization to be
// accepted; the nonce is then incremented and body runs. If body fails the
// increment is undone. Calls for the same user are serialized.
func (r *Registry) Consume(user common.Address, check func(current uint64) error, body func() error) error {
	unlock := r.locks.Lock(user)
	defer unlock()

	current := r.Current(user)
	if err := check(current); err != nil {
		return err
	}

	r.set(user, current+1)
	if err := body(); err != nil {
		r.set(user, current)
		return err
	}
	return nil
}

func (r *Registry) set(user common.Address, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonces[user] = n
}

// Locker hands out one mutex per address.
type Locker struct {
	mu    sync.Mutex
	locks map[common.Address]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates a new per-address locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[common.Address]*entry)}
}

// Lock blocks until the caller holds addr's mutex and returns the function
// that releases it. Entries are dropped once nobody holds or waits on them.
func (l *Locker) Lock(addr common.Address) func() {
	l.mu.Lock()
	e, ok := l.locks[addr]
	if !ok {
		e = &entry{}
		l.locks[addr] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, addr)
		}
		l.mu.Unlock()
	}
}
