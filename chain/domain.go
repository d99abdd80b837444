// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain models an execution domain: its identity, its clock, the
// account nonces that drive contract address derivation and the registry of
// contracts deployed on it.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

var (
	// ErrAddressInUse is returned when a contract is deployed at an occupied address
	ErrAddressInUse = errors.New("address already in use")

	// ErrUnknownContract is returned when no contract lives at an address
	ErrUnknownContract = errors.New("unknown contract")
)

// Clock returns the current block time.
type Clock func() time.Time

// Domain is a single execution domain (L1 or L2).
type Domain struct {
	id      ids.ID
	chainID uint64
	name    string

	mu        sync.RWMutex
	clock     Clock
	nonces    map[common.Address]uint64
	contracts map[common.Address]any
}

// NewDomain creates a new execution domain. A nil clock uses wall time.
func NewDomain(name string, id ids.ID, chainID uint64, clock Clock) *Domain {
	if clock == nil {
		clock = time.Now
	}
	return &Domain{
		id:        id,
		chainID:   chainID,
		name:      name,
		clock:     clock,
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]any),
	}
}

// ID returns the domain id used for message routing
func (d *Domain) ID() ids.ID { return d.id }

// ChainID returns the EVM chain id bound into signed authorizations
func (d *Domain) ChainID() uint64 { return d.chainID }

// Name returns the human readable domain name
func (d *Domain) Name() string { return d.name }

// Now returns the current block time in unix seconds.
func (d *Domain) Now() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(d.clock().Unix())
}

// SetClock replaces the domain clock
func (d *Domain) SetClock(clock Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// Nonce returns the account nonce of addr.
func (d *Domain) Nonce(addr common.Address) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nonces[addr]
}

// PeekAddress returns the address a CREATE from deployer at nonce would
// produce, without consuming anything.
func (d *Domain) PeekAddress(deployer common.Address, nonce uint64) common.Address {
	return common.CreateAddress(deployer, nonce)
}

// Create2Address returns the CREATE2 address of initCodeHash deployed by
// deployer under salt.
func (d *Domain) Create2Address(deployer common.Address, salt, initCodeHash common.Hash) common.Address {
	return common.CreateAddress2(deployer, salt, initCodeHash.Bytes())
}

// Deploy runs construct at the next CREATE address of deployer and registers
// the result there. The deployer's nonce is consumed even if construct fails.
func (d *Domain) Deploy(deployer common.Address, construct func(addr common.Address) (any, error)) (common.Address, error) {
	d.mu.Lock()
	nonce := d.nonces[deployer]
	d.nonces[deployer] = nonce + 1
	d.mu.Unlock()

	addr := common.CreateAddress(deployer, nonce)
	contract, err := construct(addr)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to construct contract at %s: %w", addr, err)
	}
	if err := d.Register(addr, contract); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Deployed wraps a contract for Deploy.
func Deployed(contract any) func(common.Address) (any, error) {
	return func(common.Address) (any, error) { return contract, nil }
}

// Register places contract at addr. Used for CREATE2 deployments and for
// contracts that exist from genesis.
func (d *Domain) Register(addr common.Address, contract any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.register(addr, contract)
}

// register must be called with the lock held. New contract accounts start at
// nonce 1.
func (d *Domain) register(addr common.Address, contract any) error {
	if _, ok := d.contracts[addr]; ok {
		return fmt.Errorf("%w: %s on %s", ErrAddressInUse, addr, d.name)
	}
	d.contracts[addr] = contract
	if d.nonces[addr] == 0 {
		d.nonces[addr] = 1
	}
	return nil
}

// Unregister removes the contract at addr, undoing a Deploy or Register
// whose enclosing call failed.
func (d *Domain) Unregister(addr common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.contracts, addr)
	delete(d.nonces, addr)
}

// Contract returns the contract deployed at addr.
func (d *Domain) Contract(addr common.Address) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownContract, addr, d.name)
	}
	return c, nil
}

// Lookup returns the contract at addr as T.
func Lookup[T any](d *Domain, addr common.Address) (T, error) {
	var zero T
	c, err := d.Contract(addr)
	if err != nil {
		return zero, err
	}
	t, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has type %T", ErrUnknownContract, addr, c)
	}
	return t, nil
}
