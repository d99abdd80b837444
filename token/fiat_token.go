// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"
)

var _ Token = (*FiatToken)(nil)

// FiatToken is an in-memory fiat-backed token with minters carrying a mint
// allowance, an owner who also manages minters and the blacklist, and
// versioned initialization.
type FiatToken struct {
	mu sync.RWMutex

	address  common.Address
	name     string
	symbol   string
	currency string
	decimals uint8
	version  uint8

	owner       common.Address
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	minters     map[common.Address]*uint256.Int
	blacklisted set.Set[common.Address]
}

// NewFiatToken creates an uninitialized token living at address.
func NewFiatToken(address common.Address) *FiatToken {
	return &FiatToken{
		address:     address,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		minters:     make(map[common.Address]*uint256.Int),
		blacklisted: set.NewSet[common.Address](0),
	}
}

// Initialize sets the token metadata and owner. It may only run once.
func (t *FiatToken) Initialize(name, symbol, currency string, decimals uint8, owner common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.version != 0 {
		return fmt.Errorf("%w: already initialized", ErrInvalidInit)
	}
	if owner == (common.Address{}) {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	t.name = name
	t.symbol = symbol
	t.currency = currency
	t.decimals = decimals
	t.owner = owner
	t.version = 1
	return nil
}

// Apply executes one encoded initialization transaction. Versions must be
// applied in order.
func (t *FiatToken) Apply(b []byte) error {
	tx, err := ParseInitTx(b)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.version == 0 {
		return fmt.Errorf("%w: token not initialized", ErrInvalidInit)
	}
	if tx.Version != t.version+1 {
		return fmt.Errorf("%w: expected version %d, got %d", ErrInvalidInit, t.version+1, tx.Version)
	}
	if tx.Name != "" {
		t.name = tx.Name
	}
	if tx.Symbol != "" {
		t.symbol = tx.Symbol
	}
	t.version = tx.Version
	return nil
}

func (t *FiatToken) Address() common.Address { return t.address }

// Name returns the token name
func (t *FiatToken) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// Symbol returns the token symbol
func (t *FiatToken) Symbol() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.symbol
}

// Version returns the last applied initialization version
func (t *FiatToken) Version() uint8 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

func (t *FiatToken) Owner() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

func (t *FiatToken) BalanceOf(account common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(account)
}

func (t *FiatToken) balanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (t *FiatToken) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(t.totalSupply)
}

// Allowance returns what spender may still pull from owner
func (t *FiatToken) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// IsMinter reports whether account may mint
func (t *FiatToken) IsMinter(account common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.minters[account]
	return ok
}

// MinterAllowance returns what minter may still mint and whether it is a
// minter at all.
func (t *FiatToken) MinterAllowance(minter common.Address) (*uint256.Int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.minters[minter]
	if !ok {
		return new(uint256.Int), false
	}
	return new(uint256.Int).Set(a), true
}

// IsBlacklisted reports whether account is blacklisted
func (t *FiatToken) IsBlacklisted(account common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.blacklisted.Contains(account)
}

func (t *FiatToken) Mint(caller, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance, ok := t.minters[caller]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMinter, caller)
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: mint recipient", ErrZeroAddress)
	}
	if err := t.notBlacklisted(caller, to); err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s > %s", ErrMinterAllowance, amount, allowance)
	}
	allowance.Sub(allowance, amount)
	t.totalSupply.Add(t.totalSupply, amount)
	t.credit(to, amount)
	return nil
}

func (t *FiatToken) Burn(caller common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.minters[caller]; !ok {
		return fmt.Errorf("%w: %s", ErrNotMinter, caller)
	}
	if err := t.notBlacklisted(caller); err != nil {
		return err
	}
	if err := t.debit(caller, amount); err != nil {
		return err
	}
	t.totalSupply.Sub(t.totalSupply, amount)
	return nil
}

func (t *FiatToken) Transfer(caller, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(caller, to, amount)
}

func (t *FiatToken) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.notBlacklisted(caller); err != nil {
		return err
	}
	allowed := t.allowances[from][caller]
	if allowed == nil || allowed.Lt(amount) {
		return fmt.Errorf("%w: %s from %s", ErrInsufficientAllowance, caller, from)
	}
	if err := t.transfer(from, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

func (t *FiatToken) Approve(caller, spender common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.notBlacklisted(caller, spender); err != nil {
		return err
	}
	m, ok := t.allowances[caller]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		t.allowances[caller] = m
	}
	m[spender] = new(uint256.Int).Set(amount)
	return nil
}

func (t *FiatToken) TransferOwnership(caller, newOwner common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner", ErrZeroAddress)
	}
	t.owner = newOwner
	return nil
}

func (t *FiatToken) ConfigureMinter(caller, minter common.Address, allowance *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	t.minters[minter] = new(uint256.Int).Set(allowance)
	return nil
}

func (t *FiatToken) RemoveMinter(caller, minter common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	delete(t.minters, minter)
	return nil
}

func (t *FiatToken) Blacklist(caller, account common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	t.blacklisted.Add(account)
	return nil
}

func (t *FiatToken) UnBlacklist(caller, account common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	t.blacklisted.Remove(account)
	return nil
}

func (t *FiatToken) transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer recipient", ErrZeroAddress)
	}
	if err := t.notBlacklisted(from, to); err != nil {
		return err
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	t.credit(to, amount)
	return nil
}

func (t *FiatToken) debit(account common.Address, amount *uint256.Int) error {
	b := t.balances[account]
	if b == nil || b.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, account, t.balanceOf(account), amount)
	}
	b.Sub(b, amount)
	return nil
}

func (t *FiatToken) credit(account common.Address, amount *uint256.Int) {
	b, ok := t.balances[account]
	if !ok {
		b = new(uint256.Int)
		t.balances[account] = b
	}
	b.Add(b, amount)
}

func (t *FiatToken) notBlacklisted(accounts ...common.Address) error {
	for _, a := range accounts {
		if t.blacklisted.Contains(a) {
			return fmt.Errorf("%w: %s", ErrBlacklisted, a)
		}
	}
	return nil
}
