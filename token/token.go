// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package token defines the capability the adapters consume from the backing
// and bridged token, plus an in-memory fiat token and admin proxy used by the
// factory, the simulation and tests.
package token

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotMinter             = errors.New("caller is not a minter")
	ErrMinterAllowance       = errors.New("mint amount exceeds minter allowance")
	ErrBlacklisted           = errors.New("account is blacklisted")
	ErrNotOwner              = errors.New("caller is not the owner")
	ErrNotAdmin              = errors.New("caller is not the admin")
	ErrZeroAddress           = errors.New("zero address")
	ErrInvalidInit           = errors.New("invalid initialization")
)

// Token is the value capability an adapter needs. caller is the account
// invoking the token.
type Token interface {
	Address() common.Address
	Mint(caller, to common.Address, amount *uint256.Int) error
	Burn(caller common.Address, amount *uint256.Int) error
	Transfer(caller, to common.Address, amount *uint256.Int) error
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) error
	Approve(caller, spender common.Address, amount *uint256.Int) error
	BalanceOf(account common.Address) *uint256.Int
	TotalSupply() *uint256.Int
}

// Admin is the administrative capability of the bridged token and its proxy.
type Admin interface {
	Owner() common.Address
	ProxyAdmin() common.Address
	Implementation() common.Address
	TransferOwnership(caller, newOwner common.Address) error
	ChangeAdmin(caller, newAdmin common.Address) error
	UpgradeTo(caller, implementation common.Address) error
	UpgradeToAndCall(caller, implementation common.Address, data []byte) error
	ConfigureMinter(caller, minter common.Address, allowance *uint256.Int) error
	RemoveMinter(caller, minter common.Address) error
	MinterAllowance(minter common.Address) (*uint256.Int, bool)
	Blacklist(caller, account common.Address) error
	UnBlacklist(caller, account common.Address) error
}

// Bridged is what the L2 adapter holds: a token it can both move and
// administer.
type Bridged interface {
	Token
	Admin
}
