// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Constants
const (
	// KiB is 1024 bytes
	KiB = 1024
)

// ZeroAddress is the null address.
var ZeroAddress = common.Address{}

// IsZero reports whether addr is the null address.
func IsZero(addr common.Address) bool {
	return addr == ZeroAddress
}

// MinAmount returns a copy of the smaller of a and b.
func MinAmount(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// IsPositive reports whether amount is non-nil and greater than zero.
func IsPositive(amount *uint256.Int) bool {
	return amount != nil && !amount.IsZero()
}
