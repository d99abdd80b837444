// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
)

var _ Bridged = (*Proxy)(nil)

// Proxy is an upgradeable proxy in front of a FiatToken. The admin may swap
// the implementation address; token state lives behind the proxy and survives
// upgrades.
type Proxy struct {
	*FiatToken

	mu             sync.RWMutex
	admin          common.Address
	implementation common.Address
}

// NewProxy creates a proxy at address delegating to implementation, with
// state held by a fresh FiatToken.
func NewProxy(address, implementation, admin common.Address) *Proxy {
	return &Proxy{
		FiatToken:      NewFiatToken(address),
		admin:          admin,
		implementation: implementation,
	}
}

// ProxyAdmin returns the account allowed to upgrade the proxy
func (p *Proxy) ProxyAdmin() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.admin
}

// Implementation returns the current implementation address
func (p *Proxy) Implementation() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.implementation
}

func (p *Proxy) ChangeAdmin(caller, newAdmin common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.admin {
		return ErrNotAdmin
	}
	if newAdmin == (common.Address{}) {
		return fmt.Errorf("%w: new admin", ErrZeroAddress)
	}
	p.admin = newAdmin
	return nil
}

func (p *Proxy) UpgradeTo(caller, implementation common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.admin {
		return ErrNotAdmin
	}
	if implementation == (common.Address{}) {
		return fmt.Errorf("%w: implementation", ErrZeroAddress)
	}
	p.implementation = implementation
	return nil
}

// UpgradeToAndCall upgrades the implementation and then applies data as an
// initialization transaction against the new implementation. A failed call
// leaves the old implementation in place.
func (p *Proxy) UpgradeToAndCall(caller, implementation common.Address, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.admin {
		return ErrNotAdmin
	}
	if implementation == (common.Address{}) {
		return fmt.Errorf("%w: implementation", ErrZeroAddress)
	}
	if len(data) > 0 {
		if err := p.FiatToken.Apply(data); err != nil {
			return fmt.Errorf("upgrade call failed: %w", err)
		}
	}
	p.implementation = implementation
	return nil
}
