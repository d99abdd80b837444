// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"
)

// CommandKind enumerates the administrative operations of the bridged token.
type CommandKind uint8

const (
	CommandTransferOwnership CommandKind = iota
	CommandChangeAdmin
	CommandUpgradeTo
	CommandUpgradeToAndCall
	CommandConfigureMinter
	CommandRemoveMinter
	CommandBlacklist
	CommandUnBlacklist
)

func (k CommandKind) String() string {
	switch k {
	case CommandTransferOwnership:
		return "transferOwnership"
	case CommandChangeAdmin:
		return "changeAdmin"
	case CommandUpgradeTo:
		return "upgradeTo"
	case CommandUpgradeToAndCall:
		return "upgradeToAndCall"
	case CommandConfigureMinter:
		return "configureMinter"
	case CommandRemoveMinter:
		return "removeMinter"
	case CommandBlacklist:
		return "blacklist"
	case CommandUnBlacklist:
		return "unBlacklist"
	default:
		return "unknown"
	}
}

// ForwardableCommands is the fixed set of commands the L1 adapter owner may
// execute against the bridged token through the L2 adapter.
var ForwardableCommands = set.Of(
	CommandTransferOwnership,
	CommandChangeAdmin,
	CommandUpgradeTo,
	CommandUpgradeToAndCall,
)

// IsForwardable reports whether k is on the pass-through allow-list.
func IsForwardable(k CommandKind) bool {
	return ForwardableCommands.Contains(k)
}

// TokenCommand is a single administrative call against the bridged token.
// Target is the new owner, new admin, new implementation, or the minter or
// account being configured, depending on Kind.
type TokenCommand struct {
	Kind   CommandKind
	Target common.Address
	Amount *uint256.Int
	Data   []byte
}

// Verify verifies the command shape
func (c *TokenCommand) Verify() error {
	if c.Kind > CommandUnBlacklist {
		return fmt.Errorf("%w: unknown token command %d", ErrInvalidPayload, c.Kind)
	}
	if c.Target == (common.Address{}) {
		return fmt.Errorf("%w: %s with empty target", ErrInvalidPayload, c.Kind)
	}
	if c.Amount == nil {
		c.Amount = new(uint256.Int)
	}
	return nil
}
