// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/payload"
	"github.com/luxfi/usdcbridge/token"
)

var (
	_ messenger.Target = (*L2Adapter)(nil)

	ErrRolesNotHeld = fmt.Errorf("%w: adapter does not hold the token roles", usdcbridge.ErrUnauthorized)
)

// L2Adapter mints and burns bridged USDC on L2.
type L2Adapter struct {
	*base
	usdc token.Bridged

	messagingDisabled        bool
	roleCaller               common.Address
	setBurnAmountMinGasLimit uint32
	rolesTransferred         bool
	finalSupply              *uint256.Int
}

// NewL2Adapter creates the L2 adapter for the bridged token usdc.
func NewL2Adapter(cfg *Config, usdc token.Bridged) (*L2Adapter, error) {
	b, err := newBase(cfg, usdc)
	if err != nil {
		return nil, err
	}
	return &L2Adapter{
		base:        b,
		usdc:        usdc,
		finalSupply: new(uint256.Int),
	}, nil
}

// IsMessagingDisabled reports whether outbound transfers are blocked
func (a *L2Adapter) IsMessagingDisabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messagingDisabled
}

// RoleCaller returns the account allowed to take over the token roles
func (a *L2Adapter) RoleCaller() common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roleCaller
}

// RolesTransferred reports whether the token roles have been handed over
func (a *L2Adapter) RolesTransferred() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rolesTransferred
}

// BurnAmount returns the bridged supply reported to L1 on role transfer.
func (a *L2Adapter) BurnAmount() *uint256.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(uint256.Int).Set(a.finalSupply)
}

// SendMessage burns amount pulled from caller and credits it to to on L1.
func (a *L2Adapter) SendMessage(ctx context.Context, caller, to common.Address, amount *uint256.Int, minGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.messagingDisabled {
		return usdcbridge.ErrMessagingDisabled
	}
	return a.burn(ctx, caller, to, amount, minGasLimit)
}

// SendMessageWithSignature burns amount pulled from owner, who authorized the
// transfer by signing it, and credits it to to on L1.
func (a *L2Adapter) SendMessageWithSignature(
	ctx context.Context,
	caller, owner, to common.Address,
	amount *uint256.Int,
	signature []byte,
	deadline uint64,
	minGasLimit uint32,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.messagingDisabled {
		return usdcbridge.ErrMessagingDisabled
	}
	return a.authorize(owner, to, amount, signature, deadline, func() error {
		return a.burn(ctx, owner, to, amount, minGasLimit)
	})
}

func (a *L2Adapter) burn(ctx context.Context, from, to common.Address, amount *uint256.Int, minGasLimit uint32) error {
	if err := a.checkTransfer(to, amount); err != nil {
		return err
	}

	var j chain.Journal
	if err := a.usdc.TransferFrom(a.address, from, a.address, amount); err != nil {
		return fmt.Errorf("failed to pull funds: %w", err)
	}
	j.Append(a.undo("pull", func() error {
		return a.usdc.Transfer(a.address, from, amount)
	}))

	if err := a.usdc.Burn(a.address, amount); err != nil {
		j.Revert()
		return fmt.Errorf("failed to burn funds: %w", err)
	}
	j.Append(a.undo("burn", func() error {
		return a.usdc.Mint(a.address, a.address, amount)
	}))

	if err := a.send(ctx, &payload.ReceiveMessage{To: to, Amount: amount}, minGasLimit); err != nil {
		j.Revert()
		return err
	}
	a.emit(ctx, events.MessageSent, map[string]string{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": amount.Dec(),
	})
	return nil
}

// ReceiveMessage mints amount to to. It is accepted whether or not messaging
// is disabled.
func (a *L2Adapter) ReceiveMessage(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	a.received(payload.ReceiveMessageSelector)

	if to == a.address {
		return nil
	}
	if err := a.usdc.Mint(a.address, to, amount); err != nil {
		a.strand(ctx, to, amount, err)
		return nil
	}
	a.emit(ctx, events.MessageReceived, map[string]string{
		"to":     to.Hex(),
		"amount": amount.Dec(),
	})
	return nil
}

// ReceiveStopMessaging disables outbound transfers.
func (a *L2Adapter) ReceiveStopMessaging(ctx context.Context, caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	a.received(payload.ReceiveStopMessagingSelector)
	a.setMessagingDisabled(true)
	a.emit(ctx, events.MessagingStopped, nil)
	return nil
}

// ReceiveResumeMessaging re-enables outbound transfers. Once the token roles
// are handed over messaging stays disabled.
func (a *L2Adapter) ReceiveResumeMessaging(ctx context.Context, caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	if a.rolesTransferred {
		a.metrics.inboundRejected.WithLabelValues("status").Inc()
		return fmt.Errorf("%w: migration finalized", usdcbridge.ErrInvalidStatus)
	}
	a.received(payload.ReceiveResumeMessagingSelector)
	a.setMessagingDisabled(false)
	a.emit(ctx, events.MessagingResumed, nil)
	return nil
}

// ReceiveMigrateToNative records who may take over the token roles. A repeat
// of the handshake only refreshes the gas limit used to report the supply.
func (a *L2Adapter) ReceiveMigrateToNative(ctx context.Context, caller, roleCaller common.Address, setBurnAmountMinGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	if a.rolesTransferred {
		a.metrics.inboundRejected.WithLabelValues("status").Inc()
		return fmt.Errorf("%w: roles already transferred", usdcbridge.ErrAlreadyFinal)
	}
	a.received(payload.ReceiveMigrateToNativeSelector)

	a.roleCaller = roleCaller
	a.setBurnAmountMinGasLimit = setBurnAmountMinGasLimit
	a.log.Info("migration to native started",
		log.Stringer("adapter", a.address),
		log.Stringer("roleCaller", roleCaller),
	)
	a.emit(ctx, events.MigratingToNative, map[string]string{"roleCaller": roleCaller.Hex()})
	return nil
}

// TransferUSDCRoles hands token ownership and proxy administration to
// newOwner, gives up minting, disables messaging and reports the final
// supply to L1. Only the role caller may call it, once.
func (a *L2Adapter) TransferUSDCRoles(ctx context.Context, caller, newOwner common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if usdcbridge.IsZero(a.roleCaller) || caller != a.roleCaller {
		return fmt.Errorf("%w: %s is not the role caller", usdcbridge.ErrUnauthorized, caller)
	}
	if a.rolesTransferred {
		return fmt.Errorf("%w: roles already transferred", usdcbridge.ErrAlreadyFinal)
	}
	if usdcbridge.IsZero(newOwner) {
		return fmt.Errorf("%w: new owner", usdcbridge.ErrInvalidAddress)
	}
	if a.usdc.Owner() != a.address || a.usdc.ProxyAdmin() != a.address {
		return ErrRolesNotHeld
	}

	// Ownership and admin cannot be taken back once given, so they move last.
	var j chain.Journal
	if allowance, isMinter := a.usdc.MinterAllowance(a.address); isMinter {
		if err := a.usdc.RemoveMinter(a.address, a.address); err != nil {
			return fmt.Errorf("failed to remove minter: %w", err)
		}
		j.Append(a.undo("minter removal", func() error {
			return a.usdc.ConfigureMinter(a.address, a.address, allowance)
		}))
	}

	supply := a.usdc.TotalSupply()
	if err := a.send(ctx, &payload.SetBurnAmount{Amount: supply}, a.setBurnAmountMinGasLimit); err != nil {
		j.Revert()
		return err
	}

	// The supply report is queued and cannot be recalled. If a role does not
	// move, the minter is restored and messaging stays disabled. The handover
	// can be retried while the adapter still holds both roles. Ownership
	// moves after the admin since restoring the minter needs it.
	if err := a.usdc.ChangeAdmin(a.address, newOwner); err != nil {
		a.abortRoleTransfer(&j, err)
		return fmt.Errorf("failed to change admin: %w", err)
	}
	if err := a.usdc.TransferOwnership(a.address, newOwner); err != nil {
		a.abortRoleTransfer(&j, err)
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}

	a.rolesTransferred = true
	a.finalSupply = supply
	a.setMessagingDisabled(true)

	a.log.Info("USDC roles transferred",
		log.Stringer("adapter", a.address),
		log.Stringer("newOwner", newOwner),
		log.String("supply", supply.Dec()),
	)
	a.emit(ctx, events.RolesTransferred, map[string]string{
		"newOwner": newOwner.Hex(),
		"supply":   supply.Dec(),
	})
	return nil
}

func (a *L2Adapter) abortRoleTransfer(j *chain.Journal, cause error) {
	j.Revert()
	a.setMessagingDisabled(true)
	a.log.Error("USDC role transfer failed after reporting the burn amount",
		log.Stringer("adapter", a.address),
		log.Err(cause),
	)
}

// CallUSDCTransaction executes an allow-listed administrative command
// against the bridged token on behalf of the L1 owner.
func (a *L2Adapter) CallUSDCTransaction(ctx context.Context, caller common.Address, cmd payload.TokenCommand) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	if !payload.IsForwardable(cmd.Kind) {
		a.metrics.inboundRejected.WithLabelValues("command").Inc()
		return fmt.Errorf("%w: %s", ErrCommandNotAllowed, cmd.Kind)
	}
	if a.rolesTransferred {
		return fmt.Errorf("%w: migration finalized", usdcbridge.ErrInvalidStatus)
	}
	a.received(payload.CallUSDCTransactionSelector)

	var err error
	switch cmd.Kind {
	case payload.CommandTransferOwnership:
		err = a.usdc.TransferOwnership(a.address, cmd.Target)
	case payload.CommandChangeAdmin:
		err = a.usdc.ChangeAdmin(a.address, cmd.Target)
	case payload.CommandUpgradeTo:
		err = a.usdc.UpgradeTo(a.address, cmd.Target)
	case payload.CommandUpgradeToAndCall:
		err = a.usdc.UpgradeToAndCall(a.address, cmd.Target, cmd.Data)
	default:
		err = fmt.Errorf("%w: %s", ErrCommandNotAllowed, cmd.Kind)
	}
	if err != nil {
		return fmt.Errorf("token command %s failed: %w", cmd.Kind, err)
	}
	a.emit(ctx, events.USDCCommandExecuted, map[string]string{
		"command": cmd.Kind.String(),
		"target":  cmd.Target.Hex(),
	})
	return nil
}

// WithdrawStrandedFunds mints the credits caller could not receive. Once the
// token roles are handed over the adapter can no longer mint, so the credits
// are sent back to caller on L1, where their backing is still locked.
func (a *L2Adapter) WithdrawStrandedFunds(ctx context.Context, caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rolesTransferred {
		return a.withdrawStranded(ctx, caller, func(amount *uint256.Int) error {
			msg := &payload.ReturnStrandedFunds{To: caller, Amount: amount}
			return a.send(ctx, msg, a.setBurnAmountMinGasLimit)
		})
	}
	return a.withdrawStranded(ctx, caller, func(amount *uint256.Int) error {
		return a.usdc.Mint(a.address, caller, amount)
	})
}

// HandleMessage dispatches a call delivered by the messenger.
func (a *L2Adapter) HandleMessage(ctx context.Context, caller common.Address, data []byte) error {
	if err := a.guard(caller); err != nil {
		return err
	}
	p, err := payload.Parse(data)
	if err != nil {
		return err
	}
	switch p := p.(type) {
	case *payload.ReceiveMessage:
		return a.ReceiveMessage(ctx, caller, p.To, p.Amount)
	case *payload.StopMessaging:
		return a.ReceiveStopMessaging(ctx, caller)
	case *payload.ResumeMessaging:
		return a.ReceiveResumeMessaging(ctx, caller)
	case *payload.MigrateToNative:
		return a.ReceiveMigrateToNative(ctx, caller, p.RoleCaller, p.SetBurnAmountMinGasLimit)
	case *payload.CallUSDCTransaction:
		return a.CallUSDCTransaction(ctx, caller, p.Command)
	default:
		return fmt.Errorf("%w: %s on L2", ErrUnexpectedPayload, p.Selector().Name())
	}
}

func (a *L2Adapter) setMessagingDisabled(disabled bool) {
	if a.messagingDisabled == disabled {
		return
	}
	a.messagingDisabled = disabled
	state := "enabled"
	if disabled {
		state = "disabled"
	}
	a.log.Info("messaging "+state, log.Stringer("adapter", a.address))
	a.metrics.statusTransitions.WithLabelValues(state).Inc()
}
