// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"context"
	"fmt"
	"strconv"

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

var _ messenger.Target = (*L1Adapter)(nil)

// L1Adapter locks native USDC on L1 and drives the bridge lifecycle.
type L1Adapter struct {
	*base

	status     usdcbridge.Status
	roleCaller common.Address
	burnCaller common.Address
	burnAmount *uint256.Int
	burnSet    bool
	burned     bool
}

// NewL1Adapter creates the L1 adapter locking tok.
func NewL1Adapter(cfg *Config, tok token.Token) (*L1Adapter, error) {
	b, err := newBase(cfg, tok)
	if err != nil {
		return nil, err
	}
	return &L1Adapter{
		base:       b,
		status:     usdcbridge.StatusActive,
		burnAmount: new(uint256.Int),
	}, nil
}

// MessengerStatus returns the lifecycle status
func (a *L1Adapter) MessengerStatus() usdcbridge.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// BurnAmount returns the recorded burn amount and whether it has been set.
func (a *L1Adapter) BurnAmount() (*uint256.Int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(uint256.Int).Set(a.burnAmount), a.burnSet
}

// BurnCaller returns the account allowed to burn the locked funds
func (a *L1Adapter) BurnCaller() common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.burnCaller
}

// RoleCaller returns the account named to take over the L2 token roles
func (a *L1Adapter) RoleCaller() common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roleCaller
}

// Burned reports whether the locked funds have been burned
func (a *L1Adapter) Burned() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.burned
}

// SendMessage locks amount from caller and credits it to to on L2.
func (a *L1Adapter) SendMessage(ctx context.Context, caller, to common.Address, amount *uint256.Int, minGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.canSend(); err != nil {
		return err
	}
	return a.lock(ctx, caller, to, amount, minGasLimit)
}

// SendMessageWithSignature locks amount from owner, who authorized the
// transfer by signing it, and credits it to to on L2.
func (a *L1Adapter) SendMessageWithSignature(
	ctx context.Context,
	caller, owner, to common.Address,
	amount *uint256.Int,
	signature []byte,
	deadline uint64,
	minGasLimit uint32,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.canSend(); err != nil {
		return err
	}
	return a.authorize(owner, to, amount, signature, deadline, func() error {
		return a.lock(ctx, owner, to, amount, minGasLimit)
	})
}

func (a *L1Adapter) canSend() error {
	if !a.status.CanSend() {
		return fmt.Errorf("%w: adapter is %s", usdcbridge.ErrInvalidStatus, a.status)
	}
	return nil
}

func (a *L1Adapter) lock(ctx context.Context, from, to common.Address, amount *uint256.Int, minGasLimit uint32) error {
	if err := a.checkTransfer(to, amount); err != nil {
		return err
	}

	var j chain.Journal
	if err := a.tok.TransferFrom(a.address, from, a.address, amount); err != nil {
		return fmt.Errorf("failed to lock funds: %w", err)
	}
	j.Append(a.undo("lock", func() error {
		return a.tok.Transfer(a.address, from, amount)
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

// ReceiveMessage releases amount of locked funds to to. It is accepted in
// every status.
func (a *L1Adapter) ReceiveMessage(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	a.received(payload.ReceiveMessageSelector)

	if to == a.address {
		return nil
	}
	if err := a.tok.Transfer(a.address, to, amount); err != nil {
		a.strand(ctx, to, amount, err)
		return nil
	}
	a.emit(ctx, events.MessageReceived, map[string]string{
		"to":     to.Hex(),
		"amount": amount.Dec(),
	})
	return nil
}

// ReceiveReturnedFunds pays to out of the locked funds for a credit the L2
// adapter could not mint once it gave up the token roles. Like
// ReceiveMessage it is accepted in every status, including after the burn,
// which never touches the backing of such credits.
func (a *L1Adapter) ReceiveReturnedFunds(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	a.received(payload.ReturnStrandedFundsSelector)

	if to == a.address {
		return nil
	}
	if err := a.tok.Transfer(a.address, to, amount); err != nil {
		a.strand(ctx, to, amount, err)
		return nil
	}
	a.emit(ctx, events.StrandedFundsReturned, map[string]string{
		"to":     to.Hex(),
		"amount": amount.Dec(),
	})
	return nil
}

// StopMessaging pauses the bridge on both sides.
func (a *L1Adapter) StopMessaging(ctx context.Context, caller common.Address, minGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(caller); err != nil {
		return err
	}
	next, err := a.status.Transition(usdcbridge.EventStopMessaging)
	if err != nil {
		return err
	}
	if err := a.send(ctx, &payload.StopMessaging{}, minGasLimit); err != nil {
		return err
	}
	a.setStatus(next)
	a.emit(ctx, events.MessagingStopped, nil)
	return nil
}

// ResumeMessaging resumes a paused bridge on both sides.
func (a *L1Adapter) ResumeMessaging(ctx context.Context, caller common.Address, minGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(caller); err != nil {
		return err
	}
	next, err := a.status.Transition(usdcbridge.EventResumeMessaging)
	if err != nil {
		return err
	}
	if err := a.send(ctx, &payload.ResumeMessaging{}, minGasLimit); err != nil {
		return err
	}
	a.setStatus(next)
	a.emit(ctx, events.MessagingResumed, nil)
	return nil
}

// MigrateToNative starts the migration to natively issued USDC on L2.
// roleCaller will take over the L2 token roles, burnCaller may burn the
// locked funds once L2 reports its final supply. Calling it again while
// upgrading only re-sends the handshake message: the role and burn callers of
// the first call stay in place and only the gas limits of the new call apply.
func (a *L1Adapter) MigrateToNative(
	ctx context.Context,
	caller, roleCaller, burnCaller common.Address,
	minGasLimitReceiveOnL2, minGasLimitSetBurnAmount uint32,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(caller); err != nil {
		return err
	}
	if usdcbridge.IsZero(roleCaller) || usdcbridge.IsZero(burnCaller) {
		return fmt.Errorf("%w: role or burn caller", usdcbridge.ErrInvalidAddress)
	}
	next, err := a.status.Transition(usdcbridge.EventMigrateToNative)
	if err != nil {
		return err
	}

	resend := a.status == usdcbridge.StatusUpgrading
	if !resend {
		a.roleCaller = roleCaller
		a.burnCaller = burnCaller
	}
	msg := &payload.MigrateToNative{
		RoleCaller:               a.roleCaller,
		SetBurnAmountMinGasLimit: minGasLimitSetBurnAmount,
	}
	if err := a.send(ctx, msg, minGasLimitReceiveOnL2); err != nil {
		if !resend {
			a.roleCaller = common.Address{}
			a.burnCaller = common.Address{}
		}
		return err
	}

	a.setStatus(next)
	a.emit(ctx, events.MigratingToNative, map[string]string{
		"roleCaller": a.roleCaller.Hex(),
		"burnCaller": a.burnCaller.Hex(),
		"resend":     strconv.FormatBool(resend),
	})
	return nil
}

// SetBurnAmount records the final bridged supply reported by L2 and retires
// the bridge. It is accepted once, and only while upgrading.
func (a *L1Adapter) SetBurnAmount(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyLinkedAdapter(caller); err != nil {
		return err
	}
	if a.burnSet {
		return fmt.Errorf("%w: burn amount is %s", usdcbridge.ErrAlreadyFinal, a.burnAmount.Dec())
	}
	next, err := a.status.Transition(usdcbridge.EventSetBurnAmount)
	if err != nil {
		a.metrics.inboundRejected.WithLabelValues("status").Inc()
		return err
	}
	a.received(payload.SetBurnAmountSelector)

	a.burnAmount = new(uint256.Int).Set(amount)
	a.burnSet = true
	a.setStatus(next)
	a.emit(ctx, events.BurnAmountSet, map[string]string{"amount": amount.Dec()})
	return nil
}

// BurnLockedUSDC burns the locked funds backing the retired bridged supply,
// never more than the adapter holds. Only the burn caller may call it, once.
func (a *L1Adapter) BurnLockedUSDC(ctx context.Context, caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if usdcbridge.IsZero(a.burnCaller) || caller != a.burnCaller {
		return fmt.Errorf("%w: %s is not the burn caller", usdcbridge.ErrUnauthorized, caller)
	}
	if a.status != usdcbridge.StatusDeprecated {
		return fmt.Errorf("%w: adapter is %s", usdcbridge.ErrInvalidStatus, a.status)
	}
	if a.burned {
		return fmt.Errorf("%w: locked funds already burned", usdcbridge.ErrAlreadyFinal)
	}

	amount := usdcbridge.MinAmount(a.burnAmount, a.tok.BalanceOf(a.address))
	if !amount.IsZero() {
		if err := a.tok.Burn(a.address, amount); err != nil {
			return fmt.Errorf("failed to burn locked funds: %w", err)
		}
	}
	a.burned = true

	a.log.Info("burned locked USDC",
		log.Stringer("adapter", a.address),
		log.String("amount", amount.Dec()),
	)
	a.emit(ctx, events.LockedUSDCBurned, map[string]string{"amount": amount.Dec()})
	return nil
}

// SendUSDCCommand forwards an administrative command to the bridged token
// through the L2 adapter. Only allow-listed commands can be sent, and only
// before migration starts.
func (a *L1Adapter) SendUSDCCommand(ctx context.Context, caller common.Address, cmd payload.TokenCommand, minGasLimit uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(caller); err != nil {
		return err
	}
	if !payload.IsForwardable(cmd.Kind) {
		return fmt.Errorf("%w: %s", ErrCommandNotAllowed, cmd.Kind)
	}
	switch a.status {
	case usdcbridge.StatusActive, usdcbridge.StatusPaused:
	case usdcbridge.StatusUpgrading, usdcbridge.StatusDeprecated:
		return fmt.Errorf("%w: adapter is %s", usdcbridge.ErrInvalidStatus, a.status)
	}
	if err := a.send(ctx, &payload.CallUSDCTransaction{Command: cmd}, minGasLimit); err != nil {
		return err
	}
	a.emit(ctx, events.USDCCommandSent, map[string]string{
		"command": cmd.Kind.String(),
		"target":  cmd.Target.Hex(),
	})
	return nil
}

// WithdrawStrandedFunds pays out the credits caller could not receive.
func (a *L1Adapter) WithdrawStrandedFunds(ctx context.Context, caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.withdrawStranded(ctx, caller, func(amount *uint256.Int) error {
		return a.tok.Transfer(a.address, caller, amount)
	})
}

// HandleMessage dispatches a call delivered by the messenger.
func (a *L1Adapter) HandleMessage(ctx context.Context, caller common.Address, data []byte) error {
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
	case *payload.SetBurnAmount:
		return a.SetBurnAmount(ctx, caller, p.Amount)
	case *payload.ReturnStrandedFunds:
		return a.ReceiveReturnedFunds(ctx, caller, p.To, p.Amount)
	default:
		return fmt.Errorf("%w: %s on L1", ErrUnexpectedPayload, p.Selector().Name())
	}
}

func (a *L1Adapter) setStatus(next usdcbridge.Status) {
	if next == a.status {
		return
	}
	a.log.Info("adapter status changed",
		log.Stringer("adapter", a.address),
		log.Stringer("from", a.status),
		log.Stringer("to", next),
	)
	a.status = next
	a.metrics.statusTransitions.WithLabelValues(next.String()).Inc()
}
