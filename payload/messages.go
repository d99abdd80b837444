// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ReceiveMessageSelector         = register("receiveMessage(address,uint256)", func() Payload { return &ReceiveMessage{} })
	ReceiveStopMessagingSelector   = register("receiveStopMessaging()", func() Payload { return &StopMessaging{} })
	ReceiveResumeMessagingSelector = register("receiveResumeMessaging()", func() Payload { return &ResumeMessaging{} })
	ReceiveMigrateToNativeSelector = register("receiveMigrateToNative(address,uint32)", func() Payload { return &MigrateToNative{} })
	SetBurnAmountSelector          = register("setBurnAmount(uint256)", func() Payload { return &SetBurnAmount{} })
	CallUSDCTransactionSelector    = register("callUsdcTransaction(bytes)", func() Payload { return &CallUSDCTransaction{} })
	ReturnStrandedFundsSelector    = register("receiveWithdrawStrandedFundsPostMigration(address,uint256)", func() Payload { return &ReturnStrandedFunds{} })
)

// ReceiveMessage credits Amount to To on the receiving domain.
type ReceiveMessage struct {
	To     common.Address
	Amount *uint256.Int
}

// NewReceiveMessage creates a new value credit payload
func NewReceiveMessage(to common.Address, amount *uint256.Int) (*ReceiveMessage, error) {
	p := &ReceiveMessage{To: to, Amount: amount}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

func (*ReceiveMessage) Selector() Selector { return ReceiveMessageSelector }

// Verify verifies the value credit payload
func (p *ReceiveMessage) Verify() error {
	if p.To == (common.Address{}) {
		return fmt.Errorf("%w: empty recipient", ErrInvalidPayload)
	}
	if p.Amount == nil || p.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidPayload)
	}
	return nil
}

// StopMessaging disables outbound messaging on the L2 adapter.
type StopMessaging struct{}

func (*StopMessaging) Selector() Selector { return ReceiveStopMessagingSelector }
func (*StopMessaging) Verify() error      { return nil }

// ResumeMessaging re-enables outbound messaging on the L2 adapter.
type ResumeMessaging struct{}

func (*ResumeMessaging) Selector() Selector { return ReceiveResumeMessagingSelector }
func (*ResumeMessaging) Verify() error      { return nil }

// MigrateToNative starts the migration handshake on L2.
type MigrateToNative struct {
	RoleCaller               common.Address
	SetBurnAmountMinGasLimit uint32
}

func (*MigrateToNative) Selector() Selector { return ReceiveMigrateToNativeSelector }

// Verify verifies the migration payload
func (p *MigrateToNative) Verify() error {
	if p.RoleCaller == (common.Address{}) {
		return fmt.Errorf("%w: empty role caller", ErrInvalidPayload)
	}
	return nil
}

// SetBurnAmount reports the final bridged supply back to L1.
type SetBurnAmount struct {
	Amount *uint256.Int
}

func (*SetBurnAmount) Selector() Selector { return SetBurnAmountSelector }

// Verify verifies the burn amount payload. A zero supply is legal.
func (p *SetBurnAmount) Verify() error {
	if p.Amount == nil {
		return fmt.Errorf("%w: nil burn amount", ErrInvalidPayload)
	}
	return nil
}

// CallUSDCTransaction forwards an administrative command to the bridged token.
type CallUSDCTransaction struct {
	Command TokenCommand
}

func (*CallUSDCTransaction) Selector() Selector { return CallUSDCTransactionSelector }

// Verify verifies the forwarded command
func (p *CallUSDCTransaction) Verify() error {
	return p.Command.Verify()
}

// ReturnStrandedFunds hands a credit L2 can no longer mint back to To on L1,
// where its backing is still locked.
type ReturnStrandedFunds struct {
	To     common.Address
	Amount *uint256.Int
}

func (*ReturnStrandedFunds) Selector() Selector { return ReturnStrandedFundsSelector }

func (p *ReturnStrandedFunds) Verify() error {
	return (&ReceiveMessage{To: p.To, Amount: p.Amount}).Verify()
}
