// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/payload"
	"github.com/luxfi/usdcbridge/signer"
	"github.com/luxfi/usdcbridge/token"
)

func TestRoundTrip(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	e.fund(t, alice, 100)
	require.NoError(e.l1a.SendMessage(e.ctx, alice, bob, amt(40), 200_000))
	require.Equal(amt(60), e.usdc.BalanceOf(alice))
	require.Equal(amt(40), e.usdc.BalanceOf(l1AdapterAddr))
	require.True(e.bridged.TotalSupply().IsZero(), "nothing is credited before delivery")

	sent := e.m1.Pending()
	require.Len(sent, 1)
	require.Empty(e.relayToL2(t))
	require.Equal(amt(40), e.bridged.BalanceOf(bob))
	require.Equal(amt(40), e.bridged.TotalSupply())

	// redelivering the same envelope cannot credit twice
	require.ErrorIs(e.m2.Relay(e.ctx, sent[0]), messenger.ErrAlreadyRelayed)
	require.Equal(amt(40), e.bridged.TotalSupply())

	require.NoError(e.bridged.Approve(bob, l2AdapterAddr, amt(15)))
	require.NoError(e.l2a.SendMessage(e.ctx, bob, carol, amt(15), 200_000))
	require.Equal(amt(25), e.bridged.BalanceOf(bob))
	require.Equal(amt(25), e.bridged.TotalSupply())

	require.Empty(e.relayToL1(t))
	require.Equal(amt(15), e.usdc.BalanceOf(carol))
	require.Equal(amt(25), e.usdc.BalanceOf(l1AdapterAddr))

	require.Len(e.ev1.Named(events.MessageSent), 1)
	require.Len(e.ev1.Named(events.MessageReceived), 1)
	require.Len(e.ev2.Named(events.MessageReceived), 1)
}

func TestSendMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		to      common.Address
		amount  *uint256.Int
		approve uint64
		wantErr error
	}{
		{
			name:    "zero amount",
			to:      bob,
			amount:  amt(0),
			approve: 10,
			wantErr: usdcbridge.ErrInvalidAmount,
		},
		{
			name:    "nil amount",
			to:      bob,
			approve: 10,
			wantErr: usdcbridge.ErrInvalidAmount,
		},
		{
			name:    "zero recipient",
			to:      common.Address{},
			amount:  amt(1),
			approve: 10,
			wantErr: usdcbridge.ErrInvalidRecipient,
		},
		{
			name:    "token as recipient",
			to:      l1USDCAddr,
			amount:  amt(1),
			approve: 10,
			wantErr: usdcbridge.ErrInvalidRecipient,
		},
		{
			name:    "allowance",
			to:      bob,
			amount:  amt(11),
			approve: 10,
			wantErr: token.ErrInsufficientAllowance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			e := newBridgeEnv(t)

			require.NoError(e.usdc.Mint(circle, alice, amt(10)))
			require.NoError(e.usdc.Approve(alice, l1AdapterAddr, amt(tt.approve)))

			err := e.l1a.SendMessage(e.ctx, alice, tt.to, tt.amount, 0)
			require.ErrorIs(err, tt.wantErr)
			require.Equal(amt(10), e.usdc.BalanceOf(alice))
			require.Empty(e.m1.Pending())
		})
	}
}

var errTransportDown = errors.New("transport down")

type failingMessenger struct {
	Messenger
}

func (failingMessenger) SendMessage(context.Context, common.Address, common.Address, []byte, uint32) (common.Hash, error) {
	return common.Hash{}, errTransportDown
}

func TestSendIsAtomic(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	l1a, err := NewL1Adapter(&Config{
		Log:           log.NewNoOpLogger(),
		Domain:        e.l1,
		Address:       l1AdapterAddr,
		Messenger:     failingMessenger{e.m1},
		Owner:         owner,
		LinkedAdapter: l2AdapterAddr,
	}, e.usdc)
	require.NoError(err)

	e.fund(t, alice, 10)
	require.ErrorIs(l1a.SendMessage(e.ctx, alice, bob, amt(10), 0), errTransportDown)
	require.Equal(amt(10), e.usdc.BalanceOf(alice))
	require.True(e.usdc.BalanceOf(l1AdapterAddr).IsZero())

	require.ErrorIs(l1a.StopMessaging(e.ctx, owner, 0), errTransportDown)
	require.Equal(usdcbridge.StatusActive, l1a.MessengerStatus())

	require.ErrorIs(l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0), errTransportDown)
	require.Equal(usdcbridge.StatusActive, l1a.MessengerStatus())
	require.Equal(common.Address{}, l1a.BurnCaller())
}

var errFrozen = errors.New("frozen")

// frozenToken refuses plain transfers out of any account.
type frozenToken struct {
	token.Token
}

func (frozenToken) Transfer(common.Address, common.Address, *uint256.Int) error {
	return errFrozen
}

func TestFailedRevertIsCounted(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	l1a, err := NewL1Adapter(&Config{
		Log:           log.NewNoOpLogger(),
		Domain:        e.l1,
		Address:       l1AdapterAddr,
		Messenger:     failingMessenger{e.m1},
		Owner:         owner,
		LinkedAdapter: l2AdapterAddr,
	}, frozenToken{e.usdc})
	require.NoError(err)

	e.fund(t, alice, 10)
	require.ErrorIs(l1a.SendMessage(e.ctx, alice, bob, amt(10), 0), errTransportDown)
	require.Equal(amt(10), e.usdc.BalanceOf(l1AdapterAddr))
	require.Equal(float64(1), testutil.ToFloat64(l1a.metrics.revertFailures))
}

func TestStopMessagingScenario(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	e.bridgeIn(t, bob, 50)
	e.fund(t, alice, 100)

	// in flight in both directions when the owner pauses
	require.NoError(e.l1a.SendMessage(e.ctx, alice, bob, amt(10), 0))
	require.NoError(e.l2a.SendMessage(e.ctx, bob, carol, amt(5), 0))

	require.ErrorIs(e.l1a.StopMessaging(e.ctx, alice, 0), usdcbridge.ErrUnauthorized)
	require.NoError(e.l1a.StopMessaging(e.ctx, owner, 0))
	require.Equal(usdcbridge.StatusPaused, e.l1a.MessengerStatus())
	require.ErrorIs(e.l1a.StopMessaging(e.ctx, owner, 0), usdcbridge.ErrInvalidStatus)

	err := e.l1a.SendMessage(e.ctx, alice, bob, amt(1), 0)
	require.ErrorIs(err, usdcbridge.ErrInvalidStatus)

	// receiving is never blocked
	require.Empty(e.relayToL1(t))
	require.Equal(amt(5), e.usdc.BalanceOf(carol))
	require.Empty(e.relayToL2(t))
	require.Equal(amt(55), e.bridged.BalanceOf(bob))
	require.True(e.l2a.IsMessagingDisabled())

	require.NoError(e.bridged.Approve(bob, l2AdapterAddr, amt(1)))
	require.ErrorIs(e.l2a.SendMessage(e.ctx, bob, carol, amt(1), 0), usdcbridge.ErrInvalidStatus)

	require.NoError(e.l1a.ResumeMessaging(e.ctx, owner, 0))
	require.Equal(usdcbridge.StatusActive, e.l1a.MessengerStatus())
	require.Empty(e.relayToL2(t))
	require.False(e.l2a.IsMessagingDisabled())
	require.NoError(e.l2a.SendMessage(e.ctx, bob, carol, amt(1), 0))
}

func TestInboundRejectsForgedOrigin(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)
	e.bridgeIn(t, bob, 10)

	// direct calls that do not come through the messenger
	err := e.l1a.ReceiveMessage(e.ctx, alice, alice, amt(10))
	require.ErrorIs(err, usdcbridge.ErrUnauthorized)
	// the messenger address outside of a delivery attests nobody
	err = e.l1a.ReceiveMessage(e.ctx, e.m1.Address(), alice, amt(10))
	require.ErrorIs(err, usdcbridge.ErrUnauthorized)
	err = e.l1a.SetBurnAmount(e.ctx, e.m1.Address(), amt(0))
	require.ErrorIs(err, usdcbridge.ErrUnauthorized)

	// a rogue L2 contract sending through the real messenger
	rogue := common.HexToAddress("0x0bad")
	inject(t, e.m2, rogue, l1AdapterAddr, &payload.ReceiveMessage{To: alice, Amount: amt(10)})
	inject(t, e.m2, rogue, l1AdapterAddr, &payload.SetBurnAmount{Amount: amt(0)})
	inject(t, e.m2, rogue, l1AdapterAddr, &payload.ReturnStrandedFunds{To: alice, Amount: amt(10)})
	inject(t, e.m1, rogue, l2AdapterAddr, &payload.StopMessaging{})
	inject(t, e.m1, rogue, l2AdapterAddr, &payload.MigrateToNative{RoleCaller: rogue})

	errs := append(e.relayToL1(t), e.relayToL2(t)...)
	require.Len(errs, 5)
	for _, err := range errs {
		require.ErrorIs(err, messenger.ErrDeliveryFailed)
		require.ErrorIs(err, usdcbridge.ErrUnauthorized)
	}
	require.True(e.usdc.BalanceOf(alice).IsZero())
	require.False(e.l2a.IsMessagingDisabled())
	require.Equal(common.Address{}, e.l2a.RoleCaller())
	_, set := e.l1a.BurnAmount()
	require.False(set)
}

func TestInboundRejectsUnexpectedPayload(t *testing.T) {
	e := newBridgeEnv(t)

	// L1 does not take stop messages, even from the linked adapter
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.StopMessaging{})
	errs := e.relayToL1(t)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrUnexpectedPayload)
}

func TestReceiveToAdapterIsNoop(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	e.fund(t, alice, 10)
	require.NoError(e.l1a.SendMessage(e.ctx, alice, l2AdapterAddr, amt(10), 0))
	require.Empty(e.relayToL2(t))

	require.True(e.bridged.TotalSupply().IsZero())
	require.Equal(amt(10), e.usdc.BalanceOf(l1AdapterAddr))
}

func sign(t *testing.T, key *ecdsa.PrivateKey, adapter common.Address, chainID uint64, to common.Address, amount, deadline, nonce uint64) []byte {
	t.Helper()
	sig, err := signer.Sign(&signer.Authorization{
		Adapter:  adapter,
		ChainID:  chainID,
		To:       to,
		Amount:   amt(amount),
		Deadline: deadline,
		Nonce:    nonce,
	}, key)
	require.NoError(t, err)
	return sig
}

func TestSendMessageWithSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	holder := common.PubkeyToAddress(key.PublicKey)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	deadline := uint64(genesis.Unix()) + 60

	tests := []struct {
		name      string
		signature func(e *bridgeEnv) []byte
		deadline  uint64
		amount    uint64
		approve   uint64
		wantErr   error
		wantNonce uint64
	}{
		{
			name: "ok",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 0)
			},
			amount:    10,
			approve:   10,
			wantNonce: 1,
		},
		{
			name: "wrong signer",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, other, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 0)
			},
			amount:  10,
			approve: 10,
			wantErr: usdcbridge.ErrInvalidSignature,
		},
		{
			name: "future nonce",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 1)
			},
			amount:  10,
			approve: 10,
			wantErr: usdcbridge.ErrExpiredOrReplayed,
		},
		{
			name: "other domain",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l2.ChainID(), bob, 10, deadline, 0)
			},
			amount:  10,
			approve: 10,
			wantErr: usdcbridge.ErrExpiredOrReplayed,
		},
		{
			name: "other adapter",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l2AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 0)
			},
			amount:  10,
			approve: 10,
			wantErr: usdcbridge.ErrInvalidSignature,
		},
		{
			name: "amount mismatch",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 9, deadline, 0)
			},
			amount:  10,
			approve: 10,
			wantErr: usdcbridge.ErrInvalidSignature,
		},
		{
			name: "expired",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, uint64(genesis.Unix())-1, 0)
			},
			deadline: uint64(genesis.Unix()) - 1,
			amount:   10,
			approve:  10,
			wantErr:  usdcbridge.ErrSignatureExpired,
		},
		{
			name: "transfer fails",
			signature: func(e *bridgeEnv) []byte {
				return sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 0)
			},
			amount:  10,
			approve: 5,
			wantErr: token.ErrInsufficientAllowance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			e := newBridgeEnv(t)

			require.NoError(e.usdc.Mint(circle, holder, amt(tt.amount)))
			require.NoError(e.usdc.Approve(holder, l1AdapterAddr, amt(tt.approve)))

			d := tt.deadline
			if d == 0 {
				d = deadline
			}

			err := e.l1a.SendMessageWithSignature(e.ctx, relayer, holder, bob, amt(tt.amount), tt.signature(e), d, 0)
			require.ErrorIs(err, tt.wantErr)
			require.Equal(tt.wantNonce, e.l1a.UserNonce(holder))
			if tt.wantErr != nil {
				require.Equal(amt(tt.amount), e.usdc.BalanceOf(holder))
				require.Empty(e.m1.Pending())
				return
			}

			require.True(e.usdc.BalanceOf(holder).IsZero())
			require.True(e.usdc.BalanceOf(relayer).IsZero())
			require.Empty(e.relayToL2(t))
			require.Equal(amt(tt.amount), e.bridged.BalanceOf(bob))
		})
	}
}

func TestSignatureReplay(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	holder := common.PubkeyToAddress(key.PublicKey)
	e.fund(t, holder, 30)
	deadline := uint64(genesis.Unix()) + 60

	first := sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 0)
	require.NoError(e.l1a.SendMessageWithSignature(e.ctx, relayer, holder, bob, amt(10), first, deadline, 0))
	require.ErrorIs(
		e.l1a.SendMessageWithSignature(e.ctx, relayer, holder, bob, amt(10), first, deadline, 0),
		usdcbridge.ErrExpiredOrReplayed,
	)
	require.Equal(uint64(1), e.l1a.UserNonce(holder))

	second := sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 1)
	require.NoError(e.l1a.SendMessageWithSignature(e.ctx, relayer, holder, bob, amt(10), second, deadline, 0))
	require.Equal(uint64(2), e.l1a.UserNonce(holder))
	require.Equal(amt(10), e.usdc.BalanceOf(holder))

	// nonces are per adapter
	require.Zero(e.l2a.UserNonce(holder))

	// nothing is accepted while paused, and the nonce stays put
	require.NoError(e.l1a.StopMessaging(e.ctx, owner, 0))
	third := sign(t, key, l1AdapterAddr, e.l1.ChainID(), bob, 10, deadline, 2)
	require.ErrorIs(
		e.l1a.SendMessageWithSignature(e.ctx, relayer, holder, bob, amt(10), third, deadline, 0),
		usdcbridge.ErrInvalidStatus,
	)
	require.Equal(uint64(2), e.l1a.UserNonce(holder))
}

func TestMigrationScenario(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	e.bridgeIn(t, bob, 40)
	require.Equal(amt(40), e.usdc.BalanceOf(l1AdapterAddr))

	// bob withdraws 10 while the migration is being set up
	require.NoError(e.l2a.SendMessage(e.ctx, bob, carol, amt(10), 0))

	require.ErrorIs(
		e.l1a.MigrateToNative(e.ctx, alice, roleCaller, burnCaller, 0, 0),
		usdcbridge.ErrUnauthorized,
	)
	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 300_000, 150_000))
	require.Equal(usdcbridge.StatusUpgrading, e.l1a.MessengerStatus())
	require.Equal(burnCaller, e.l1a.BurnCaller())

	e.fund(t, alice, 1)
	require.ErrorIs(e.l1a.SendMessage(e.ctx, alice, bob, amt(1), 0), usdcbridge.ErrInvalidStatus)

	require.Empty(e.relayToL2(t))
	require.Equal(roleCaller, e.l2a.RoleCaller())
	require.False(e.l2a.IsMessagingDisabled(), "L2 keeps operating until roles move")

	require.ErrorIs(e.l2a.TransferUSDCRoles(e.ctx, alice, newOwner), usdcbridge.ErrUnauthorized)
	require.NoError(e.l2a.TransferUSDCRoles(e.ctx, roleCaller, newOwner))
	require.ErrorIs(
		e.l2a.TransferUSDCRoles(e.ctx, roleCaller, common.HexToAddress("0x0b")),
		usdcbridge.ErrAlreadyFinal,
	)
	require.Equal(newOwner, e.bridged.Owner())
	require.Equal(newOwner, e.bridged.ProxyAdmin())
	require.False(e.bridged.IsMinter(l2AdapterAddr))
	require.True(e.l2a.IsMessagingDisabled())
	require.Equal(amt(30), e.l2a.BurnAmount())

	require.Empty(e.relayToL1(t))
	require.Equal(usdcbridge.StatusDeprecated, e.l1a.MessengerStatus())
	burnAmount, set := e.l1a.BurnAmount()
	require.True(set)
	require.Equal(amt(30), burnAmount)
	require.Equal(amt(10), e.usdc.BalanceOf(carol))
	require.Equal(amt(30), e.usdc.BalanceOf(l1AdapterAddr))

	require.ErrorIs(e.l1a.BurnLockedUSDC(e.ctx, roleCaller), usdcbridge.ErrUnauthorized)
	require.NoError(e.l1a.BurnLockedUSDC(e.ctx, burnCaller))
	require.True(e.usdc.BalanceOf(l1AdapterAddr).IsZero())
	require.ErrorIs(e.l1a.BurnLockedUSDC(e.ctx, burnCaller), usdcbridge.ErrAlreadyFinal)
	require.True(e.l1a.Burned())
	require.Equal(burnCaller, e.l1a.BurnCaller(), "burn caller stays on record")

	require.Len(e.ev1.Named(events.LockedUSDCBurned), 1)
	require.Len(e.ev2.Named(events.RolesTransferred), 1)
}

func TestMigrateToNativeResend(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	require.ErrorIs(
		e.l1a.MigrateToNative(e.ctx, owner, common.Address{}, burnCaller, 0, 0),
		usdcbridge.ErrInvalidAmount,
	)
	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 100))

	other := common.HexToAddress("0x0f")
	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, other, other, 0, 200))
	require.Equal(usdcbridge.StatusUpgrading, e.l1a.MessengerStatus())
	require.Equal(burnCaller, e.l1a.BurnCaller())
	require.Equal(roleCaller, e.l1a.RoleCaller())

	pending := e.m1.Pending()
	require.Len(pending, 2)
	for i, wantGas := range []uint32{100, 200} {
		p, err := payload.Parse(pending[i].Envelope.Payload)
		require.NoError(err)
		msg, ok := p.(*payload.MigrateToNative)
		require.True(ok)
		require.Equal(roleCaller, msg.RoleCaller)
		require.Equal(wantGas, msg.SetBurnAmountMinGasLimit)
	}

	// both copies are accepted on L2, in either order
	require.NoError(e.m2.Relay(e.ctx, pending[1]))
	require.NoError(e.m2.Relay(e.ctx, pending[0]))
	require.Equal(roleCaller, e.l2a.RoleCaller())

	require.Len(e.ev1.Named(events.MigratingToNative), 2)
	require.Equal("true", e.ev1.Named(events.MigratingToNative)[1].Attrs["resend"])
}

func TestMigrateToNativeRequiresActive(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	require.NoError(e.l1a.StopMessaging(e.ctx, owner, 0))
	require.ErrorIs(
		e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0),
		usdcbridge.ErrInvalidStatus,
	)
	require.Equal(usdcbridge.StatusPaused, e.l1a.MessengerStatus())
	require.Equal(common.Address{}, e.l1a.BurnCaller())
}

func TestSetBurnAmount(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)
	e.bridgeIn(t, bob, 40)

	// not accepted before migration starts
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.SetBurnAmount{Amount: amt(1)})
	errs := e.relayToL1(t)
	require.Len(errs, 1)
	require.ErrorIs(errs[0], usdcbridge.ErrInvalidStatus)
	require.Equal(usdcbridge.StatusActive, e.l1a.MessengerStatus())

	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0))

	// L2 reports more than is locked: the burn is clamped to the balance
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.SetBurnAmount{Amount: amt(100)})
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.SetBurnAmount{Amount: amt(5)})
	errs = e.relayToL1(t)
	require.Len(errs, 1)
	require.ErrorIs(errs[0], usdcbridge.ErrAlreadyFinal)

	burnAmount, _ := e.l1a.BurnAmount()
	require.Equal(amt(100), burnAmount)
	require.Equal(usdcbridge.StatusDeprecated, e.l1a.MessengerStatus())

	require.NoError(e.l1a.BurnLockedUSDC(e.ctx, burnCaller))
	require.True(e.usdc.BalanceOf(l1AdapterAddr).IsZero())
}

func TestBurnRequiresDeprecated(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	require.ErrorIs(e.l1a.BurnLockedUSDC(e.ctx, common.Address{}), usdcbridge.ErrUnauthorized)
	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0))
	require.ErrorIs(e.l1a.BurnLockedUSDC(e.ctx, burnCaller), usdcbridge.ErrInvalidStatus)
}

func TestDeprecatedIsTerminal(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)
	e.bridgeIn(t, bob, 10)

	require.NoError(e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0))
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.SetBurnAmount{Amount: amt(0)})
	require.Empty(e.relayToL1(t))

	cmd := payload.TokenCommand{Kind: payload.CommandUpgradeTo, Target: l2ImplAddr}
	attempts := []error{
		e.l1a.StopMessaging(e.ctx, owner, 0),
		e.l1a.ResumeMessaging(e.ctx, owner, 0),
		e.l1a.MigrateToNative(e.ctx, owner, roleCaller, burnCaller, 0, 0),
		e.l1a.SendMessage(e.ctx, bob, bob, amt(1), 0),
		e.l1a.SendUSDCCommand(e.ctx, owner, cmd, 0),
	}
	for _, err := range attempts {
		require.ErrorIs(err, usdcbridge.ErrInvalidStatus)
		require.Equal(usdcbridge.StatusDeprecated, e.l1a.MessengerStatus())
	}

	// value still flows in, and a zero burn is a no-op
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.ReceiveMessage{To: carol, Amount: amt(4)})
	require.Empty(e.relayToL1(t))
	require.Equal(amt(4), e.usdc.BalanceOf(carol))
	require.NoError(e.l1a.BurnLockedUSDC(e.ctx, burnCaller))
	require.Equal(amt(6), e.usdc.BalanceOf(l1AdapterAddr))
	require.Equal(usdcbridge.StatusDeprecated, e.l1a.MessengerStatus())
}

func TestStrandedFundsL1(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)
	e.bridgeIn(t, bob, 10)

	require.NoError(e.usdc.Blacklist(circle, carol))
	require.NoError(e.l2a.SendMessage(e.ctx, bob, carol, amt(10), 0))
	require.Empty(e.relayToL1(t), "a refused credit does not fail the delivery")

	require.Equal(amt(10), e.l1a.StrandedFunds(carol))
	require.True(e.usdc.BalanceOf(carol).IsZero())
	require.ErrorIs(e.l1a.WithdrawStrandedFunds(e.ctx, carol), token.ErrBlacklisted)
	require.Equal(amt(10), e.l1a.StrandedFunds(carol))

	require.NoError(e.usdc.UnBlacklist(circle, carol))
	require.NoError(e.l1a.WithdrawStrandedFunds(e.ctx, carol))
	require.Equal(amt(10), e.usdc.BalanceOf(carol))
	require.True(e.l1a.StrandedFunds(carol).IsZero())
	require.ErrorIs(e.l1a.WithdrawStrandedFunds(e.ctx, carol), ErrNothingStranded)

	require.Len(e.ev1.Named(events.FundsStranded), 1)
	require.Len(e.ev1.Named(events.StrandedFundsWithdrawn), 1)
}

func TestReturnedFundsStrandOnL1(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)
	e.bridgeIn(t, bob, 10)

	require.NoError(e.usdc.Blacklist(circle, carol))
	inject(t, e.m2, l2AdapterAddr, l1AdapterAddr, &payload.ReturnStrandedFunds{To: carol, Amount: amt(4)})
	require.Empty(e.relayToL1(t))
	require.Equal(amt(4), e.l1a.StrandedFunds(carol))
	require.Equal(amt(10), e.usdc.BalanceOf(l1AdapterAddr))

	require.NoError(e.usdc.UnBlacklist(circle, carol))
	require.NoError(e.l1a.WithdrawStrandedFunds(e.ctx, carol))
	require.Equal(amt(4), e.usdc.BalanceOf(carol))
	require.Equal(amt(6), e.usdc.BalanceOf(l1AdapterAddr))
	require.Empty(e.ev1.Named(events.StrandedFundsReturned))
}

func TestAdapterOwnership(t *testing.T) {
	require := require.New(t)
	e := newBridgeEnv(t)

	require.ErrorIs(e.l1a.TransferOwnership(alice, alice), usdcbridge.ErrUnauthorized)
	require.ErrorIs(e.l1a.TransferOwnership(owner, common.Address{}), usdcbridge.ErrInvalidAmount)
	require.NoError(e.l1a.TransferOwnership(owner, alice))
	require.Equal(alice, e.l1a.Owner())
	require.ErrorIs(e.l1a.StopMessaging(e.ctx, owner, 0), usdcbridge.ErrUnauthorized)
	require.NoError(e.l1a.StopMessaging(e.ctx, alice, 0))
}
