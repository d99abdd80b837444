// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package adapter implements the linked pair of USDC bridge adapters. The L1
// adapter locks the native token and owns the bridge lifecycle; the L2
// adapter mints and burns the bridged token. Each adapter only trusts inbound
// calls its messenger attests as coming from the other.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/nonce"
	"github.com/luxfi/usdcbridge/payload"
	"github.com/luxfi/usdcbridge/signer"
	"github.com/luxfi/usdcbridge/token"
)

var (
	ErrCommandNotAllowed = fmt.Errorf("%w: token command not allowed", usdcbridge.ErrUnauthorized)
	ErrUnexpectedPayload = errors.New("unexpected payload")
	ErrNothingStranded   = fmt.Errorf("%w: no stranded funds", usdcbridge.ErrInvalidAmount)
	errNilConfig         = errors.New("missing adapter config")
)

// Messenger is the transport an adapter sends through and authenticates
// inbound calls against.
type Messenger interface {
	Address() common.Address
	SendMessage(ctx context.Context, sender, target common.Address, data []byte, minGasLimit uint32) (common.Hash, error)
	XDomainMessageSender() common.Address
}

var _ Messenger = (*messenger.Messenger)(nil)

// Config holds what both adapters are constructed with.
type Config struct {
	Log           log.Logger
	Domain        *chain.Domain
	Address       common.Address
	Messenger     Messenger
	Owner         common.Address
	LinkedAdapter common.Address
	Events        events.Sink
	Registerer    prometheus.Registerer
}

func (c *Config) verify() error {
	switch {
	case c.Log == nil || c.Domain == nil || c.Messenger == nil:
		return errNilConfig
	case c.Address == (common.Address{}):
		return fmt.Errorf("%w: adapter address", usdcbridge.ErrInvalidAddress)
	case c.Owner == (common.Address{}):
		return fmt.Errorf("%w: owner", usdcbridge.ErrInvalidAddress)
	case c.LinkedAdapter == (common.Address{}):
		return fmt.Errorf("%w: linked adapter", usdcbridge.ErrInvalidAddress)
	}
	return nil
}

// base is the state and plumbing shared by both adapters. Every exported
// entry point of an adapter holds mu for its whole duration.
type base struct {
	log       log.Logger
	domain    *chain.Domain
	address   common.Address
	messenger Messenger
	linked    common.Address
	tok       token.Token
	events    events.Sink
	metrics   *metrics

	mu       sync.Mutex
	owner    common.Address
	nonces   *nonce.Registry
	stranded map[common.Address]*uint256.Int
}

func newBase(cfg *Config, tok token.Token) (*base, error) {
	if err := cfg.verify(); err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, fmt.Errorf("%w: token", errNilConfig)
	}
	m, err := newMetrics(cfg.Registerer, cfg.Domain.Name(), cfg.Address.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to register adapter metrics: %w", err)
	}
	sink := cfg.Events
	if sink == nil {
		sink = events.Discard{}
	}
	return &base{
		log:       cfg.Log,
		domain:    cfg.Domain,
		address:   cfg.Address,
		messenger: cfg.Messenger,
		linked:    cfg.LinkedAdapter,
		tok:       tok,
		events:    sink,
		metrics:   m,
		owner:     cfg.Owner,
		nonces:    nonce.NewRegistry(),
		stranded:  make(map[common.Address]*uint256.Int),
	}, nil
}

// Address returns the adapter's own address
func (b *base) Address() common.Address { return b.address }

// LinkedAdapter returns the counterpart adapter on the other domain
func (b *base) LinkedAdapter() common.Address { return b.linked }

// Messenger returns the local messenger address
func (b *base) Messenger() common.Address { return b.messenger.Address() }

// Token returns the address of the token the adapter moves
func (b *base) Token() common.Address { return b.tok.Address() }

// Owner returns the adapter owner
func (b *base) Owner() common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// UserNonce returns the nonce the next signed authorization of user must
// carry.
func (b *base) UserNonce(user common.Address) uint64 {
	return b.nonces.Current(user)
}

// StrandedFunds returns the inbound credit held for user because the token
// refused it.
func (b *base) StrandedFunds(user common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.stranded[user]; ok {
		return new(uint256.Int).Set(s)
	}
	return new(uint256.Int)
}

// TransferOwnership hands the adapter to newOwner.
func (b *base) TransferOwnership(caller, newOwner common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.onlyOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner", usdcbridge.ErrInvalidAddress)
	}
	b.owner = newOwner
	return nil
}

// onlyLinkedAdapter is the guard of every inbound entry point: the call must
// come from the local messenger while it delivers an envelope sent by the
// linked adapter.
func (b *base) onlyLinkedAdapter(caller common.Address) error {
	if caller != b.messenger.Address() {
		b.metrics.inboundRejected.WithLabelValues("caller").Inc()
		return fmt.Errorf("%w: caller %s is not the messenger", usdcbridge.ErrNotLinkedAdapter, caller)
	}
	if origin := b.messenger.XDomainMessageSender(); origin != b.linked {
		b.metrics.inboundRejected.WithLabelValues("origin").Inc()
		return fmt.Errorf("%w: origin %s", usdcbridge.ErrNotLinkedAdapter, origin)
	}
	return nil
}

// guard runs onlyLinkedAdapter ahead of payload parsing so a forged origin
// is rejected whatever it carries.
func (b *base) guard(caller common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onlyLinkedAdapter(caller)
}

func (b *base) onlyOwner(caller common.Address) error {
	if caller != b.owner {
		return fmt.Errorf("%w: %s", usdcbridge.ErrNotOwner, caller)
	}
	return nil
}

func (b *base) checkTransfer(to common.Address, amount *uint256.Int) error {
	if !usdcbridge.IsPositive(amount) {
		return fmt.Errorf("%w: amount must be positive", usdcbridge.ErrInvalidAmount)
	}
	if usdcbridge.IsZero(to) || to == b.tok.Address() {
		return fmt.Errorf("%w: %s", usdcbridge.ErrInvalidRecipient, to)
	}
	return nil
}

// authorize verifies a signed authorization of owner over the current nonce
// and, if it holds, consumes the nonce and runs body. A failing body leaves
// the nonce untouched.
func (b *base) authorize(
	owner, to common.Address,
	amount *uint256.Int,
	signature []byte,
	deadline uint64,
	body func() error,
) error {
	return b.nonces.Consume(owner, func(current uint64) error {
		auth := &signer.Authorization{
			Adapter:  b.address,
			ChainID:  b.domain.ChainID(),
			To:       to,
			Amount:   amount,
			Deadline: deadline,
			Nonce:    current,
		}
		if !signer.Verify(auth, signature, owner) {
			return usdcbridge.ErrInvalidSignature
		}
		if now := b.domain.Now(); now > deadline {
			return fmt.Errorf("%w: deadline %d, now %d", usdcbridge.ErrSignatureExpired, deadline, now)
		}
		return nil
	}, body)
}

// send emits p to the linked adapter.
func (b *base) send(ctx context.Context, p payload.Payload, minGasLimit uint32) error {
	data, err := payload.Encode(p)
	if err != nil {
		return err
	}
	id, err := b.messenger.SendMessage(ctx, b.address, b.linked, data, minGasLimit)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", p.Selector().Name(), err)
	}
	b.metrics.messagesSent.WithLabelValues(p.Selector().Name()).Inc()
	b.log.Debug("sent message",
		log.Stringer("adapter", b.address),
		log.String("kind", p.Selector().Name()),
		log.Stringer("id", id),
	)
	return nil
}

// strand records amount for to after the token refused to credit it.
func (b *base) strand(ctx context.Context, to common.Address, amount *uint256.Int, cause error) {
	s, ok := b.stranded[to]
	if !ok {
		s = new(uint256.Int)
		b.stranded[to] = s
	}
	s.Add(s, amount)
	b.metrics.strandedCredits.Inc()
	b.log.Warn("inbound credit stranded",
		log.Stringer("adapter", b.address),
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
		log.Err(cause),
	)
	b.emit(ctx, events.FundsStranded, map[string]string{
		"to":     to.Hex(),
		"amount": amount.Dec(),
		"reason": cause.Error(),
	})
}

// withdrawStranded releases the funds stranded for user through release.
func (b *base) withdrawStranded(ctx context.Context, user common.Address, release func(amount *uint256.Int) error) error {
	amount, ok := b.stranded[user]
	if !ok || amount.IsZero() {
		return ErrNothingStranded
	}
	if err := release(amount); err != nil {
		return fmt.Errorf("failed to release stranded funds: %w", err)
	}
	delete(b.stranded, user)
	b.emit(ctx, events.StrandedFundsWithdrawn, map[string]string{
		"user":   user.Hex(),
		"amount": amount.Dec(),
	})
	return nil
}

// undo wraps a compensating token call for a chain.Journal. The journal
// cannot fail, so a failed compensation is logged and counted.
func (b *base) undo(step string, f func() error) func() {
	return func() {
		if err := f(); err != nil {
			b.metrics.revertFailures.Inc()
			b.log.Error("failed to revert "+step,
				log.Stringer("adapter", b.address),
				log.Err(err),
			)
		}
	}
}

func (b *base) received(kind payload.Selector) {
	b.metrics.messagesReceived.WithLabelValues(kind.Name()).Inc()
}

func (b *base) emit(ctx context.Context, name string, attrs map[string]string) {
	e := events.Event{
		Domain:   b.domain.Name(),
		Contract: b.address,
		Name:     name,
		Time:     b.domain.Now(),
		Attrs:    attrs,
	}
	if err := b.events.Emit(ctx, e); err != nil {
		b.log.Warn("failed to emit event",
			log.String("event", name),
			log.Err(err),
		)
	}
}
