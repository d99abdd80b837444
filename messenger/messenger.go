// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package messenger implements the cross-domain transport between one L1 and
// one L2 domain. Outbound envelopes are attested with the source messenger's
// BLS key and held in an outbox until a relayer delivers them. Delivery may
// happen in any order and happens at most once per envelope; envelopes whose
// target reverts are kept for replay.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/chain"
)

var (
	ErrWrongDestination   = errors.New("envelope is not destined for this domain")
	ErrUnknownSource      = errors.New("unknown source domain")
	ErrInvalidAttestation = usdcbridge.ErrInvalidAttestation
	ErrAlreadyRelayed     = errors.New("envelope already relayed")
	ErrNotFailed          = errors.New("envelope has no failed delivery to replay")
	ErrDeliveryFailed     = errors.New("delivery failed")
)

// Target is a contract that can receive cross-domain calls. caller is the
// local messenger address; the origin sender is read back through
// XDomainMessageSender while the call is in progress.
type Target interface {
	HandleMessage(ctx context.Context, caller common.Address, data []byte) error
}

// Messenger is the transport endpoint on one domain.
type Messenger struct {
	log      log.Logger
	domain   *chain.Domain
	remote   ids.ID
	address  common.Address
	attester usdcbridge.Attester

	// relayMu serializes deliveries; mu guards everything else so targets
	// may send while being delivered to.
	relayMu sync.Mutex

	mu            sync.RWMutex
	nonce         uint64
	outbox        map[common.Hash]*usdcbridge.AttestedEnvelope
	order         []common.Hash
	trusted       map[ids.ID]*bls.PublicKey
	relayed       set.Set[common.Hash]
	failed        map[common.Hash]*usdcbridge.Envelope
	xDomainSender common.Address
}

// New creates a messenger at address on domain, sending to remote.
func New(
	logger log.Logger,
	domain *chain.Domain,
	remote ids.ID,
	address common.Address,
	sk *bls.SecretKey,
) (*Messenger, error) {
	m := &Messenger{
		log:      logger,
		domain:   domain,
		remote:   remote,
		address:  address,
		attester: usdcbridge.NewAttester(sk, domain.ID()),
		outbox:   make(map[common.Hash]*usdcbridge.AttestedEnvelope),
		trusted:  make(map[ids.ID]*bls.PublicKey),
		relayed:  set.NewSet[common.Hash](0),
		failed:   make(map[common.Hash]*usdcbridge.Envelope),
	}
	if err := domain.Register(address, m); err != nil {
		return nil, fmt.Errorf("failed to register messenger: %w", err)
	}
	return m, nil
}

// Address returns the messenger's address on its domain
func (m *Messenger) Address() common.Address { return m.address }

// Domain returns the domain the messenger lives on
func (m *Messenger) Domain() *chain.Domain { return m.domain }

// Remote returns the domain outbound envelopes are sent to
func (m *Messenger) Remote() ids.ID { return m.remote }

// PublicKey returns the attestation key of the messenger
func (m *Messenger) PublicKey() *bls.PublicKey { return m.attester.PublicKey() }

// Trust accepts envelopes from source attested by pk.
func (m *Messenger) Trust(source ids.ID, pk *bls.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trusted[source] = pk
}

// SendMessage emits an envelope from sender to target on the remote domain.
// It returns as soon as the envelope is attested and queued.
func (m *Messenger) SendMessage(
	_ context.Context,
	sender, target common.Address,
	data []byte,
	minGasLimit uint32,
) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := usdcbridge.NewEnvelope(m.domain.ID(), m.remote, m.nonce, sender, target, minGasLimit, data)
	if err != nil {
		return common.Hash{}, err
	}
	attested, err := m.attester.Attest(env)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to attest envelope: %w", err)
	}

	id := env.ID()
	m.outbox[id] = attested
	m.order = append(m.order, id)
	m.nonce++

	m.log.Debug("queued envelope",
		log.Stringer("domain", m.domain.ID()),
		log.Stringer("id", id),
		log.Stringer("sender", sender),
		log.Stringer("target", target),
	)
	return id, nil
}

// Pending returns the queued outbound envelopes in emission order.
func (m *Messenger) Pending() []*usdcbridge.AttestedEnvelope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*usdcbridge.AttestedEnvelope, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.outbox[id])
	}
	return out
}

// Ack drops a delivered envelope from the outbox.
func (m *Messenger) Ack(id common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.outbox[id]; !ok {
		return
	}
	delete(m.outbox, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// XDomainMessageSender returns the origin sender of the envelope currently
// being delivered, or the zero address outside of a delivery.
func (m *Messenger) XDomainMessageSender() common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.xDomainSender
}

// IsRelayed reports whether the envelope was delivered successfully
func (m *Messenger) IsRelayed(id common.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.relayed.Contains(id)
}

// IsFailed reports whether the envelope was delivered but its target reverted
func (m *Messenger) IsFailed(id common.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.failed[id]
	return ok
}

// Relay verifies and delivers an envelope emitted by the remote messenger.
// A target error marks the envelope as failed and is returned wrapped in
// ErrDeliveryFailed; the envelope can then only be retried with Replay.
func (m *Messenger) Relay(ctx context.Context, a *usdcbridge.AttestedEnvelope) error {
	if err := m.verify(a); err != nil {
		return err
	}

	env := a.Envelope
	id := env.ID()

	m.mu.RLock()
	_, failed := m.failed[id]
	done := m.relayed.Contains(id)
	m.mu.RUnlock()
	if done || failed {
		return fmt.Errorf("%w: %s", ErrAlreadyRelayed, id)
	}
	return m.deliver(ctx, id, env)
}

// Replay retries a failed envelope.
func (m *Messenger) Replay(ctx context.Context, id common.Hash) error {
	m.mu.RLock()
	env, ok := m.failed[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFailed, id)
	}
	return m.deliver(ctx, id, env)
}

func (m *Messenger) verify(a *usdcbridge.AttestedEnvelope) error {
	if a == nil || a.Envelope == nil {
		return fmt.Errorf("%w: empty envelope", usdcbridge.ErrInvalidMessage)
	}
	env := a.Envelope
	if err := env.Verify(); err != nil {
		return err
	}
	if env.DestinationDomain != m.domain.ID() {
		return fmt.Errorf("%w: got %s, expected %s", ErrWrongDestination, env.DestinationDomain, m.domain.ID())
	}

	m.mu.RLock()
	pk, ok := m.trusted[env.SourceDomain]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, env.SourceDomain)
	}

	return usdcbridge.VerifyAttestation(pk, a)
}

func (m *Messenger) deliver(ctx context.Context, id common.Hash, env *usdcbridge.Envelope) error {
	m.relayMu.Lock()
	defer m.relayMu.Unlock()

	// re-check under the delivery lock so two relayers cannot both deliver
	m.mu.Lock()
	if m.relayed.Contains(id) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRelayed, id)
	}
	m.xDomainSender = env.Sender
	m.mu.Unlock()

	err := m.call(ctx, env)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.xDomainSender = common.Address{}

	if err != nil {
		m.failed[id] = env
		m.log.Warn("envelope delivery failed",
			log.Stringer("domain", m.domain.ID()),
			log.Stringer("id", id),
			log.Stringer("target", env.Target),
			log.Err(err),
		)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	delete(m.failed, id)
	m.relayed.Add(id)
	m.log.Debug("envelope delivered",
		log.Stringer("domain", m.domain.ID()),
		log.Stringer("id", id),
		log.Stringer("target", env.Target),
	)
	return nil
}

func (m *Messenger) call(ctx context.Context, env *usdcbridge.Envelope) error {
	target, err := chain.Lookup[Target](m.domain, env.Target)
	if err != nil {
		return err
	}
	return target.HandleMessage(ctx, m.address, env.Payload)
}
