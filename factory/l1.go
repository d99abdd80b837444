// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package factory deploys linked adapter pairs. The L1 factory deploys the L1
// adapter and, through a single deployment message, has the L2 deployer
// create an L2 factory which deploys the bridged token and the L2 adapter.
// Every address of the pair is known on L1 before the message is sent.
package factory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/adapter"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/payload"
	"github.com/luxfi/usdcbridge/token"
)

// CREATE nonces of the L2 factory's deployments. A fresh contract account
// starts at nonce 1.
const (
	implementationNonce = 1
	proxyNonce          = 2
	adapterNonce        = 3
)

var (
	ErrUntrustedFactory = fmt.Errorf("%w: deployment not sent by a trusted factory", usdcbridge.ErrUnauthorized)
	ErrAddressMismatch  = errors.New("deployed address does not match the precomputed one")
	errNilConfig        = errors.New("missing factory config")
)

// Messenger is the transport a factory deploys adapters against. Remote is
// the domain the messenger sends to.
type Messenger interface {
	adapter.Messenger
	Remote() ids.ID
}

// L2Deployments are the L2 side parameters of a pair deployment.
type L2Deployments struct {
	L2AdapterOwner     common.Address
	ImplementationCode []byte
	InitTxs            [][]byte
	MinGasLimitDeploy  uint32
}

// Deployment is the set of addresses produced by one L1Factory.Deploy call.
type Deployment struct {
	Salt      common.Hash
	L1Adapter common.Address
	L2Factory common.Address
	L2Adapter common.Address
	L2Token   common.Address
}

// L1Config configures an L1 factory.
type L1Config struct {
	Log        log.Logger
	Domain     *chain.Domain
	Token      token.Token
	L2Deployer common.Address
	Events     events.Sink
	Registerer prometheus.Registerer
}

// L1Factory deploys linked adapter pairs from L1.
type L1Factory struct {
	log        log.Logger
	domain     *chain.Domain
	address    common.Address
	token      token.Token
	l2Deployer common.Address
	events     events.Sink
	registerer prometheus.Registerer

	mu          sync.Mutex
	deployments uint64
}

// NewL1Factory deploys an L1 factory from deployer.
func NewL1Factory(cfg *L1Config, deployer common.Address) (*L1Factory, error) {
	if cfg == nil || cfg.Log == nil || cfg.Domain == nil || cfg.Token == nil {
		return nil, errNilConfig
	}
	if cfg.L2Deployer == (common.Address{}) {
		return nil, fmt.Errorf("%w: L2 deployer", usdcbridge.ErrInvalidAddress)
	}
	sink := cfg.Events
	if sink == nil {
		sink = events.Discard{}
	}
	f := &L1Factory{
		log:        cfg.Log,
		domain:     cfg.Domain,
		token:      cfg.Token,
		l2Deployer: cfg.L2Deployer,
		events:     sink,
		registerer: cfg.Registerer,
	}
	if _, err := cfg.Domain.Deploy(deployer, func(addr common.Address) (any, error) {
		f.address = addr
		return f, nil
	}); err != nil {
		return nil, err
	}
	return f, nil
}

// Address returns the factory address
func (f *L1Factory) Address() common.Address { return f.address }

// Deployments returns the number of pairs deployed so far
func (f *L1Factory) Deployments() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deployments
}

// Salt derives the CREATE2 salt of the counter-th deployment requested by
// caller from factory towards remote.
func Salt(remote ids.ID, factory, caller common.Address, counter uint64) common.Hash {
	var c [8]byte
	binary.BigEndian.PutUint64(c[:], counter)
	return common.Keccak256Hash(remote[:], factory.Bytes(), caller.Bytes(), c[:])
}

// Deploy deploys an L1 adapter linked to an L2 adapter that the L2 deployer
// creates once the deployment message is relayed. l1Messenger is the address
// of the messenger both the L1 adapter and the deployment message use.
func (f *L1Factory) Deploy(
	ctx context.Context,
	caller common.Address,
	l1Messenger common.Address,
	l1AdapterOwner common.Address,
	l2 *L2Deployments,
) (*Deployment, error) {
	if l2 == nil {
		return nil, fmt.Errorf("%w: L2 deployments", errNilConfig)
	}
	m, err := chain.Lookup[Messenger](f.domain, l1Messenger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve messenger: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	d := &Deployment{
		Salt:      Salt(m.Remote(), f.address, caller, f.deployments),
		L1Adapter: f.domain.PeekAddress(f.address, f.domain.Nonce(f.address)),
	}
	p := &payload.DeployL2{
		Salt:               d.Salt,
		L1Adapter:          d.L1Adapter,
		L2AdapterOwner:     l2.L2AdapterOwner,
		ImplementationCode: l2.ImplementationCode,
		InitTxs:            l2.InitTxs,
	}
	data, err := payload.Encode(p)
	if err != nil {
		return nil, err
	}
	d.L2Factory = f.domain.Create2Address(f.l2Deployer, d.Salt, p.InitCodeHash())
	d.L2Token = f.domain.PeekAddress(d.L2Factory, proxyNonce)
	d.L2Adapter = f.domain.PeekAddress(d.L2Factory, adapterNonce)

	l1Adapter, err := adapter.NewL1Adapter(&adapter.Config{
		Log:           f.log,
		Domain:        f.domain,
		Address:       d.L1Adapter,
		Messenger:     m,
		Owner:         l1AdapterOwner,
		LinkedAdapter: d.L2Adapter,
		Events:        f.events,
		Registerer:    f.registerer,
	}, f.token)
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 adapter: %w", err)
	}

	addr, err := f.domain.Deploy(f.address, chain.Deployed(l1Adapter))
	if err != nil {
		return nil, err
	}
	if addr != d.L1Adapter {
		f.domain.Unregister(addr)
		return nil, fmt.Errorf("%w: L1 adapter at %s, expected %s", ErrAddressMismatch, addr, d.L1Adapter)
	}
	// the deployment message goes out last and takes the L1 adapter with it
	// if it cannot be sent
	if _, err := m.SendMessage(ctx, f.address, f.l2Deployer, data, l2.MinGasLimitDeploy); err != nil {
		f.domain.Unregister(addr)
		return nil, fmt.Errorf("failed to send deployment: %w", err)
	}
	f.deployments++

	f.log.Info("deployed adapter pair",
		log.Stringer("factory", f.address),
		log.Stringer("caller", caller),
		log.Stringer("l1Adapter", d.L1Adapter),
		log.Stringer("l2Factory", d.L2Factory),
		log.Stringer("l2Adapter", d.L2Adapter),
	)
	e := events.Event{
		Domain:   f.domain.Name(),
		Contract: f.address,
		Name:     events.PairDeployed,
		Time:     f.domain.Now(),
		Attrs: map[string]string{
			"l1Adapter": d.L1Adapter.Hex(),
			"l2Factory": d.L2Factory.Hex(),
			"l2Adapter": d.L2Adapter.Hex(),
			"l2Token":   d.L2Token.Hex(),
			"salt":      d.Salt.Hex(),
		},
	}
	if err := f.events.Emit(ctx, e); err != nil {
		f.log.Warn("failed to emit event", log.String("event", e.Name), log.Err(err))
	}
	return d, nil
}
