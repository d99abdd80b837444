// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/adapter"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/payload"
	"github.com/luxfi/usdcbridge/token"
)

// L2DeployerAddress is the default predeploy address of the L2 deployer.
var L2DeployerAddress = common.HexToAddress("0x4200000000000000000000000000000000000012")

// Metadata of the bridged token before any init tx is applied.
const (
	BridgedName     = "Bridged USDC"
	BridgedSymbol   = "USDC.e"
	BridgedCurrency = "USD"
	BridgedDecimals = 6
)

var _ messenger.Target = (*L2Deployer)(nil)

// L2Config configures the L2 deployer.
type L2Config struct {
	Log        log.Logger
	Domain     *chain.Domain
	Address    common.Address
	Messenger  adapter.Messenger
	Events     events.Sink
	Registerer prometheus.Registerer
}

// L2Deployer receives deployment messages from trusted L1 factories and
// creates an L2Factory at the CREATE2 address derived from each message.
type L2Deployer struct {
	log        log.Logger
	domain     *chain.Domain
	address    common.Address
	messenger  adapter.Messenger
	events     events.Sink
	registerer prometheus.Registerer

	mu        sync.Mutex
	factories set.Set[common.Address]
}

// NewL2Deployer creates the L2 deployer and registers it on its domain.
func NewL2Deployer(cfg *L2Config) (*L2Deployer, error) {
	if cfg == nil || cfg.Log == nil || cfg.Domain == nil || cfg.Messenger == nil {
		return nil, errNilConfig
	}
	addr := cfg.Address
	if addr == (common.Address{}) {
		addr = L2DeployerAddress
	}
	sink := cfg.Events
	if sink == nil {
		sink = events.Discard{}
	}
	d := &L2Deployer{
		log:        cfg.Log,
		domain:     cfg.Domain,
		address:    addr,
		messenger:  cfg.Messenger,
		events:     sink,
		registerer: cfg.Registerer,
		factories:  set.NewSet[common.Address](1),
	}
	if err := cfg.Domain.Register(addr, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Address returns the deployer address
func (d *L2Deployer) Address() common.Address { return d.address }

// Trust accepts deployment messages sent by the L1 factory at factory.
func (d *L2Deployer) Trust(factory common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factories.Add(factory)
}

// HandleMessage deploys the L2 half of a pair.
func (d *L2Deployer) HandleMessage(ctx context.Context, caller common.Address, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.messenger.Address() {
		return fmt.Errorf("%w: caller %s is not the messenger", ErrUntrustedFactory, caller)
	}
	origin := d.messenger.XDomainMessageSender()
	if !d.factories.Contains(origin) {
		return fmt.Errorf("%w: %s", ErrUntrustedFactory, origin)
	}

	p, err := payload.Parse(data)
	if err != nil {
		return err
	}
	deploy, ok := p.(*payload.DeployL2)
	if !ok {
		return fmt.Errorf("%w: %s", adapter.ErrUnexpectedPayload, p.Selector().Name())
	}

	f := &L2Factory{
		domain:    d.domain,
		address:   d.domain.Create2Address(d.address, deploy.Salt, deploy.InitCodeHash()),
		l1Adapter: deploy.L1Adapter,
	}
	if err := f.deploy(d, deploy); err != nil {
		return fmt.Errorf("failed to deploy L2 factory at %s: %w", f.address, err)
	}

	d.log.Info("deployed L2 adapter",
		log.Stringer("factory", f.address),
		log.Stringer("origin", origin),
		log.Stringer("l1Adapter", f.l1Adapter),
		log.Stringer("l2Adapter", f.adapter),
		log.Stringer("token", f.proxy),
	)
	e := events.Event{
		Domain:   d.domain.Name(),
		Contract: f.address,
		Name:     events.L2Deployed,
		Time:     d.domain.Now(),
		Attrs: map[string]string{
			"l1Adapter":      f.l1Adapter.Hex(),
			"l2Adapter":      f.adapter.Hex(),
			"implementation": f.implementation.Hex(),
			"token":          f.proxy.Hex(),
		},
	}
	if err := d.events.Emit(ctx, e); err != nil {
		d.log.Warn("failed to emit event", log.String("event", e.Name), log.Err(err))
	}
	return nil
}

// L2Factory is the per-pair factory on L2. It deploys the token
// implementation, the token proxy and the L2 adapter, in that order.
type L2Factory struct {
	domain         *chain.Domain
	address        common.Address
	l1Adapter      common.Address
	implementation common.Address
	proxy          common.Address
	adapter        common.Address
}

// Address returns the factory address
func (f *L2Factory) Address() common.Address { return f.address }

// L1Adapter returns the L1 adapter the deployed L2 adapter is linked to
func (f *L2Factory) L1Adapter() common.Address { return f.l1Adapter }

// Implementation returns the token implementation address
func (f *L2Factory) Implementation() common.Address { return f.implementation }

// Token returns the bridged token proxy address
func (f *L2Factory) Token() common.Address { return f.proxy }

// Adapter returns the L2 adapter address
func (f *L2Factory) Adapter() common.Address { return f.adapter }

// deploy builds every contract of the L2 half before registering any of them.
func (f *L2Factory) deploy(d *L2Deployer, p *payload.DeployL2) error {
	f.implementation = f.domain.PeekAddress(f.address, implementationNonce)
	f.proxy = f.domain.PeekAddress(f.address, proxyNonce)
	f.adapter = f.domain.PeekAddress(f.address, adapterNonce)

	impl := token.NewFiatToken(f.implementation)
	proxy := token.NewProxy(f.proxy, f.implementation, f.adapter)
	if err := proxy.Initialize(BridgedName, BridgedSymbol, BridgedCurrency, BridgedDecimals, f.adapter); err != nil {
		return err
	}
	for i, tx := range p.InitTxs {
		if err := proxy.Apply(tx); err != nil {
			return fmt.Errorf("init tx %d: %w", i, err)
		}
	}
	if err := proxy.ConfigureMinter(f.adapter, f.adapter, new(uint256.Int).SetAllOne()); err != nil {
		return err
	}
	l2Adapter, err := adapter.NewL2Adapter(&adapter.Config{
		Log:           d.log,
		Domain:        f.domain,
		Address:       f.adapter,
		Messenger:     d.messenger,
		Owner:         p.L2AdapterOwner,
		LinkedAdapter: p.L1Adapter,
		Events:        d.events,
		Registerer:    d.registerer,
	}, proxy)
	if err != nil {
		return err
	}

	if err := f.domain.Register(f.address, f); err != nil {
		return err
	}
	for _, c := range []struct {
		want     common.Address
		contract any
	}{
		{f.implementation, impl},
		{f.proxy, proxy},
		{f.adapter, l2Adapter},
	} {
		addr, err := f.domain.Deploy(f.address, chain.Deployed(c.contract))
		if err != nil {
			return err
		}
		if addr != c.want {
			return fmt.Errorf("%w: %s, expected %s", ErrAddressMismatch, addr, c.want)
		}
	}
	return nil
}

// LinkedL2Adapter returns the L2 adapter deployed for a pair on domain,
// checking that it is linked to l1Adapter.
func LinkedL2Adapter(domain *chain.Domain, l2Adapter, l1Adapter common.Address) (*adapter.L2Adapter, error) {
	a, err := chain.Lookup[*adapter.L2Adapter](domain, l2Adapter)
	if err != nil {
		return nil, err
	}
	if a.LinkedAdapter() != l1Adapter {
		return nil, fmt.Errorf("%w: %s is linked to %s", usdcbridge.ErrNotLinkedAdapter, l2Adapter, a.LinkedAdapter())
	}
	return a, nil
}
