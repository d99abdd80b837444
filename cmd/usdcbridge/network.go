// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/usdcbridge/adapter"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/config"
	"github.com/luxfi/usdcbridge/events"
	"github.com/luxfi/usdcbridge/factory"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/relayer"
	"github.com/luxfi/usdcbridge/signer"
	"github.com/luxfi/usdcbridge/token"
)

// Well-known accounts of the simulation.
var (
	usdcAddress     = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	usdcOwner       = common.HexToAddress("0x000000000000000000000000000000000000c1c1")
	bridgeOwner     = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	factoryDeployer = common.HexToAddress("0x000000000000000000000000000000000000de01")
	relayerAccount  = common.HexToAddress("0x000000000000000000000000000000000000e1e1")
	nativeOwner     = common.HexToAddress("0x000000000000000000000000000000000000a71e")
)

// network is a local L1/L2 pair with a deployed bridge and a relayer
// between them.
type network struct {
	log      log.Logger
	cfg      config.Config
	l1, l2   *chain.Domain
	m1, m2   *messenger.Messenger
	usdc     *token.FiatToken
	factory  *factory.L1Factory
	relayer  *relayer.Relayer
	recorder *events.Recorder

	pair      *factory.Deployment
	l1Adapter *adapter.L1Adapter
	l2Adapter *adapter.L2Adapter
	bridged   *token.Proxy
}

func domainID(name string, chainID uint64) ids.ID {
	return ids.ID(common.Keccak256Hash([]byte(name), binary.BigEndian.AppendUint64(nil, chainID)))
}

// newNetwork builds both domains, deploys a bridge pair through the factory
// and relays the L2 deployment.
func newNetwork(ctx context.Context, logger log.Logger, cfg config.Config, registerer prometheus.Registerer, sink events.Sink) (*network, error) {
	n := &network{
		log:      logger,
		cfg:      cfg,
		l1:       chain.NewDomain("l1", domainID("l1", cfg.L1ChainID), cfg.L1ChainID, time.Now),
		l2:       chain.NewDomain("l2", domainID("l2", cfg.L2ChainID), cfg.L2ChainID, time.Now),
		recorder: events.NewRecorder(),
	}
	sinks := events.Multi{n.recorder}
	if sink != nil {
		sinks = append(sinks, sink)
	}

	var err error
	n.m1, n.m2, err = messenger.NewPair(logger, n.l1, n.l2)
	if err != nil {
		return nil, err
	}

	n.usdc = token.NewFiatToken(usdcAddress)
	if err := n.usdc.Initialize("USD Coin", "USDC", "USD", 6, usdcOwner); err != nil {
		return nil, err
	}
	if err := n.usdc.ConfigureMinter(usdcOwner, usdcOwner, new(uint256.Int).SetAllOne()); err != nil {
		return nil, err
	}
	if err := n.l1.Register(usdcAddress, n.usdc); err != nil {
		return nil, err
	}

	n.factory, err = factory.NewL1Factory(&factory.L1Config{
		Log:        logger,
		Domain:     n.l1,
		Token:      n.usdc,
		L2Deployer: factory.L2DeployerAddress,
		Events:     sinks,
		Registerer: registerer,
	}, factoryDeployer)
	if err != nil {
		return nil, err
	}
	deployer, err := factory.NewL2Deployer(&factory.L2Config{
		Log:        logger,
		Domain:     n.l2,
		Messenger:  n.m2,
		Events:     sinks,
		Registerer: registerer,
	})
	if err != nil {
		return nil, err
	}
	deployer.Trust(n.factory.Address())

	n.relayer, err = relayer.New(&relayer.Config{
		Log:             logger,
		Account:         relayerAccount,
		Registerer:      registerer,
		RetryTimeout:    cfg.RetryTimeout,
		PollInterval:    cfg.PollInterval,
		SignerCacheSize: cfg.SignerCacheSize,
	},
		relayer.Channel{Source: n.m1, Destination: n.m2},
		relayer.Channel{Source: n.m2, Destination: n.m1},
	)
	if err != nil {
		return nil, err
	}

	if err := n.deploy(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *network) deploy(ctx context.Context) error {
	pair, err := n.factory.Deploy(ctx, bridgeOwner, n.m1.Address(), bridgeOwner, &factory.L2Deployments{
		L2AdapterOwner:     bridgeOwner,
		ImplementationCode: []byte("FiatTokenV2_2"),
		MinGasLimitDeploy:  n.cfg.MinGasLimitDeploy,
	})
	if err != nil {
		return fmt.Errorf("failed to deploy bridge pair: %w", err)
	}
	if _, err := n.relayer.RelayPending(ctx); err != nil {
		return fmt.Errorf("failed to relay deployment: %w", err)
	}

	// burning the locked funds on migration needs a zero-allowance minter
	if err := n.usdc.ConfigureMinter(usdcOwner, pair.L1Adapter, new(uint256.Int)); err != nil {
		return fmt.Errorf("failed to configure L1 adapter as burner: %w", err)
	}

	n.pair = pair
	if n.l1Adapter, err = chain.Lookup[*adapter.L1Adapter](n.l1, pair.L1Adapter); err != nil {
		return err
	}
	if n.l2Adapter, err = factory.LinkedL2Adapter(n.l2, pair.L2Adapter, pair.L1Adapter); err != nil {
		return err
	}
	n.bridged, err = chain.Lookup[*token.Proxy](n.l2, pair.L2Token)
	return err
}

// deposit mints amount to a fresh L1 account and bridges it to L2 with a
// signed authorization submitted by the relayer. The transfer is left in
// the L1 outbox.
func (n *network) deposit(ctx context.Context, amount *uint256.Int) (common.Address, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	holder := common.PubkeyToAddress(key.PublicKey)

	if err := n.usdc.Mint(usdcOwner, holder, amount); err != nil {
		return common.Address{}, err
	}
	if err := n.usdc.Approve(holder, n.l1Adapter.Address(), amount); err != nil {
		return common.Address{}, err
	}

	auth, err := n.authorize(key, n.l1Adapter, n.l1.ChainID(), n.l1.Now(), holder, amount)
	if err != nil {
		return common.Address{}, err
	}
	if err := n.relayer.Submit(ctx, n.l1Adapter, n.l1.ChainID(), auth); err != nil {
		return common.Address{}, err
	}
	return holder, nil
}

// withdraw bridges amount from holder on L2 back to holder on L1.
func (n *network) withdraw(ctx context.Context, holder common.Address, amount *uint256.Int) error {
	if err := n.bridged.Approve(holder, n.l2Adapter.Address(), amount); err != nil {
		return err
	}
	return n.l2Adapter.SendMessage(ctx, holder, holder, amount, n.cfg.MinGasLimit)
}

// migrate pauses and resumes the bridge, then runs the migration handshake
// to native USDC and burns the locked funds.
func (n *network) migrate(ctx context.Context) error {
	steps := []struct {
		name string
		do   func() error
	}{
		{"stop messaging", func() error {
			return n.l1Adapter.StopMessaging(ctx, bridgeOwner, n.cfg.MinGasLimit)
		}},
		{"resume messaging", func() error {
			return n.l1Adapter.ResumeMessaging(ctx, bridgeOwner, n.cfg.MinGasLimit)
		}},
		{"migrate to native", func() error {
			return n.l1Adapter.MigrateToNative(ctx, bridgeOwner, bridgeOwner, bridgeOwner, n.cfg.MinGasLimit, n.cfg.MinGasLimit)
		}},
		{"transfer USDC roles", func() error {
			return n.l2Adapter.TransferUSDCRoles(ctx, bridgeOwner, nativeOwner)
		}},
		{"burn locked USDC", func() error {
			return n.l1Adapter.BurnLockedUSDC(ctx, bridgeOwner)
		}},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			return fmt.Errorf("failed to %s: %w", step.name, err)
		}
		if _, err := n.relayer.RelayPending(ctx); err != nil {
			return fmt.Errorf("failed to relay %s: %w", step.name, err)
		}
		n.log.Info("migration step done",
			log.String("step", step.name),
			log.Stringer("l1Status", n.l1Adapter.MessengerStatus()),
		)
	}
	return nil
}

func (n *network) authorize(
	key *ecdsa.PrivateKey,
	a relayer.SignedAdapter,
	chainID, now uint64,
	to common.Address,
	amount *uint256.Int,
) (*relayer.Authorization, error) {
	owner := common.PubkeyToAddress(key.PublicKey)
	auth := &relayer.Authorization{
		Owner:       owner,
		To:          to,
		Amount:      amount,
		Deadline:    now + 600,
		Nonce:       a.UserNonce(owner),
		MinGasLimit: n.cfg.MinGasLimit,
	}
	sig, err := signer.Sign(&signer.Authorization{
		Adapter:  a.Address(),
		ChainID:  chainID,
		To:       auth.To,
		Amount:   auth.Amount,
		Deadline: auth.Deadline,
		Nonce:    auth.Nonce,
	}, key)
	if err != nil {
		return nil, err
	}
	auth.Signature = sig
	return auth, nil
}
