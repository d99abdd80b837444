// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer is the off-chain worker of the bridge. It drains the
// outbox of each messenger into the messenger on the other domain and
// submits signed transfer authorizations on behalf of their owners.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/cache"
	"github.com/luxfi/usdcbridge/chain"
	"github.com/luxfi/usdcbridge/messenger"
	"github.com/luxfi/usdcbridge/nonce"
	"github.com/luxfi/usdcbridge/relayer/checkpoint"
	"github.com/luxfi/usdcbridge/utils"
)

const (
	DefaultRetryTimeout    = 10 * time.Second
	DefaultPollInterval    = time.Second
	DefaultSignerCacheSize = 1024
)

var (
	ErrMisconfiguredChannel = errors.New("misconfigured channel")
	errNilConfig            = errors.New("missing relayer config")
)

// Outbox is the sending side of a channel.
type Outbox interface {
	Domain() *chain.Domain
	Remote() ids.ID
	Pending() []*usdcbridge.AttestedEnvelope
	Ack(id common.Hash)
}

// Inbox is the receiving side of a channel.
type Inbox interface {
	Domain() *chain.Domain
	Relay(ctx context.Context, a *usdcbridge.AttestedEnvelope) error
	Replay(ctx context.Context, id common.Hash) error
}

var (
	_ Outbox = (*messenger.Messenger)(nil)
	_ Inbox  = (*messenger.Messenger)(nil)
)

// Channel is one direction of the bridge.
type Channel struct {
	Source      Outbox
	Destination Inbox
}

// Name returns the channel name used in logs, metrics and checkpoints.
func (c Channel) Name() string {
	return c.Source.Domain().Name() + "->" + c.Destination.Domain().Name()
}

// Config configures a relayer.
type Config struct {
	Log log.Logger
	// Account is the address the relayer submits transactions from.
	Account         common.Address
	Registerer      prometheus.Registerer
	Checkpoints     checkpoint.Store
	RetryTimeout    time.Duration
	PollInterval    time.Duration
	SignerCacheSize int
}

type channelState struct {
	Channel
	checkpoint *checkpoint.CheckpointManager
}

// Relayer moves envelopes between messengers and submits signed
// authorizations.
type Relayer struct {
	log          log.Logger
	account      common.Address
	channels     []*channelState
	metrics      *RelayerMetrics
	retryTimeout time.Duration
	pollInterval time.Duration
	owners       *nonce.Locker
	signers      *cache.LRUCache[common.Hash, common.Address]
}

// New creates a relayer serving channels.
func New(cfg *Config, channels ...Channel) (*Relayer, error) {
	if cfg == nil || cfg.Log == nil {
		return nil, errNilConfig
	}
	r := &Relayer{
		log:          cfg.Log,
		account:      cfg.Account,
		metrics:      NewRelayerMetrics(cfg.Registerer),
		retryTimeout: cfg.RetryTimeout,
		pollInterval: cfg.PollInterval,
		owners:       nonce.NewLocker(),
	}
	if r.retryTimeout == 0 {
		r.retryTimeout = DefaultRetryTimeout
	}
	if r.pollInterval == 0 {
		r.pollInterval = DefaultPollInterval
	}
	size := cfg.SignerCacheSize
	if size == 0 {
		size = DefaultSignerCacheSize
	}
	r.signers = cache.NewLRUCache[common.Hash, common.Address](size)

	store := cfg.Checkpoints
	if store == nil {
		store = checkpoint.NewMemoryStore()
	}
	for _, c := range channels {
		if c.Source == nil || c.Destination == nil {
			return nil, fmt.Errorf("%w: missing endpoint", ErrMisconfiguredChannel)
		}
		if c.Source.Remote() != c.Destination.Domain().ID() {
			return nil, fmt.Errorf("%w: %s sends to %s", ErrMisconfiguredChannel, c.Name(), c.Source.Remote())
		}
		cm, err := checkpoint.NewCheckpointManager(cfg.Log, store, c.Name())
		if err != nil {
			return nil, err
		}
		r.channels = append(r.channels, &channelState{Channel: c, checkpoint: cm})
	}
	return r, nil
}

// Checkpoint returns the lowest envelope nonce of channel name not yet
// processed.
func (r *Relayer) Checkpoint(name string) (uint64, bool) {
	for _, c := range r.channels {
		if c.Name() == name {
			return c.checkpoint.Next(), true
		}
	}
	return 0, false
}

// Run relays pending envelopes every poll interval until ctx is done.
func (r *Relayer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RelayPending(ctx); err != nil {
			r.log.Warn("relay pass failed", log.Err(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RelayPending makes one pass over every channel and returns the number of
// envelopes delivered. Channels are drained concurrently; each channel is
// drained in emission order.
func (r *Relayer) RelayPending(ctx context.Context) (int, error) {
	counts := make([]int, len(r.channels))
	var eg errgroup.Group
	for i, c := range r.channels {
		eg.Go(func() error {
			n, err := r.drain(ctx, c)
			counts[i] = n
			return err
		})
	}
	err := eg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

func (r *Relayer) drain(ctx context.Context, c *channelState) (int, error) {
	source := c.Source.Domain().Name()
	destination := c.Destination.Domain().Name()

	delivered := 0
	for _, env := range c.Source.Pending() {
		id := env.ID()
		start := time.Now()
		err := utils.WithRetriesTimeout(r.log, func() error {
			if err := ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
			err := c.Destination.Relay(ctx, env)
			if err != nil && isFinal(err) {
				return backoff.Permanent(err)
			}
			return err
		}, r.retryTimeout)

		switch {
		case err == nil:
			delivered++
			r.metrics.successfulRelayMessageCount.WithLabelValues(source, destination).Inc()
			r.metrics.relayMessageLatencyMS.WithLabelValues(source, destination).Set(float64(time.Since(start).Milliseconds()))
		case ctx.Err() != nil:
			return delivered, ctx.Err()
		case isFinal(err):
			r.metrics.failedRelayMessageCount.WithLabelValues(source, destination, failureReason(err)).Inc()
			r.log.Warn("envelope not delivered",
				log.String("channel", c.Name()),
				log.Stringer("id", id),
				log.Err(err),
			)
		default:
			// transient; leave it in the outbox for the next pass
			r.metrics.failedRelayMessageCount.WithLabelValues(source, destination, "unavailable").Inc()
			return delivered, fmt.Errorf("failed to relay %s on %s: %w", id, c.Name(), err)
		}

		c.Source.Ack(id)
		c.checkpoint.StageCommittedNonce(env.Envelope.Nonce)
	}
	return delivered, c.checkpoint.Flush()
}

// Replay retries a failed delivery on channel name.
func (r *Relayer) Replay(ctx context.Context, name string, id common.Hash) error {
	for _, c := range r.channels {
		if c.Name() == name {
			return c.Destination.Replay(ctx, id)
		}
	}
	return fmt.Errorf("%w: unknown channel %s", ErrMisconfiguredChannel, name)
}

// isFinal reports whether retrying err can never succeed. A target that
// rejects an envelope keeps it for Replay, so that is final for the relayer
// too.
func isFinal(err error) bool {
	for _, final := range []error{
		messenger.ErrAlreadyRelayed,
		messenger.ErrDeliveryFailed,
		messenger.ErrInvalidAttestation,
		messenger.ErrUnknownSource,
		messenger.ErrWrongDestination,
		usdcbridge.ErrInvalidMessage,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, final) {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, messenger.ErrAlreadyRelayed):
		return "already_relayed"
	case errors.Is(err, messenger.ErrDeliveryFailed):
		return "target_rejected"
	default:
		return "invalid_envelope"
	}
}
