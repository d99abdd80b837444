// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/usdcbridge"
	"github.com/luxfi/usdcbridge/adapter"
	"github.com/luxfi/usdcbridge/signer"
)

// SignedAdapter is the signature-authorized transfer surface shared by both
// adapters.
type SignedAdapter interface {
	Address() common.Address
	UserNonce(user common.Address) uint64
	SendMessageWithSignature(
		ctx context.Context,
		caller, owner, to common.Address,
		amount *uint256.Int,
		signature []byte,
		deadline uint64,
		minGasLimit uint32,
	) error
}

var (
	_ SignedAdapter = (*adapter.L1Adapter)(nil)
	_ SignedAdapter = (*adapter.L2Adapter)(nil)
)

// Authorization is a signed transfer handed to the relayer by its owner.
type Authorization struct {
	Owner       common.Address
	To          common.Address
	Amount      *uint256.Int
	Deadline    uint64
	Nonce       uint64
	Signature   []byte
	MinGasLimit uint32
}

// Submit submits auth to a on the domain with EVM chain id chainID.
// Submissions for the same owner are serialized, and an authorization whose
// nonce is not the owner's current nonce or whose signature does not recover
// to the owner is rejected without being submitted.
func (r *Relayer) Submit(ctx context.Context, a SignedAdapter, chainID uint64, auth *Authorization) error {
	unlock := r.owners.Lock(auth.Owner)
	defer unlock()

	if current := a.UserNonce(auth.Owner); auth.Nonce != current {
		r.metrics.authorizationCount.WithLabelValues("stale_nonce").Inc()
		return fmt.Errorf("%w: have %d, want %d", usdcbridge.ErrInvalidNonce, auth.Nonce, current)
	}

	typed := &signer.Authorization{
		Adapter:  a.Address(),
		ChainID:  chainID,
		To:       auth.To,
		Amount:   auth.Amount,
		Deadline: auth.Deadline,
		Nonce:    auth.Nonce,
	}
	digest := typed.Digest()
	key := common.Keccak256Hash(digest[:], auth.Signature)
	recovered, err := r.signers.Get(key, func(common.Hash) (common.Address, error) {
		r.metrics.signerRecoveryCount.Inc()
		return signer.Recover(typed, auth.Signature)
	}, false)
	if err != nil || recovered != auth.Owner {
		r.metrics.authorizationCount.WithLabelValues("bad_signature").Inc()
		return errors.Join(usdcbridge.ErrInvalidSignature, err)
	}

	if err := a.SendMessageWithSignature(
		ctx,
		r.account,
		auth.Owner,
		auth.To,
		auth.Amount,
		auth.Signature,
		auth.Deadline,
		auth.MinGasLimit,
	); err != nil {
		r.metrics.authorizationCount.WithLabelValues("rejected").Inc()
		return fmt.Errorf("adapter rejected authorization: %w", err)
	}

	r.metrics.authorizationCount.WithLabelValues("submitted").Inc()
	r.log.Debug("submitted authorization",
		log.Stringer("adapter", a.Address()),
		log.Stringer("owner", auth.Owner),
		log.Uint64("nonce", auth.Nonce),
	)
	return nil
}
