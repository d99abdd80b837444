// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer builds and verifies the typed digest that authorizes a
// relayer to bridge funds on behalf of their owner.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// SignatureLen is the length of a recoverable secp256k1 signature.
const SignatureLen = 65

var (
	ErrMalformedSignature = errors.New("malformed signature")

	// authorizationTypeHash domain-separates authorization digests.
	authorizationTypeHash = common.Keccak256Hash([]byte(
		"BridgeAuthorization(address adapter,uint256 chainId,address to,uint256 amount,uint256 deadline,uint256 nonce)",
	))
)

// Authorization is the set of fields an owner signs to let anybody submit a
// transfer on their behalf.
type Authorization struct {
	Adapter  common.Address
	ChainID  uint64
	To       common.Address
	Amount   *uint256.Int
	Deadline uint64
	Nonce    uint64
}

// Digest returns the hash the owner signs.
func (a *Authorization) Digest() common.Hash {
	amount := a.Amount
	if amount == nil {
		amount = new(uint256.Int)
	}
	chainID := uint256.NewInt(a.ChainID).Bytes32()
	amountWord := amount.Bytes32()
	deadline := uint256.NewInt(a.Deadline).Bytes32()
	nonce := uint256.NewInt(a.Nonce).Bytes32()
	return common.Keccak256Hash(
		authorizationTypeHash[:],
		common.LeftPadBytes(a.Adapter[:], 32),
		chainID[:],
		common.LeftPadBytes(a.To[:], 32),
		amountWord[:],
		deadline[:],
		nonce[:],
	)
}

// Sign signs the authorization digest with key. The recovery id is shifted to
// 27/28 as wallets produce it.
func Sign(a *Authorization, key *ecdsa.PrivateKey) ([]byte, error) {
	digest := a.Digest()
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign authorization: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Recover returns the address that produced signature over the authorization
// digest. Both 0/1 and 27/28 recovery ids are accepted.
func Recover(a *Authorization, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLen {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(signature))
	}
	sig := make([]byte, SignatureLen)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	digest := a.Digest()
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return common.PubkeyToAddress(*pub), nil
}

// Verify reports whether signature was produced by expected.
func Verify(a *Authorization, signature []byte, expected common.Address) bool {
	signer, err := Recover(a, signature)
	if err != nil {
		return false
	}
	return signer == expected
}
