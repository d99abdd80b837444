// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"errors"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
)

var (
	_ Attester = (*attester)(nil)

	ErrWrongSourceDomain = errors.New("wrong source domain")
)

// Attester attests envelopes emitted on one domain
type Attester interface {
	Attest(env *Envelope) (*AttestedEnvelope, error)
	PublicKey() *bls.PublicKey
}

// NewAttester creates an attester for envelopes emitted on domain
func NewAttester(sk *bls.SecretKey, domain ids.ID) Attester {
	return &attester{
		sk:     sk,
		pk:     sk.PublicKey(),
		domain: domain,
	}
}

type attester struct {
	sk     *bls.SecretKey
	pk     *bls.PublicKey
	domain ids.ID
}

func (a *attester) Attest(env *Envelope) (*AttestedEnvelope, error) {
	if env.SourceDomain != a.domain {
		return nil, ErrWrongSourceDomain
	}

	sig, err := a.sk.Sign(env.Bytes())
	if err != nil {
		return nil, err
	}
	return &AttestedEnvelope{
		Envelope:    env,
		Attestation: bls.SignatureToBytes(sig),
	}, nil
}

func (a *attester) PublicKey() *bls.PublicKey { return a.pk }
