// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/bls"
)

var ErrInvalidAttestation = errors.New("invalid attestation")

// VerifyAttestation checks that a carries a valid signature of pk over its
// envelope.
func VerifyAttestation(pk *bls.PublicKey, a *AttestedEnvelope) error {
	sig, err := bls.SignatureFromBytes(a.Attestation)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAttestation, err)
	}
	if !bls.Verify(pk, sig, a.Envelope.Bytes()) {
		return ErrInvalidAttestation
	}
	return nil
}
