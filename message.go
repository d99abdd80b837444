// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

const (
	CodecVersion   = 0
	MaxMessageSize = 256 * KiB
)

var ErrInvalidMessage = errors.New("invalid message")

// Envelope is a cross-domain message as emitted by a messenger. Sender is the
// contract that called the messenger on the source domain and is what the
// destination attests as the cross-domain sender.
type Envelope struct {
	SourceDomain      ids.ID
	DestinationDomain ids.ID
	Nonce             uint64
	Sender            common.Address
	Target            common.Address
	MinGasLimit       uint32
	Payload           []byte
}

// NewEnvelope creates a new envelope
func NewEnvelope(
	source, destination ids.ID,
	nonce uint64,
	sender, target common.Address,
	minGasLimit uint32,
	payload []byte,
) (*Envelope, error) {
	e := &Envelope{
		SourceDomain:      source,
		DestinationDomain: destination,
		Nonce:             nonce,
		Sender:            sender,
		Target:            target,
		MinGasLimit:       minGasLimit,
		Payload:           payload,
	}
	if err := e.Verify(); err != nil {
		return nil, err
	}
	return e, nil
}

// Verify verifies the envelope
func (e *Envelope) Verify() error {
	if e.SourceDomain == e.DestinationDomain {
		return fmt.Errorf("%w: source and destination domain are equal", ErrInvalidMessage)
	}
	if e.Target == (common.Address{}) {
		return fmt.Errorf("%w: empty target", ErrInvalidMessage)
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	b, err := Codec.Marshal(CodecVersion, e)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if len(b) > MaxMessageSize {
		return fmt.Errorf("%w: message size %d exceeds maximum %d", ErrInvalidMessage, len(b), MaxMessageSize)
	}
	return nil
}

// Bytes returns the byte representation of the envelope
func (e *Envelope) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, e)
	return b
}

// ID returns the hash of the envelope
func (e *Envelope) ID() common.Hash {
	return common.Keccak256Hash(e.Bytes())
}

// ParseEnvelope parses an envelope from bytes
func ParseEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	if _, err := Codec.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if err := e.Verify(); err != nil {
		return nil, err
	}
	return e, nil
}

// AttestedEnvelope is an envelope plus the source messenger's attestation over
// its bytes.
type AttestedEnvelope struct {
	Envelope    *Envelope
	Attestation []byte
}

// Bytes returns the byte representation of the attested envelope
func (a *AttestedEnvelope) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, a)
	return b
}

// ID returns the ID of the wrapped envelope
func (a *AttestedEnvelope) ID() common.Hash {
	return a.Envelope.ID()
}

// ParseAttestedEnvelope parses an attested envelope from bytes
func ParseAttestedEnvelope(b []byte) (*AttestedEnvelope, error) {
	a := &AttestedEnvelope{}
	if _, err := Codec.Unmarshal(b, a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attested envelope: %w", err)
	}
	if a.Envelope == nil {
		return nil, fmt.Errorf("%w: envelope is nil", ErrInvalidMessage)
	}
	if err := a.Envelope.Verify(); err != nil {
		return nil, err
	}
	return a, nil
}

// Equal returns true if two envelopes are equal
func (e *Envelope) Equal(other *Envelope) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.SourceDomain == other.SourceDomain &&
		e.DestinationDomain == other.DestinationDomain &&
		e.Nonce == other.Nonce &&
		e.Sender == other.Sender &&
		e.Target == other.Target &&
		e.MinGasLimit == other.MinGasLimit &&
		bytes.Equal(e.Payload, other.Payload)
}
