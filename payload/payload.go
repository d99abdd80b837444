// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload defines the typed calls carried between the two adapters
// (and from the L1 factory to the L2 deployer). Each payload is encoded as a
// four byte selector followed by the RLP encoding of its body.
package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
)

// SelectorLen is the length of a call selector.
const SelectorLen = 4

var (
	// ErrInvalidPayload is returned when a payload is invalid
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnknownSelector is returned when no payload type is registered for a selector
	ErrUnknownSelector = errors.New("unknown selector")
)

// Selector identifies a payload type on the wire.
type Selector [SelectorLen]byte

// NewSelector derives a selector from a call signature.
func NewSelector(signature string) Selector {
	var s Selector
	copy(s[:], common.Keccak256([]byte(signature)))
	return s
}

func (s Selector) String() string {
	return fmt.Sprintf("0x%x", s[:])
}

// Payload is an interface for cross-domain call payloads
type Payload interface {
	// Selector returns the wire identifier of the payload type
	Selector() Selector

	// Verify verifies the payload
	Verify() error
}

var (
	registry = map[Selector]func() Payload{}
	names    = map[Selector]string{}
)

func register(signature string, factory func() Payload) Selector {
	s := NewSelector(signature)
	if _, ok := registry[s]; ok {
		panic(fmt.Sprintf("duplicate payload selector %s", s))
	}
	registry[s] = factory
	names[s] = strings.SplitN(signature, "(", 2)[0]
	return s
}

// Name returns the function name the selector was registered under, or its
// hex form if it is unknown.
func (s Selector) Name() string {
	if n, ok := names[s]; ok {
		return n
	}
	return s.String()
}

// Encode returns the selector-prefixed encoding of p.
func Encode(p Payload) ([]byte, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	body, err := rlp.EncodeToBytes(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	sel := p.Selector()
	out := make([]byte, 0, SelectorLen+len(body))
	out = append(out, sel[:]...)
	return append(out, body...), nil
}

// Parse decodes a selector-prefixed payload into its registered type.
func Parse(b []byte) (Payload, error) {
	if len(b) < SelectorLen {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidPayload)
	}
	var sel Selector
	copy(sel[:], b[:SelectorLen])
	factory, ok := registry[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}
	p := factory()
	if err := rlp.DecodeBytes(b[SelectorLen:], p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// SelectorOf returns the selector prefix of an encoded payload.
func SelectorOf(b []byte) (Selector, error) {
	var sel Selector
	if len(b) < SelectorLen {
		return sel, fmt.Errorf("%w: payload too short", ErrInvalidPayload)
	}
	copy(sel[:], b[:SelectorLen])
	return sel, nil
}
