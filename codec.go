// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
)

var errUnknownCodecVersion = errors.New("unknown codec version")

// CodecImpl serializes envelopes as RLP. Only CodecVersion is known.
type CodecImpl struct{}

// Codec is the default codec instance
var Codec = &CodecImpl{}

// Marshal serializes v under version
func (c *CodecImpl) Marshal(version uint16, v interface{}) ([]byte, error) {
	if version != CodecVersion {
		return nil, fmt.Errorf("%w: %d", errUnknownCodecVersion, version)
	}
	return rlp.EncodeToBytes(v)
}

// Unmarshal deserializes b into v. Trailing bytes are rejected.
func (c *CodecImpl) Unmarshal(b []byte, v interface{}) (uint16, error) {
	if err := rlp.DecodeBytes(b, v); err != nil {
		return CodecVersion, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return CodecVersion, nil
}
