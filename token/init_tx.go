// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"

	"github.com/luxfi/geth/rlp"
)

// InitTx is one post-deployment initialization step of the token, applied
// in version order after Initialize.
type InitTx struct {
	Version uint8
	Name    string
	Symbol  string
}

// Bytes returns the encoded init tx
func (tx *InitTx) Bytes() []byte {
	b, _ := rlp.EncodeToBytes(tx)
	return b
}

// ParseInitTx decodes an init tx
func ParseInitTx(b []byte) (*InitTx, error) {
	tx := &InitTx{}
	if err := rlp.DecodeBytes(b, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInit, err)
	}
	if tx.Version < 2 {
		return nil, fmt.Errorf("%w: init tx version %d", ErrInvalidInit, tx.Version)
	}
	return tx, nil
}
