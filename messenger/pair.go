// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package messenger

import (
	"fmt"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/usdcbridge/chain"
)

// Default predeploy addresses of the two messengers.
var (
	L1MessengerAddress = common.HexToAddress("0x4200000000000000000000000000000000000100")
	L2MessengerAddress = common.HexToAddress("0x4200000000000000000000000000000000000007")
)

// NewPair creates a messenger on each domain with a fresh attestation key and
// makes each trust the other.
func NewPair(logger log.Logger, l1, l2 *chain.Domain) (*Messenger, *Messenger, error) {
	l1SK, err := bls.NewSecretKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate L1 attestation key: %w", err)
	}
	l2SK, err := bls.NewSecretKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate L2 attestation key: %w", err)
	}

	l1Messenger, err := New(logger, l1, l2.ID(), L1MessengerAddress, l1SK)
	if err != nil {
		return nil, nil, err
	}
	l2Messenger, err := New(logger, l2, l1.ID(), L2MessengerAddress, l2SK)
	if err != nil {
		return nil, nil, err
	}

	l1Messenger.Trust(l2.ID(), l2Messenger.PublicKey())
	l2Messenger.Trust(l1.ID(), l1Messenger.PublicKey())
	return l1Messenger, l2Messenger, nil
}
