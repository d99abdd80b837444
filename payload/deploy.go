// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
)

var DeployL2Selector = register("deploy(bytes32,bytes)", func() Payload { return &DeployL2{} })

// DeployL2 instructs the L2 deployer to instantiate an L2 factory, which in
// turn deploys the bridged token implementation, its proxy and the L2
// adapter linked to L1Adapter.
type DeployL2 struct {
	Salt               common.Hash
	L1Adapter          common.Address
	L2AdapterOwner     common.Address
	ImplementationCode []byte
	InitTxs            [][]byte
}

func (*DeployL2) Selector() Selector { return DeployL2Selector }

// Verify verifies the deployment payload
func (p *DeployL2) Verify() error {
	if p.L1Adapter == (common.Address{}) {
		return fmt.Errorf("%w: empty L1 adapter", ErrInvalidPayload)
	}
	if p.L2AdapterOwner == (common.Address{}) {
		return fmt.Errorf("%w: empty L2 adapter owner", ErrInvalidPayload)
	}
	if len(p.ImplementationCode) == 0 {
		return fmt.Errorf("%w: empty implementation code", ErrInvalidPayload)
	}
	return nil
}

// InitCodeHash is the hash the L2 factory address is derived from. It covers
// everything but the salt, which CREATE2 mixes in separately.
func (p *DeployL2) InitCodeHash() common.Hash {
	b, _ := rlp.EncodeToBytes([]interface{}{
		p.L1Adapter,
		p.L2AdapterOwner,
		p.ImplementationCode,
		p.InitTxs,
	})
	return common.Keccak256Hash(b)
}
