// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestPublisher(t *testing.T) {
	require := require.New(t)

	conn := &fakeConn{}
	p := NewPublisher(log.NewNoOpLogger(), conn)
	contract := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	e := Event{
		Domain:   "l1",
		Contract: contract,
		Name:     MessageSent,
		Time:     42,
		Attrs:    map[string]string{"amount": "10"},
	}

	require.NoError(p.Emit(context.Background(), e))
	require.Equal([]string{"usdcbridge.l1." + contract.Hex() + ".MessageSent"}, conn.subjects)

	var got Event
	require.NoError(json.Unmarshal(conn.payloads[0], &got))
	require.Equal(e, got)

	conn.err = errors.New("closed")
	require.ErrorIs(p.Emit(context.Background(), e), conn.err)
}

func TestRecorderAndMulti(t *testing.T) {
	require := require.New(t)

	r1, r2 := NewRecorder(), NewRecorder()
	sink := Multi{r1, Discard{}, r2}

	require.NoError(sink.Emit(context.Background(), Event{Name: MessageSent}))
	require.NoError(sink.Emit(context.Background(), Event{Name: BurnAmountSet}))

	require.Len(r1.Events(), 2)
	require.Len(r2.Named(BurnAmountSet), 1)
	require.Empty(r2.Named(LockedUSDCBurned))
}
