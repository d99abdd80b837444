// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err    error
		parent *Error
		code   int32
	}{
		{ErrSignatureExpired, ErrExpiredOrReplayed, CodeExpiredOrReplayed},
		{ErrInvalidNonce, ErrExpiredOrReplayed, CodeExpiredOrReplayed},
		{ErrInvalidSignature, ErrExpiredOrReplayed, CodeExpiredOrReplayed},
		{ErrInvalidRecipient, ErrInvalidAmount, CodeInvalidAmount},
		{ErrInvalidAddress, ErrInvalidAmount, CodeInvalidAmount},
		{ErrNotLinkedAdapter, ErrUnauthorized, CodeUnauthorized},
		{ErrNotOwner, ErrUnauthorized, CodeUnauthorized},
		{ErrMessagingDisabled, ErrInvalidStatus, CodeInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.parent)

			var bridgeErr *Error
			require.True(t, errors.As(tt.err, &bridgeErr))
			require.Equal(t, tt.code, bridgeErr.Code)
		})
	}

	// refinements of the same kind stay distinguishable
	require.NotErrorIs(t, ErrInvalidNonce, ErrSignatureExpired)
	require.NotErrorIs(t, ErrNotOwner, ErrNotLinkedAdapter)
}
