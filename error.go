// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import "fmt"

// Error codes of the adapter error taxonomy.
const (
	CodeUnauthorized int32 = iota + 1
	CodeInvalidStatus
	CodeExpiredOrReplayed
	CodeInvalidAmount
	CodeAlreadyFinal
)

// Error represents a bridge error
type Error struct {
	Code    int32
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

var (
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidStatus     = &Error{Code: CodeInvalidStatus, Message: "invalid status"}
	ErrExpiredOrReplayed = &Error{Code: CodeExpiredOrReplayed, Message: "expired or replayed"}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrAlreadyFinal      = &Error{Code: CodeAlreadyFinal, Message: "already final"}

	ErrSignatureExpired  = fmt.Errorf("%w: signature expired", ErrExpiredOrReplayed)
	ErrInvalidNonce      = fmt.Errorf("%w: invalid nonce", ErrExpiredOrReplayed)
	ErrInvalidSignature  = fmt.Errorf("%w: invalid signature", ErrExpiredOrReplayed)
	ErrInvalidRecipient  = fmt.Errorf("%w: invalid recipient", ErrInvalidAmount)
	ErrInvalidAddress    = fmt.Errorf("%w: zero address", ErrInvalidAmount)
	ErrNotLinkedAdapter  = fmt.Errorf("%w: sender is not the linked adapter", ErrUnauthorized)
	ErrNotOwner          = fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)
	ErrMessagingDisabled = fmt.Errorf("%w: messaging disabled", ErrInvalidStatus)
)
