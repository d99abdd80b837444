// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package events carries the observable events of the bridge contracts to
// whoever is watching: an in-memory recorder or a NATS subject tree.
package events

import (
	"context"
	"sync"

	"github.com/luxfi/geth/common"
)

// Event names.
const (
	MessageSent            = "MessageSent"
	MessageReceived        = "MessageReceived"
	MessagingStopped       = "MessagingStopped"
	MessagingResumed       = "MessagingResumed"
	MigratingToNative      = "MigratingToNative"
	BurnAmountSet          = "BurnAmountSet"
	LockedUSDCBurned       = "LockedUSDCBurned"
	RolesTransferred       = "USDCRolesTransferred"
	USDCCommandSent        = "USDCCommandSent"
	USDCCommandExecuted    = "USDCCommandExecuted"
	FundsStranded          = "FundsStranded"
	StrandedFundsWithdrawn = "StrandedFundsWithdrawn"
	StrandedFundsReturned  = "StrandedFundsReturned"
	PairDeployed           = "PairDeployed"
	L2Deployed             = "L2Deployed"
)

// Event is a single contract event.
type Event struct {
	Domain   string            `json:"domain"`
	Contract common.Address    `json:"contract"`
	Name     string            `json:"name"`
	Time     uint64            `json:"time"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Sink receives events. Emitting never affects contract state.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events called name, in emission order.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans an event out to several sinks, returning the first error.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
