// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package usdcbridge

import "fmt"

// Status is the lifecycle of the L1 adapter.
type Status uint8

const (
	StatusActive Status = iota
	StatusPaused
	StatusUpgrading
	StatusDeprecated
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusUpgrading:
		return "upgrading"
	case StatusDeprecated:
		return "deprecated"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusUpgrading, StatusDeprecated:
		return true
	default:
		return false
	}
}

// Event is a lifecycle event applied to a Status.
type Event uint8

const (
	EventStopMessaging Event = iota
	EventResumeMessaging
	EventMigrateToNative
	EventSetBurnAmount
)

func (e Event) String() string {
	switch e {
	case EventStopMessaging:
		return "stopMessaging"
	case EventResumeMessaging:
		return "resumeMessaging"
	case EventMigrateToNative:
		return "migrateToNative"
	case EventSetBurnAmount:
		return "setBurnAmount"
	default:
		return "unknown"
	}
}

// Transition returns the status reached by applying e to s. Every status is
// handled explicitly; adding a new status means revisiting each case.
func (s Status) Transition(e Event) (Status, error) {
	switch s {
	case StatusActive:
		switch e {
		case EventStopMessaging:
			return StatusPaused, nil
		case EventMigrateToNative:
			return StatusUpgrading, nil
		case EventResumeMessaging, EventSetBurnAmount:
			return s, invalidTransition(s, e)
		}
	case StatusPaused:
		switch e {
		case EventResumeMessaging:
			return StatusActive, nil
		case EventStopMessaging, EventMigrateToNative, EventSetBurnAmount:
			return s, invalidTransition(s, e)
		}
	case StatusUpgrading:
		switch e {
		case EventMigrateToNative:
			// re-issuing the handshake keeps the adapter upgrading
			return StatusUpgrading, nil
		case EventSetBurnAmount:
			return StatusDeprecated, nil
		case EventStopMessaging, EventResumeMessaging:
			return s, invalidTransition(s, e)
		}
	case StatusDeprecated:
		switch e {
		case EventStopMessaging, EventResumeMessaging, EventMigrateToNative, EventSetBurnAmount:
			return s, invalidTransition(s, e)
		}
	}
	return s, fmt.Errorf("%w: unknown status %d or event %d", ErrInvalidStatus, s, e)
}

// CanSend reports whether outbound value transfers are allowed in s.
func (s Status) CanSend() bool {
	switch s {
	case StatusActive:
		return true
	case StatusPaused, StatusUpgrading, StatusDeprecated:
		return false
	}
	return false
}

func invalidTransition(s Status, e Event) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidStatus, e, s)
}
