// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luxfi/log"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the root of every published subject.
const SubjectPrefix = "usdcbridge"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

// Publisher publishes events as JSON on
// usdcbridge.<domain>.<contract>.<event>.
type Publisher struct {
	log  log.Logger
	conn Conn
}

// NewPublisher creates a publisher on an existing connection
func NewPublisher(logger log.Logger, conn Conn) *Publisher {
	return &Publisher{log: logger, conn: conn}
}

// Connect dials the NATS server at url and returns a publisher on it along
// with the connection so the caller can drain it on shutdown.
func Connect(logger log.Logger, url string, timeout time.Duration) (*Publisher, *nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("usdcbridge"),
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", log.Err(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", log.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return NewPublisher(logger, conn), conn, nil
}

// Subject returns the subject e is published on.
func Subject(e Event) string {
	return strings.Join([]string{SubjectPrefix, e.Domain, e.Contract.Hex(), e.Name}, ".")
}

func (p *Publisher) Emit(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", e.Name, err)
	}
	subject := Subject(e)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.log.Debug("published event", log.String("subject", subject))
	return nil
}
