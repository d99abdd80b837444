// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type RelayerMetrics struct {
	successfulRelayMessageCount *prometheus.CounterVec
	relayMessageLatencyMS       *prometheus.GaugeVec
	failedRelayMessageCount     *prometheus.CounterVec
	authorizationCount          *prometheus.CounterVec
	signerRecoveryCount         prometheus.Counter
}

// NewRelayerMetrics creates the relayer metrics and registers them on
// registerer, if any.
func NewRelayerMetrics(registerer prometheus.Registerer) *RelayerMetrics {
	m := RelayerMetrics{
		successfulRelayMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_relay_message_count",
				Help: "Number of envelopes that relayed successfully",
			},
			[]string{"source_domain", "destination_domain"},
		),
		relayMessageLatencyMS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relay_message_latency_ms",
				Help: "Latency of relaying an envelope in milliseconds",
			},
			[]string{"source_domain", "destination_domain"},
		),
		failedRelayMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_relay_message_count",
				Help: "Number of envelopes that failed to relay",
			},
			[]string{"source_domain", "destination_domain", "failure_reason"},
		),
		authorizationCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorization_count",
				Help: "Number of signed authorizations handled, by result",
			},
			[]string{"result"},
		),
		signerRecoveryCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signer_recovery_count",
				Help: "Number of signers recovered outside the signer cache",
			},
		),
	}
	if registerer == nil {
		return &m
	}

	registerer.MustRegister(m.successfulRelayMessageCount)
	registerer.MustRegister(m.relayMessageLatencyMS)
	registerer.MustRegister(m.failedRelayMessageCount)
	registerer.MustRegister(m.authorizationCount)
	registerer.MustRegister(m.signerRecoveryCount)

	return &m
}
