// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	messagesSent      *prometheus.CounterVec
	messagesReceived  *prometheus.CounterVec
	inboundRejected   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	strandedCredits   prometheus.Counter
	revertFailures    prometheus.Counter
}

// newMetrics registers the metrics of the adapter at address. A nil
// registerer keeps the metrics unregistered.
func newMetrics(registerer prometheus.Registerer, domain, address string) (*metrics, error) {
	labels := prometheus.Labels{"domain": domain, "adapter": address}
	m := metrics{
		messagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "adapter_messages_sent_count",
				Help:        "Number of messages sent to the linked adapter",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		messagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "adapter_messages_received_count",
				Help:        "Number of messages accepted from the linked adapter",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		inboundRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "adapter_inbound_rejected_count",
				Help:        "Number of inbound calls rejected",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "adapter_status_transition_count",
				Help:        "Number of status transitions",
				ConstLabels: labels,
			},
			[]string{"to"},
		),
		strandedCredits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "adapter_stranded_credit_count",
				Help:        "Number of inbound credits the token rejected",
				ConstLabels: labels,
			},
		),
		revertFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "adapter_revert_failure_count",
				Help:        "Number of token calls that failed while undoing a failed operation",
				ConstLabels: labels,
			},
		),
	}
	if registerer == nil {
		return &m, nil
	}

	for _, c := range []prometheus.Collector{
		m.messagesSent,
		m.messagesReceived,
		m.inboundRejected,
		m.statusTransitions,
		m.strandedCredits,
		m.revertFailures,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return &m, nil
}
