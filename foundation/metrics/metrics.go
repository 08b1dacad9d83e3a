// Package metrics holds the prometheus collectors of the node. They are
// registered with the default registry and served on the debug mux.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "goldchain"

// Chain collectors.
var (
	ChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "height",
		Help:      "Height of the last committed block.",
	})

	BlocksAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "blocks_appended_total",
		Help:      "Blocks committed to storage.",
	})

	BlocksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "blocks_rejected_total",
		Help:      "Blocks rejected by validation or storage, by reason.",
	}, []string{"reason"})

	Txs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "txs_total",
		Help:      "Submitted transactions by result.",
	}, []string{"result"})

	MempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "mempool_size",
		Help:      "Transactions waiting to be minted.",
	})
)

// Peer collectors.
var (
	PeerConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "connections",
		Help:      "Open peer connections.",
	})

	PeerSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "subscribers",
		Help:      "Connections subscribed to new blocks.",
	})

	PeerClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "closed_total",
		Help:      "Closed peer connections by cause.",
	}, []string{"cause"})

	PeerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "pushes_dropped_total",
		Help:      "Subscription pushes dropped because the send queue was full.",
	})

	PeerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "messages_total",
		Help:      "Inbound peer messages by body kind.",
	}, []string{"kind"})
)

// Web collectors.
var (
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "requests_total",
		Help:      "Handled http requests by method and status.",
	}, []string{"method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "request_duration_seconds",
		Help:      "Http request duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"method"})

	Errors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "errors_total",
		Help:      "Http requests that returned an error.",
	})

	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "panics_total",
		Help:      "Http handlers that panicked.",
	})
)
