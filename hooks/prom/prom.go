// Package promhook exports clustercache events as Prometheus metrics.
package promhook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/clustercache"
)

// Hooks counts reconnects, tag clears and decode failures.
type Hooks struct {
	Reconnects      prometheus.Counter
	ReconnectDelay  prometheus.Histogram
	Exhausted       prometheus.Counter
	Connects        prometheus.Counter
	ConnectAttempts prometheus.Histogram
	TagClears       *prometheus.CounterVec
	TagKeysDeleted  prometheus.Counter
	DecodeFailures  prometheus.Counter
}

var _ clustercache.Hooks = (*Hooks)(nil)

// New creates the metrics under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	h := &Hooks{
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Connect attempts that failed with a reconnect-eligible error and were retried",
		}),
		ReconnectDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay before a reconnect attempt",
			Buckets:   prometheus.DefBuckets,
		}),
		Exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_exhausted_total",
			Help:      "Connect sequences that hit the reconnect ceiling",
		}),
		Connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Successful connect sequences",
		}),
		ConnectAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_attempts",
			Help:      "Dial attempts needed by a successful connect sequence",
			Buckets:   []float64{1, 2, 3, 5, 10, 20},
		}),
		TagClears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_clears_total",
			Help:      "Tag clears by outcome",
		}, []string{"status"}),
		TagKeysDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_keys_deleted_total",
			Help:      "Keys removed by tag clears",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Stored values that could not be decoded",
		}),
	}
	for _, c := range []prometheus.Collector{
		h.Reconnects, h.ReconnectDelay, h.Exhausted, h.Connects,
		h.ConnectAttempts, h.TagClears, h.TagKeysDeleted, h.DecodeFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) ReconnectScheduled(_ int, delay time.Duration, _ error) {
	h.Reconnects.Inc()
	h.ReconnectDelay.Observe(delay.Seconds())
}

func (h *Hooks) ReconnectExhausted(int, error) { h.Exhausted.Inc() }

func (h *Hooks) Connected(attempts int) {
	h.Connects.Inc()
	h.ConnectAttempts.Observe(float64(attempts))
}

func (h *Hooks) TagCleared(_ string, deleted int) {
	h.TagClears.WithLabelValues("ok").Inc()
	h.TagKeysDeleted.Add(float64(deleted))
}

func (h *Hooks) TagClearFailed(string, error) { h.TagClears.WithLabelValues("error").Inc() }

func (h *Hooks) DecodeFailed(string, error) { h.DecodeFailures.Inc() }

// RegisterCounters exposes a driver's read/write counters as counter funcs.
func RegisterCounters(reg prometheus.Registerer, namespace string, c clustercache.Counters) error {
	reads := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reads_total",
		Help:      "Cache reads issued by the driver",
	}, func() float64 { return float64(c.ReadTimes()) })
	writes := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "writes_total",
		Help:      "Cache writes issued by the driver",
	}, func() float64 { return float64(c.WriteTimes()) })
	if err := reg.Register(reads); err != nil {
		return err
	}
	return reg.Register(writes)
}
