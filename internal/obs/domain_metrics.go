package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaynetQueryTotal counts outbound gateway queries by operation and outcome.
	PaynetQueryTotal *prometheus.CounterVec
	// PaynetCallbackTotal counts inbound callbacks by kind and result.
	PaynetCallbackTotal *prometheus.CounterVec
	// PaymentStartTotal counts payment creation requests by operation and result.
	PaymentStartTotal *prometheus.CounterVec
	// StatusPollTotal counts status poll rounds run by the worker.
	StatusPollTotal *prometheus.CounterVec
	// CallbackReplayTotal counts callbacks dropped as duplicates.
	CallbackReplayTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaynetQueryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paynet_query_total",
			Help:      "Count of gateway queries by operation and outcome.",
		}, []string{"operation", "outcome"})
		PaynetCallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paynet_callback_total",
			Help:      "Count of processed gateway callbacks by kind and result.",
		}, []string{"kind", "result"})
		PaymentStartTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_start_total",
			Help:      "Count of payment creation requests by operation and result.",
		}, []string{"operation", "result"})
		StatusPollTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paynet_status_poll_total",
			Help:      "Count of status poll rounds by result.",
		}, []string{"result"})
		CallbackReplayTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paynet_callback_replay_total",
			Help:      "Number of gateway callbacks dropped as replays.",
		})

		for _, vec := range []**prometheus.CounterVec{&PaynetQueryTotal, &PaynetCallbackTotal, &PaymentStartTotal, &StatusPollTotal} {
			target := vec
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
		mustRegisterCollector(reg, CallbackReplayTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CallbackReplayTotal = v
			}
		})
	})
}

// PaynetMetrics feeds engine observations into the domain collectors. It is a no-op
// until MustRegisterDomainMetrics has run.
type PaynetMetrics struct{}

func (PaynetMetrics) ObserveQuery(operation, outcome string) {
	if PaynetQueryTotal != nil {
		PaynetQueryTotal.WithLabelValues(operation, outcome).Inc()
	}
}

func (PaynetMetrics) ObserveCallback(kind, result string) {
	if PaynetCallbackTotal != nil {
		PaynetCallbackTotal.WithLabelValues(kind, result).Inc()
	}
}

// IncCounter increments vec when it has been registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec != nil {
		vec.WithLabelValues(labels...).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
