// Package metrics exposes the Prometheus counters of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locker_auth_transitions_total",
		Help: "Auth sessions that reached a phase, by flow.",
	}, []string{"flow", "phase"})

	Claims = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locker_claims_total",
		Help: "Locker claim attempts by result.",
	}, []string{"result"})

	MailSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locker_mail_sent_total",
		Help: "Mail deliveries by backend and result.",
	}, []string{"backend", "result"})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		AuthTransitions,
		Claims,
		MailSent,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Result labels a counter with ok or error.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
