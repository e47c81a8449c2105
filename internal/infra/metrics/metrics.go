package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Incoming Telegram updates by kind",
	}, []string{"kind"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Dispatched commands by name",
	}, []string{"command"})

	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_handler_errors_total",
		Help: "Handler errors caught at the dispatch boundary",
	}, []string{"command"})

	BroadcastSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_messages_total",
		Help: "Broadcast deliveries by outcome",
	}, []string{"outcome"})

	CronRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_runs_total",
		Help: "Cron job executions by outcome",
	}, []string{"job", "outcome"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Duration of outbound network requests",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Count of outbound network requests",
	}, []string{"component", "operation", "status"})
)

// MustRegister registers all collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpdatesTotal,
		CommandsTotal,
		HandlerErrors,
		BroadcastSent,
		CronRunsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest records one outbound call. Wrap every external API call with it.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}
