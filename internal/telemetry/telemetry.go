// Package telemetry exposes Prometheus counters for the event pipeline and
// an optional /metrics listener.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Events = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emojistats_gateway_events_total",
		Help: "Gateway events handled",
	})
	EmojiUses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emojistats_emoji_uses_total",
		Help: "Emoji occurrences recorded from messages",
	})
	Reactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emojistats_reactions_total",
		Help: "Reaction rows recorded",
	})
	Commands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emojistats_commands_total",
		Help: "Commands dispatched",
	})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emojistats_store_errors_total",
		Help: "Store operations that returned an error",
	})
)

// Serve starts a /metrics listener on addr. It blocks, so run it in its own
// goroutine; an empty addr disables it.
func Serve(addr string, log *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics listener stopped", zap.Error(err))
	}
}
