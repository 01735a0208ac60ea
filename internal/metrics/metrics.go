package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dex_quotes_total", Help: "Swap quotes computed, by venue and validity"},
		[]string{"venue", "valid"},
	)
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dex_swaps_total", Help: "Swap executions attempted, by venue and outcome"},
		[]string{"venue", "outcome"},
	)
	LiquidityOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dex_liquidity_ops_total", Help: "Liquidity add/remove/collect attempts"},
		[]string{"venue", "op", "outcome"},
	)
	RPCErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dex_rpc_errors_total", Help: "Chain read failures surfaced to callers"},
		[]string{"venue", "op"},
	)
	QuoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "dex_quote_latency_seconds", Help: "Quote round-trip latency", Buckets: prometheus.DefBuckets},
		[]string{"venue"},
	)
)

func init() {
	prometheus.MustRegister(QuotesTotal, SwapsTotal, LiquidityOpsTotal, RPCErrorsTotal, QuoteLatency)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
