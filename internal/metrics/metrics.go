package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polybot_cycles_total", Help: "Polling cycles by outcome"},
		[]string{"token", "outcome"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polybot_fetch_errors_total", Help: "Order book fetch failures by class"},
		[]string{"token", "kind"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "polybot_paper_fills_total", Help: "Paper fill attempts"},
		[]string{"token", "side", "result"},
	)
	MidPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "polybot_mid_price", Help: "Last observed mid price"},
		[]string{"token"},
	)
	Spread = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "polybot_spread", Help: "Last observed spread"},
		[]string{"token"},
	)
	NAV = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "polybot_paper_nav", Help: "Paper account mark-to-market value"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, FetchErrorsTotal, FillsTotal, MidPrice, Spread, NAV)
}

// Serve exposes /metrics on addr in the background; an empty addr disables it.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
