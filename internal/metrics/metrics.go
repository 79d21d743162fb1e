package metrics

import (
    "errors"
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog/log"
)

var (
    selections = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pdfassembler",
            Name:      "selections_total",
            Help:      "Add-file attempts by result (added, cancelled, unreadable, rejected)",
        },
        []string{"result"},
    )

    merges = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pdfassembler",
            Name:      "merges_total",
            Help:      "Merge attempts by result (success or assembly error kind)",
        },
        []string{"result"},
    )

    pagesMerged = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "pdfassembler",
            Name:      "pages_merged_total",
            Help:      "Pages written to merged output documents",
        },
    )

    renderLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "pdfassembler",
            Name:      "thumbnail_render_duration_seconds",
            Help:      "Duration of preview pair rendering by result",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"result"},
    )

    registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    registerOnce.Do(func() {
        prometheus.MustRegister(selections, merges, pagesMerged, renderLatency)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// Serve exposes /metrics on addr in the background. An empty addr disables it.
func Serve(addr string) *http.Server {
    if addr == "" { return nil }
    mux := http.NewServeMux()
    mux.Handle("/metrics", Handler())
    srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    go func() {
        log.Info().Str("addr", addr).Msg("metrics listener started")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Error().Err(err).Msg("metrics listener stopped")
        }
    }()
    return srv
}

func IncSelection(result string) { selections.WithLabelValues(result).Inc() }
func IncMerge(result string)     { merges.WithLabelValues(result).Inc() }
func AddPagesMerged(n int)       { pagesMerged.Add(float64(n)) }

func ObserveRender(result string, dur time.Duration) {
    renderLatency.WithLabelValues(result).Observe(dur.Seconds())
}
