package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ucell/log-analyzer/model"
)

// Registry holds the analyzer collectors only, so textfile output is not
// mixed with Go runtime metrics.
var Registry = prometheus.NewRegistry()

var (
	LinesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_lines_total",
			Help: "Log lines read, by parse result",
		},
		[]string{"result"},
	)

	ResponseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyzer_response_time_seconds",
			Help:    "Response time of parsed requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)

	SummaryStat = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analyzer_summary",
			Help: "Summary statistics of the last analyzed scenario",
		},
		[]string{"label", "stat"},
	)

	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_store_duration_seconds",
			Help:    "Duration of summary storage writes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(LinesRead)
	Registry.MustRegister(ResponseTime)
	Registry.MustRegister(SummaryStat)
	Registry.MustRegister(StoreDuration)
}

// ObserveSummary publishes s under label.
func ObserveSummary(label string, s model.Summary) {
	SummaryStat.WithLabelValues(label, "total").Set(float64(s.Total))
	SummaryStat.WithLabelValues(label, "errors").Set(float64(s.Errors))
	SummaryStat.WithLabelValues(label, "error_pct").Set(s.ErrorPct)
	SummaryStat.WithLabelValues(label, "avg").Set(s.Avg)
	SummaryStat.WithLabelValues(label, "p50").Set(s.P50)
	SummaryStat.WithLabelValues(label, "p90").Set(s.P90)
	SummaryStat.WithLabelValues(label, "p99").Set(s.P99)
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
