package pipeline

import "github.com/prometheus/client_golang/prometheus"

const (
	resultSuccess = "success"
	resultFailed  = "failed"
)

// Metrics — метрики запусков пайплайна.
type Metrics struct {
	Runs         *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	LastSuccess  prometheus.Gauge
	RowsInserted prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg, если он не nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apod_pipeline_runs_total",
			Help: "Pipeline runs by result.",
		}, []string{"result"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apod_pipeline_step_duration_seconds",
			Help:    "Duration of each pipeline step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apod_pipeline_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apod_pipeline_rows_inserted_total",
			Help: "Rows inserted into apod_data.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Runs, m.StepDuration, m.LastSuccess, m.RowsInserted)
	}
	return m
}
