package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Replication metrics
	ReplicationLagMS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drverify_replication_lag_ms",
			Help: "Last observed replication lag per downstream cluster and entity",
		},
		[]string{"cluster", "entity"},
	)

	LagSampleDistribution = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drverify_lag_sample_ms",
			Help:    "Distribution of observed replication lag samples",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"cluster"},
	)

	InitialDelayMS = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drverify_initial_delay_ms",
			Help: "Delay before a newly created entity became visible downstream",
		},
		[]string{"cluster", "entity"},
	)

	// Probe metrics
	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drverify_probe_duration_seconds",
			Help:    "Duration of node status probes by classified state",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	// Scenario metrics
	ScenarioOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drverify_scenario_outcomes_total",
			Help: "Scenario outcomes by name and status",
		},
		[]string{"scenario", "status"},
	)

	ScenarioDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drverify_scenario_duration_seconds",
			Help:    "Wall-clock duration of scenarios",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"scenario"},
	)

	// Workload metrics
	WorkloadRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drverify_workload_rate",
			Help: "Parsed workload driver send/receive rates in messages per second",
		},
		[]string{"direction"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReplicationLagMS)
	prometheus.MustRegister(LagSampleDistribution)
	prometheus.MustRegister(InitialDelayMS)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(ScenarioOutcomes)
	prometheus.MustRegister(ScenarioDuration)
	prometheus.MustRegister(WorkloadRate)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes the metrics endpoint on addr for the duration of a run.
// Errors other than server-closed are reported on the returned channel.
func Serve(addr string) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return srv, errCh
}
