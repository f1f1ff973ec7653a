package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "job_runs_total", Help: "Periodic job runs",
	}, []string{"job"})
	jobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "job_errors_total", Help: "Periodic job failures",
	}, []string{"job"})
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventdesk", Name: "job_duration_seconds", Help: "Periodic job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration)
}
