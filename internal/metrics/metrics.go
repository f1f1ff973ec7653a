package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "scans_recorded_total", Help: "Attendance records created",
	})
	ScansDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "scans_duplicate_total", Help: "Scans resolved to an existing valid record",
	})
	CertificatesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "certificates_issued_total", Help: "Certificates by final delivery status",
	}, []string{"status"})
	ParticipantsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventdesk", Name: "participants_imported_total", Help: "Participants created via CSV import",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventdesk", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ScansRecorded, ScansDuplicate, CertificatesIssued, ParticipantsImported, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
