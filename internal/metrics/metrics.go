// Package metrics registers the prometheus collectors for the attendance
// pipeline, served by the agent's /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Submissions counts attendance submissions by direction and outcome.
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitesync_submissions_total",
		Help: "Attendance submissions by direction and outcome.",
	}, []string{"direction", "outcome"})

	// FaceMatches counts recognition calls by outcome.
	FaceMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitesync_face_match_total",
		Help: "Face recognition calls by outcome.",
	}, []string{"outcome"})

	// RecordMutations counts approve/delete actions by action and outcome.
	RecordMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitesync_record_mutations_total",
		Help: "Attendance record mutations by action and outcome.",
	}, []string{"action", "outcome"})

	// BackendDuration observes backend request latency per endpoint.
	BackendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitesync_backend_request_seconds",
		Help:    "Backend request duration by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(Submissions, FaceMatches, RecordMutations, BackendDuration)
}
