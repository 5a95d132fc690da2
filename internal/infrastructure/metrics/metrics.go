package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
)

const namespace = "trackcounters"

// Recorder collects the outcome of backfill runs in a private registry.
// A batch job cannot be scraped, so the registry is written out with
// WriteTextfile for the node exporter textfile collector.
type Recorder struct {
	registry *prometheus.Registry

	tracksTotal   prometheus.Counter
	countersAdded *prometheus.CounterVec
	tracksChanged prometheus.Counter
	failures      prometheus.Counter
	duration      prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New creates a recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tracksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_processed_total",
			Help:      "Number of track records visited by the backfill",
		}),
		countersAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counters_added_total",
			Help:      "Number of missing counter fields filled with the default",
		}, []string{"field"}),
		tracksChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_changed_total",
			Help:      "Number of track records that received at least one counter",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Number of backfill runs that aborted with an error",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last backfill run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful backfill run",
		}),
	}

	r.registry.MustRegister(
		r.tracksTotal,
		r.countersAdded,
		r.tracksChanged,
		r.failures,
		r.duration,
		r.lastSuccess,
	)

	// both label values exist from the start so a zero shows up in the output
	r.countersAdded.WithLabelValues(entities.FieldLikes)
	r.countersAdded.WithLabelValues(entities.FieldDislikes)

	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records one finished run. A nil report with a non-nil error is
// counted as a failure.
func (r *Recorder) ObserveRun(report *entities.BackfillReport, elapsed time.Duration, err error) {
	r.duration.Set(elapsed.Seconds())

	if err != nil {
		r.failures.Inc()
		return
	}

	if report != nil {
		r.tracksTotal.Add(float64(report.TotalTracks))
		r.tracksChanged.Add(float64(report.TracksChanged))
		r.countersAdded.WithLabelValues(entities.FieldLikes).Add(float64(report.LikesAdded))
		r.countersAdded.WithLabelValues(entities.FieldDislikes).Add(float64(report.DislikesAdded))
	}
	r.lastSuccess.SetToCurrentTime()
}

// WriteTextfile dumps the registry in text exposition format to path
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
