//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics covers the generation and merge pipeline. All observer
// methods are safe to call on a nil receiver, so components can run
// unmetered (e.g. in tests) without nil checks at every call site.
type PrometheusMetrics struct {
	JobsActive       prometheus.Gauge
	JobDuration      *prometheus.HistogramVec
	ChunksGenerated  prometheus.Counter
	RecordsGenerated prometheus.Counter
	BatchDuration    prometheus.Histogram
	ArtifactsMerged  prometheus.Counter
	MergeBytesRead   prometheus.Counter
	MergeBytes       prometheus.Counter
	MergeDuration    prometheus.Histogram
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		JobsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "syngen_jobs_active",
			Help: "Number of generation jobs currently running",
		}),
		JobDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "syngen_job_duration_seconds",
			Help:    "End-to-end duration of generation jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 16),
		}, []string{"sink", "status"}),
		ChunksGenerated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "syngen_chunks_generated_total",
			Help: "Total number of synthetic chunks generated",
		}),
		RecordsGenerated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "syngen_records_generated_total",
			Help: "Total number of synthetic records generated",
		}),
		BatchDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "syngen_batch_duration_seconds",
			Help:    "Duration of a single worker batch in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
		ArtifactsMerged: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "syngen_artifacts_merged_total",
			Help: "Total number of artifacts consumed by the merge stage",
		}),
		MergeBytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "syngen_merge_bytes_read_total",
			Help: "Total bytes read from per-batch artifacts by the merge stage",
		}),
		MergeBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "syngen_merge_bytes_written_total",
			Help: "Total bytes written to final artifacts by the merge stage",
		}),
		MergeDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "syngen_merge_duration_seconds",
			Help:    "Duration of the merge stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
	}
}

// StartJob moves a job into the active gauge.
func (pm *PrometheusMetrics) StartJob() {
	if pm == nil {
		return
	}

	pm.JobsActive.Inc()
}

// FinishJob moves a job out of the active gauge and records its duration.
func (pm *PrometheusMetrics) FinishJob(sink, status string, seconds float64) {
	if pm == nil {
		return
	}

	pm.JobsActive.Dec()
	pm.JobDuration.With(prometheus.Labels{"sink": sink, "status": status}).
		Observe(seconds)
}

// ObserveChunk records one generated chunk of the given record count.
func (pm *PrometheusMetrics) ObserveChunk(records int) {
	if pm == nil {
		return
	}

	pm.ChunksGenerated.Inc()
	pm.RecordsGenerated.Add(float64(records))
}

// ObserveBatch records the wall-clock duration of one worker batch.
func (pm *PrometheusMetrics) ObserveBatch(seconds float64) {
	if pm == nil {
		return
	}

	pm.BatchDuration.Observe(seconds)
}

// ObserveArtifactMerged records one fully consumed artifact.
func (pm *PrometheusMetrics) ObserveArtifactMerged() {
	if pm == nil {
		return
	}

	pm.ArtifactsMerged.Inc()
}

// AddMergeBytesRead records bytes read from a per-batch artifact.
func (pm *PrometheusMetrics) AddMergeBytesRead(n int64) {
	if pm == nil {
		return
	}

	pm.MergeBytesRead.Add(float64(n))
}

// AddMergeBytes records bytes written to the final artifact.
func (pm *PrometheusMetrics) AddMergeBytes(n int64) {
	if pm == nil {
		return
	}

	pm.MergeBytes.Add(float64(n))
}

// ObserveMerge records the duration of a completed merge stage.
func (pm *PrometheusMetrics) ObserveMerge(seconds float64) {
	if pm == nil {
		return
	}

	pm.MergeDuration.Observe(seconds)
}
