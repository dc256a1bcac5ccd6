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

// Package synth holds the shared value types of the synthetic data
// generation pipeline: generation requests, job statuses and the typed
// errors every layer agrees on.
package synth

// SinkKind selects the durable store a generation job writes through.
type SinkKind string

const (
	// SinkFlatFile writes per-batch artifact files which are merged into a
	// single output file at the end of the job.
	SinkFlatFile SinkKind = "flatfile"

	// SinkSQLite inserts batch-tagged rows into an indexed table and
	// exports them, ordered by insertion, as the final output file.
	SinkSQLite SinkKind = "sqlite"
)

// ModeSampling selects how mode indicators are drawn during generation.
type ModeSampling string

const (
	// ModeSamplingUniform draws mode indices uniformly over the valid
	// components. The generated mixture proportions therefore do not
	// follow the fitted weights.
	ModeSamplingUniform ModeSampling = "uniform"

	// ModeSamplingWeighted draws mode indices proportionally to the
	// fitted component weights.
	ModeSamplingWeighted ModeSampling = "weighted"
)

// SinkDescriptor points a job at its durable store. Path is the database
// file for SinkSQLite and is ignored for SinkFlatFile, where artifacts
// live under the request's TempDir.
type SinkDescriptor struct {
	Kind SinkKind `json:"kind" yaml:"kind"`
	Path string   `json:"path,omitempty" yaml:"path,omitempty"`
}

// Request describes one synthetic data generation job.
type Request struct {
	InputFile  string `json:"input_file" yaml:"input_file"`
	OutputFile string `json:"output_file" yaml:"output_file"`
	TempDir    string `json:"temp_dir" yaml:"temp_dir"`

	// TargetSize is the number of synthetic records asked for. The job
	// generates ceil(TargetSize/ChunkSize) full chunks, so the actual
	// volume may exceed TargetSize by up to ChunkSize-1 records.
	TargetSize int64 `json:"target_size" yaml:"target_size"`

	// SampleSize is the number of rows sampled from the input for fitting.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// ChunkSize and ChunksPerBatch default from the server config when
	// left zero.
	ChunkSize      int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunksPerBatch int `json:"chunks_per_batch,omitempty" yaml:"chunks_per_batch,omitempty"`

	Sink SinkDescriptor `json:"sink" yaml:"sink"`
}

// NumChunks returns ceil(TargetSize/ChunkSize).
func (r *Request) NumChunks() int64 {
	return (r.TargetSize + int64(r.ChunkSize) - 1) / int64(r.ChunkSize)
}

// NumBatches returns ceil(NumChunks/ChunksPerBatch).
func (r *Request) NumBatches() int64 {
	chunks := r.NumChunks()
	return (chunks + int64(r.ChunksPerBatch) - 1) / int64(r.ChunksPerBatch)
}

// Validate fails fast on malformed requests, before any generation work
// starts or any artifact is created.
func (r *Request) Validate() error {
	if r.InputFile == "" {
		return NewValidationErrorf("input_file must be set")
	}
	if r.OutputFile == "" {
		return NewValidationErrorf("output_file must be set")
	}
	if r.TargetSize <= 0 {
		return NewValidationErrorf("target_size must be positive, got %d", r.TargetSize)
	}
	if r.SampleSize <= 0 {
		return NewValidationErrorf("sample_size must be positive, got %d", r.SampleSize)
	}
	if r.ChunkSize <= 0 {
		return NewValidationErrorf("chunk_size must be positive, got %d", r.ChunkSize)
	}
	if r.ChunksPerBatch <= 0 {
		return NewValidationErrorf("chunks_per_batch must be positive, got %d", r.ChunksPerBatch)
	}
	switch r.Sink.Kind {
	case SinkFlatFile:
		if r.TempDir == "" {
			return NewValidationErrorf("temp_dir must be set for the flat-file sink")
		}
	case SinkSQLite:
		if r.Sink.Path == "" {
			return NewValidationErrorf("sink.path must be set for the sqlite sink")
		}
	default:
		return NewValidationErrorf("unknown sink kind %q", r.Sink.Kind)
	}
	return nil
}

// JobState is the lifecycle state reported to the API consumer.
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// JobStatus is the externally visible status of a submitted job.
type JobStatus struct {
	ID             string   `json:"job_id"`
	State          JobState `json:"status"`
	OutputLocation string   `json:"output_location,omitempty"`
	ElapsedSeconds float64  `json:"elapsed_seconds,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}
