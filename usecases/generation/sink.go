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

package generation

// Artifact is one worker's durable output unit: a whole batch of chunks,
// written by exactly one worker and consumed exactly once afterwards.
type Artifact struct {
	// BatchID is the artifact's stable identifier. No two workers ever
	// own the same BatchID.
	BatchID int

	// Location addresses the artifact within its sink: a file path for
	// the flat-file sink, a batch tag for the transactional store.
	Location string

	// Records is the number of records the owning worker wrote.
	Records int64
}

// ArtifactWriter is the handle a worker holds for the one artifact it
// owns. It must never be shared between workers.
type ArtifactWriter interface {
	// Append durably appends one chunk of records.
	Append(values []float64) error

	// Close finalizes the artifact. No Append may follow.
	Close() error

	// Location addresses the finished artifact, see Artifact.Location.
	Location() string
}

// Sink abstracts the durable store generation workers write through.
type Sink interface {
	// CreateArtifact opens the artifact owned by the worker of the given
	// batch.
	CreateArtifact(batchID int) (ArtifactWriter, error)

	// Count returns the total number of records currently stored.
	Count() (int64, error)
}

// ArtifactRemover is implemented by sinks that can drop a single artifact
// again, used for optional cleanup after an aborted job.
type ArtifactRemover interface {
	RemoveArtifact(batchID int) error
}
