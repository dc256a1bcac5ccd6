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

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	enterrors "github.com/weaviate/syngen/entities/errors"
	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/monitoring"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
	StateWaiting     State = "waiting"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// batchSeedStride decorrelates per-worker RNG streams derived from the
// same job seed.
const batchSeedStride = 0x9E3779B97F4A7C15

// Options configure an Orchestrator.
type Options struct {
	// Workers bounds the pool. Zero means one worker per logical CPU.
	Workers int

	// Seed is the job seed; each batch derives its own RNG stream from it.
	Seed int64

	// ModeSampling is passed through to every chunk generation call.
	ModeSampling synth.ModeSampling

	// CleanupOnFailure removes already-written artifacts when the job
	// aborts. Off by default: leftover artifacts are diagnostic residue.
	CleanupOnFailure bool
}

// Orchestrator partitions a target record count into chunks and batches
// and fans the batches out over a bounded worker pool. Every batch is
// owned by exactly one worker which writes one artifact; the first worker
// failure aborts the whole job.
type Orchestrator struct {
	opts    Options
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	mu    sync.Mutex
	state State
}

func NewOrchestrator(opts Options, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ModeSampling == "" {
		opts.ModeSampling = synth.ModeSamplingUniform
	}

	return &Orchestrator{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run generates ceil(TargetSize/ChunkSize) full chunks through the sink
// and returns the artifacts ordered by batch index, never by completion
// order. The total record count is NumChunks*ChunkSize, which may exceed
// TargetSize by up to ChunkSize-1 records.
func (o *Orchestrator) Run(ctx context.Context, req *synth.Request,
	model Model, sink Sink,
) ([]Artifact, error) {
	numChunks := req.NumChunks()
	numBatches := req.NumBatches()

	o.transition(StateDispatching)
	o.logger.WithFields(logrus.Fields{
		"action":      "generation_dispatch",
		"target_size": req.TargetSize,
		"chunk_size":  req.ChunkSize,
		"num_chunks":  numChunks,
		"num_batches": numBatches,
		"workers":     o.opts.Workers,
	}).Info("dispatching generation batches")

	artifacts := make([]Artifact, numBatches)

	eg, gctx := enterrors.NewErrorGroupWithContextWrapper(o.logger, ctx)
	eg.SetLimit(o.opts.Workers)

	for b := int64(0); b < numBatches; b++ {
		batchID := int(b)
		chunksInBatch := int64(req.ChunksPerBatch)
		if remaining := numChunks - b*int64(req.ChunksPerBatch); remaining < chunksInBatch {
			chunksInBatch = remaining
		}

		eg.Go(func() error {
			artifact, err := o.runBatch(gctx, batchID, int(chunksInBatch), req.ChunkSize, model, sink)
			if err != nil {
				return errors.Wrapf(err, "batch %d", batchID)
			}

			// each slot has exactly one writer, no lock needed
			artifacts[batchID] = artifact
			return nil
		})
	}

	o.transition(StateWaiting)
	if err := eg.Wait(); err != nil {
		o.transition(StateFailed)
		if o.opts.CleanupOnFailure {
			o.removeArtifacts(sink, int(numBatches))
		}
		return nil, err
	}

	o.transition(StateCompleted)
	return artifacts, nil
}

// runBatch is one work unit: it generates chunksInBatch chunks
// sequentially and writes them through the sink into the single artifact
// this worker owns.
func (o *Orchestrator) runBatch(ctx context.Context, batchID, chunksInBatch,
	chunkSize int, model Model, sink Sink,
) (Artifact, error) {
	start := time.Now()

	writer, err := sink.CreateArtifact(batchID)
	if err != nil {
		return Artifact{}, errors.Wrap(err, "create artifact")
	}

	rng := rand.New(rand.NewSource(uint64(o.opts.Seed) + uint64(batchID)*batchSeedStride))

	var records int64
	for c := 0; c < chunksInBatch; c++ {
		if err := ctx.Err(); err != nil {
			writer.Close()
			return Artifact{}, err
		}

		values, err := GenerateChunk(chunkSize, model, o.opts.ModeSampling, rng)
		if err != nil {
			writer.Close()
			return Artifact{}, errors.Wrapf(err, "generate chunk %d", c)
		}

		if err := writer.Append(values); err != nil {
			writer.Close()
			return Artifact{}, errors.Wrapf(err, "append chunk %d", c)
		}

		records += int64(len(values))
		o.metrics.ObserveChunk(len(values))
	}

	if err := writer.Close(); err != nil {
		return Artifact{}, errors.Wrap(err, "close artifact")
	}

	o.metrics.ObserveBatch(time.Since(start).Seconds())
	o.logger.WithFields(logrus.Fields{
		"action":   "generation_batch_done",
		"batch_id": batchID,
		"records":  records,
		"took":     time.Since(start),
	}).Debug("batch written")

	return Artifact{
		BatchID:  batchID,
		Location: writer.Location(),
		Records:  records,
	}, nil
}

// removeArtifacts best-effort drops everything sibling workers already
// wrote. Errors are logged, not returned: the job error stays the primary
// failure.
func (o *Orchestrator) removeArtifacts(sink Sink, numBatches int) {
	remover, ok := sink.(ArtifactRemover)
	if !ok {
		return
	}

	for b := 0; b < numBatches; b++ {
		if err := remover.RemoveArtifact(b); err != nil {
			o.logger.WithField("batch_id", b).
				WithError(err).
				Warn("could not remove artifact of aborted job")
		}
	}
}
