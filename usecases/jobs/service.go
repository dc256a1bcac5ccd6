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

// Package jobs runs generation requests end to end and tracks their
// externally visible status.
package jobs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/weaviate/syngen/adapters/repos/flatfile"
	"github.com/weaviate/syngen/adapters/repos/sqlite"
	"github.com/weaviate/syngen/entities/flatcsv"
	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/config"
	"github.com/weaviate/syngen/usecases/generation"
	"github.com/weaviate/syngen/usecases/loader"
	"github.com/weaviate/syngen/usecases/merging"
	"github.com/weaviate/syngen/usecases/monitoring"
	"github.com/weaviate/syngen/usecases/vgm"
)

// Service executes one generation request: load and sample the input, fit
// the mixture, fan out chunked generation, then merge or export the final
// artifact.
type Service struct {
	cfg     config.Config
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics
}

func NewService(cfg config.Config, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Service {
	return &Service{cfg: cfg, logger: logger, metrics: metrics}
}

// Normalize fills a request's zero-valued tuning fields from the server
// config.
func (s *Service) Normalize(req *synth.Request) {
	if req.ChunkSize == 0 {
		req.ChunkSize = s.cfg.Generation.ChunkSize
	}
	if req.ChunksPerBatch == 0 {
		req.ChunksPerBatch = s.cfg.Generation.ChunksPerBatch
	}
	if req.Sink.Kind == "" {
		req.Sink.Kind = synth.SinkFlatFile
	}
}

// Run executes the request and returns the elapsed seconds. Validation and
// fitting errors surface before any generation work starts; during
// generation the first worker failure aborts the job.
func (s *Service) Run(ctx context.Context, req *synth.Request) (float64, error) {
	start := time.Now()

	s.Normalize(req)
	if err := req.Validate(); err != nil {
		return 0, err
	}

	if dir := filepath.Dir(req.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Wrapf(err, "create output dir %q", dir)
		}
	}

	model, columnValues, err := s.fitModel(req)
	if err != nil {
		return 0, err
	}

	orchestrator := generation.NewOrchestrator(generation.Options{
		Workers:          s.cfg.Generation.Workers,
		Seed:             s.cfg.Generation.Seed,
		ModeSampling:     s.cfg.Generation.ModeSampling,
		CleanupOnFailure: s.cfg.Generation.CleanupOnFailure,
	}, s.logger, s.metrics)

	switch req.Sink.Kind {
	case synth.SinkFlatFile:
		err = s.runFlatFile(ctx, req, orchestrator, model)
	case synth.SinkSQLite:
		err = s.runSQLite(ctx, req, orchestrator, model, columnValues)
	}
	if err != nil {
		return 0, err
	}

	elapsed := time.Since(start).Seconds()
	s.logger.WithFields(logrus.Fields{
		"action":  "job_done",
		"output":  req.OutputFile,
		"elapsed": elapsed,
	}).Info("generation job completed")

	return elapsed, nil
}

// fitModel loads the input column, draws the fitting sample and fits the
// mixture. All failures here happen before a single artifact exists.
func (s *Service) fitModel(req *synth.Request) (*vgm.VGM, []float64, error) {
	l := loader.New(s.logger)

	columnValues, err := l.LoadColumn(req.InputFile, flatcsv.Header)
	if err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewSource(uint64(s.cfg.Generation.Seed)))
	sample, err := l.Sample(columnValues, req.SampleSize, rng)
	if err != nil {
		return nil, nil, err
	}

	model := vgm.New(vgm.Options{
		ComponentCount: s.cfg.Generation.ComponentCount,
		Epsilon:        s.cfg.Generation.Epsilon,
	}, s.logger)
	if err := model.Fit(sample); err != nil {
		return nil, nil, err
	}

	return model, columnValues, nil
}

func (s *Service) runFlatFile(ctx context.Context, req *synth.Request,
	orchestrator *generation.Orchestrator, model *vgm.VGM,
) error {
	store, err := flatfile.NewStore(req.TempDir, req.OutputFile,
		s.cfg.Merge.TransferBufferBytes, s.logger)
	if err != nil {
		return err
	}

	artifacts, err := orchestrator.Run(ctx, req, model, store)
	if err != nil {
		return err
	}
	s.logSyntheticCount(store)

	merger := merging.NewMerger(merging.Options{
		TransferBufferBytes: s.cfg.Merge.TransferBufferBytes,
		FlushBatchSize:      s.cfg.Merge.FlushBatchSize,
	}, s.logger, s.metrics)

	return merger.Merge(artifacts, req.OutputFile, req.TempDir)
}

func (s *Service) runSQLite(ctx context.Context, req *synth.Request,
	orchestrator *generation.Orchestrator, model *vgm.VGM, columnValues []float64,
) error {
	store, err := sqlite.New(req.Sink.Path, s.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.IngestOriginal(columnValues); err != nil {
		return err
	}

	if _, err := orchestrator.Run(ctx, req, model, store); err != nil {
		return err
	}
	s.logSyntheticCount(store)

	return store.ExportTo(req.OutputFile, s.cfg.Merge.TransferBufferBytes)
}

// logSyntheticCount reports the sink's record count once generation is done,
// before the final artifact is materialized. Best effort: a count failure
// must not fail an otherwise healthy job.
func (s *Service) logSyntheticCount(sink generation.Sink) {
	count, err := sink.Count()
	if err != nil {
		s.logger.WithError(err).Warn("could not count synthetic records")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "synthetic_count",
		"records": count,
	}).Info("synthetic records written")
}
