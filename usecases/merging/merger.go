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

// Package merging assembles the per-worker artifact files into one final
// flat-file artifact under bounded memory.
package merging

import (
	"bufio"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/syngen/entities/diskio"
	"github.com/weaviate/syngen/entities/flatcsv"
	"github.com/weaviate/syngen/usecases/generation"
)

// Options tune the merge stage.
type Options struct {
	// TransferBufferBytes bounds the copy buffer and with it the peak
	// memory of the merge, regardless of artifact size.
	TransferBufferBytes int

	// FlushBatchSize is the number of artifacts consumed between explicit
	// flushes of the final artifact, which also paces progress logging.
	FlushBatchSize int
}

// Merger streams artifacts, strictly in batch-index order, into a single
// final artifact. It is single-threaded by design: the final artifact has
// exactly one writer for the lifetime of the merge.
type Merger struct {
	opts    Options
	logger  logrus.FieldLogger
	metrics metricsObserver
}

// metricsObserver is the slice of the monitoring surface the merger needs.
type metricsObserver interface {
	ObserveArtifactMerged()
	AddMergeBytesRead(n int64)
	AddMergeBytes(n int64)
	ObserveMerge(seconds float64)
}

func NewMerger(opts Options, logger logrus.FieldLogger, metrics metricsObserver) *Merger {
	return &Merger{opts: opts, logger: logger, metrics: metrics}
}

// Merge copies all artifact bodies into target: one header line, then every
// artifact's records in batch-index order. Each artifact is deleted
// immediately after it is fully copied, so it can never be consumed twice.
// Once every artifact is gone, tempDir is removed if (and only if) it is
// empty. On error the un-merged artifacts and the incomplete target are
// left in place; the caller must treat the run as failed.
func (m *Merger) Merge(artifacts []generation.Artifact, target, tempDir string) error {
	start := time.Now()

	// enforce batch-index order so the final byte layout is independent of
	// worker scheduling
	ordered := make([]generation.Artifact, len(artifacts))
	copy(ordered, artifacts)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].BatchID < ordered[j].BatchID
	})

	out, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "create final artifact %q", target)
	}
	defer out.Close()

	metered := diskio.NewMeteredWriter(out, func(written int64, _ int64) {
		m.metrics.AddMergeBytes(written)
	})
	w := bufio.NewWriterSize(metered, m.opts.TransferBufferBytes)

	if _, err := w.WriteString(flatcsv.Header + "\n"); err != nil {
		return errors.Wrap(err, "write final artifact header")
	}

	buf := make([]byte, m.opts.TransferBufferBytes)
	for i, artifact := range ordered {
		if err := m.consumeArtifact(artifact, w, buf); err != nil {
			return err
		}

		if (i+1)%m.opts.FlushBatchSize == 0 || i == len(ordered)-1 {
			if err := w.Flush(); err != nil {
				return errors.Wrap(err, "flush final artifact")
			}
			m.logger.WithFields(logrus.Fields{
				"action":   "merge_progress",
				"consumed": i + 1,
				"total":    len(ordered),
			}).Infof("merge progress: %.1f%%", float64(i+1)*100/float64(len(ordered)))
		}
	}

	if err := out.Sync(); err != nil {
		return errors.Wrapf(err, "sync final artifact %q", target)
	}

	if err := m.cleanupTempDir(tempDir); err != nil {
		return err
	}

	m.metrics.ObserveMerge(time.Since(start).Seconds())
	m.logger.WithFields(logrus.Fields{
		"action":    "merge_done",
		"artifacts": len(ordered),
		"output":    target,
		"took":      time.Since(start),
	}).Info("merge completed")

	return nil
}

// consumeArtifact copies one artifact's body (everything after its single
// header line) into the output and deletes the artifact afterwards.
func (m *Merger) consumeArtifact(artifact generation.Artifact, w io.Writer, buf []byte) error {
	f, err := os.Open(artifact.Location)
	if err != nil {
		return errors.Wrapf(err, "open artifact %d at %q", artifact.BatchID, artifact.Location)
	}

	metered := diskio.NewMeteredReader(f, func(read int64, _ int64) {
		m.metrics.AddMergeBytesRead(read)
	})
	r := bufio.NewReaderSize(metered, len(buf))
	if _, err := r.ReadString('\n'); err != nil {
		f.Close()
		return errors.Wrapf(err, "skip header of artifact %d", artifact.BatchID)
	}

	if _, err := io.CopyBuffer(w, r, buf); err != nil {
		f.Close()
		return errors.Wrapf(err, "copy artifact %d", artifact.BatchID)
	}

	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close artifact %d", artifact.BatchID)
	}

	if err := os.Remove(artifact.Location); err != nil {
		return errors.Wrapf(err, "remove consumed artifact %d", artifact.BatchID)
	}

	m.metrics.ObserveArtifactMerged()
	return nil
}

// cleanupTempDir removes the artifact directory, but only if it is empty:
// leftovers from an earlier, partially failed run must survive.
func (m *Merger) cleanupTempDir(tempDir string) error {
	if tempDir == "" {
		return nil
	}

	empty, err := diskio.IsDirEmpty(tempDir)
	if err != nil {
		return errors.Wrapf(err, "inspect temp dir %q", tempDir)
	}
	if !empty {
		m.logger.WithField("temp_dir", tempDir).
			Warn("temp dir not empty after merge, leaving it in place")
		return nil
	}

	if err := os.Remove(tempDir); err != nil {
		return errors.Wrapf(err, "remove temp dir %q", tempDir)
	}

	return nil
}
