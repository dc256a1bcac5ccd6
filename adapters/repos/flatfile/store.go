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

// Package flatfile is the flat-file sink: every batch becomes one artifact
// file in the temp dir, formatted rows appended through a buffered writer.
package flatfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/syngen/entities/diskio"
	"github.com/weaviate/syngen/entities/flatcsv"
	"github.com/weaviate/syngen/usecases/generation"
)

// Store creates and addresses per-batch artifact files. Artifact paths are
// a pure function of the batch index, so no two workers can ever collide.
type Store struct {
	tempDir     string
	stem        string
	extension   string
	bufferBytes int
	logger      logrus.FieldLogger
}

// NewStore prepares the temp dir for a job writing towards outputFile. The
// artifact naming derives from the output file name, so concurrent jobs
// with distinct outputs can share a temp dir.
func NewStore(tempDir, outputFile string, bufferBytes int,
	logger logrus.FieldLogger,
) (*Store, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create temp dir %q", tempDir)
	}

	base := filepath.Base(outputFile)
	extension := filepath.Ext(base)

	return &Store{
		tempDir:     tempDir,
		stem:        strings.TrimSuffix(base, extension),
		extension:   extension,
		bufferBytes: bufferBytes,
		logger:      logger,
	}, nil
}

// ArtifactPath returns the stable file path of the given batch's artifact.
func (s *Store) ArtifactPath(batchID int) string {
	return filepath.Join(s.tempDir,
		fmt.Sprintf("%s_temp_%d%s", s.stem, batchID, s.extension))
}

// CreateArtifact opens the batch's artifact file and writes its single
// header line. The returned writer is owned by exactly one worker.
func (s *Store) CreateArtifact(batchID int) (generation.ArtifactWriter, error) {
	path := s.ArtifactPath(batchID)

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create artifact file %q", path)
	}

	w := bufio.NewWriterSize(f, s.bufferBytes)
	if _, err := w.WriteString(flatcsv.Header + "\n"); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "write header of artifact file %q", path)
	}

	return &artifactWriter{path: path, f: f, w: w}, nil
}

// RemoveArtifact deletes the batch's artifact file if it exists.
func (s *Store) RemoveArtifact(batchID int) error {
	path := s.ArtifactPath(batchID)

	exists, err := diskio.FileExists(path)
	if err != nil {
		return errors.Wrapf(err, "stat artifact file %q", path)
	}
	if !exists {
		return nil
	}

	return os.Remove(path)
}

// Count sums the records of all artifact files currently in the temp dir,
// excluding their header lines.
func (s *Store) Count() (int64, error) {
	pattern := filepath.Join(s.tempDir,
		fmt.Sprintf("%s_temp_*%s", s.stem, s.extension))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, errors.Wrapf(err, "glob artifact files %q", pattern)
	}

	var total int64
	for _, path := range matches {
		n, err := countLines(path)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			total += n - 1 // minus the header line
		}
	}

	return total, nil
}

func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open artifact file %q", path)
	}
	defer f.Close()

	var count int64
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		count += int64(bytes.Count(buf[:n], []byte{'\n'}))
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, errors.Wrapf(err, "read artifact file %q", path)
		}
	}
}

// artifactWriter appends formatted rows to one artifact file. It has
// exactly one user: the worker owning the batch.
type artifactWriter struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	scratch []byte
}

func (a *artifactWriter) Append(values []float64) error {
	for _, v := range values {
		a.scratch = flatcsv.AppendRecord(a.scratch[:0], v)
		if _, err := a.w.Write(a.scratch); err != nil {
			return errors.Wrapf(err, "append to artifact file %q", a.path)
		}
	}
	return nil
}

func (a *artifactWriter) Close() error {
	if err := a.w.Flush(); err != nil {
		a.f.Close()
		return errors.Wrapf(err, "flush artifact file %q", a.path)
	}
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		return errors.Wrapf(err, "sync artifact file %q", a.path)
	}
	return a.f.Close()
}

func (a *artifactWriter) Location() string {
	return a.path
}
