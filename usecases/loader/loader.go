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

// Package loader reads the scalar fitting column out of an
// arbitrary-width input CSV and draws the fitting sample from it.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/weaviate/syngen/entities/synth"
)

type Loader struct {
	logger logrus.FieldLogger
}

func New(logger logrus.FieldLogger) *Loader {
	return &Loader{logger: logger}
}

// LoadColumn streams the CSV at path and returns the named column parsed
// as float64, in file order.
func (l *Loader) LoadColumn(path, column string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open input file %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %q", path)
	}

	columnIdx := -1
	for i, name := range header {
		if name == column {
			columnIdx = i
			break
		}
	}
	if columnIdx == -1 {
		return nil, synth.NewValidationErrorf("input file %q has no column %q", path, column)
	}

	var values []float64
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %q line %d", path, line)
		}

		v, err := strconv.ParseFloat(record[columnIdx], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %q line %d column %q", path, line, column)
		}
		values = append(values, v)
	}

	l.logger.WithFields(logrus.Fields{
		"action": "load_column",
		"path":   path,
		"column": column,
		"rows":   len(values),
	}).Info("loaded input column")

	return values, nil
}

// Sample draws sampleSize values with replacement. It fails fast when more
// rows are requested than the input provides.
func (l *Loader) Sample(values []float64, sampleSize int, rng *rand.Rand) ([]float64, error) {
	if sampleSize > len(values) {
		return nil, synth.NewValidationErrorf(
			"sample_size %d exceeds the %d available rows", sampleSize, len(values))
	}

	sample := make([]float64, sampleSize)
	for i := range sample {
		sample[i] = values[rng.Intn(len(values))]
	}
	return sample, nil
}
