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

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/weaviate/syngen/entities/synth"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadColumn(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(logger)

	path := writeCSV(t, "Time,Amount,Class\n0,149.62,0\n1,2.69,0\n2,378.66,1\n")

	values, err := l.LoadColumn(path, "Amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{149.62, 2.69, 378.66}, values)
}

func TestLoadColumnMissing(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(logger)

	path := writeCSV(t, "Time,Class\n0,0\n")

	_, err := l.LoadColumn(path, "Amount")
	require.Error(t, err)
	assert.True(t, synth.IsValidationError(err))
}

func TestLoadColumnBadValue(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(logger)

	path := writeCSV(t, "Amount\n1.5\nnot-a-number\n")

	_, err := l.LoadColumn(path, "Amount")
	require.Error(t, err)
	assert.ErrorContains(t, err, "line 3")
}

func TestSampleWithReplacement(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(logger)

	values := []float64{1, 2, 3, 4, 5}
	rng := rand.New(rand.NewSource(42))

	sample, err := l.Sample(values, 5, rng)
	require.NoError(t, err)
	require.Len(t, sample, 5)
	for _, v := range sample {
		assert.Contains(t, values, v)
	}
}

func TestSampleLargerThanInputFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(logger)

	rng := rand.New(rand.NewSource(42))
	_, err := l.Sample([]float64{1, 2, 3}, 4, rng)
	require.Error(t, err)
	assert.True(t, synth.IsValidationError(err))
}
