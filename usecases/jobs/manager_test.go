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

package jobs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/monitoring"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewManager(testService(t), logger, (*monitoring.PrometheusMetrics)(nil))
}

// awaitTerminal polls until the job leaves the pending/processing states.
func awaitTerminal(t *testing.T, m *Manager, id string) synth.JobStatus {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		status, ok := m.Status(id)
		require.True(t, ok)
		if status.State == synth.JobStateCompleted || status.State == synth.JobStateFailed {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("job %s did not finish in time", id)
	return synth.JobStatus{}
}

func TestSubmitRejectsInvalidRequestSynchronously(t *testing.T) {
	m := testManager(t)

	_, err := m.Submit(&synth.Request{OutputFile: "out.csv"})
	require.Error(t, err)
	assert.True(t, synth.IsValidationError(err))
	assert.Empty(t, m.statuses)
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	m := testManager(t)
	outDir := t.TempDir()
	output := filepath.Join(outDir, "synthetic_data.csv")

	id, err := m.Submit(&synth.Request{
		InputFile:      writeClusteredInput(t, 400),
		OutputFile:     output,
		TempDir:        filepath.Join(outDir, "temp"),
		TargetSize:     200,
		SampleSize:     100,
		ChunkSize:      50,
		ChunksPerBatch: 2,
		Sink:           synth.SinkDescriptor{Kind: synth.SinkFlatFile},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	status := awaitTerminal(t, m, id)
	assert.Equal(t, synth.JobStateCompleted, status.State)
	assert.Equal(t, output, status.OutputLocation)
	assert.Greater(t, status.ElapsedSeconds, 0.0)
	assert.Empty(t, status.ErrorMessage)

	records := readRecords(t, output)
	assert.Len(t, records, 200)
}

func TestSubmitReportsRuntimeFailure(t *testing.T) {
	m := testManager(t)
	outDir := t.TempDir()

	id, err := m.Submit(&synth.Request{
		InputFile:  filepath.Join(outDir, "does-not-exist.csv"),
		OutputFile: filepath.Join(outDir, "synthetic_data.csv"),
		TempDir:    filepath.Join(outDir, "temp"),
		TargetSize: 100,
		SampleSize: 10,
		Sink:       synth.SinkDescriptor{Kind: synth.SinkFlatFile},
	})
	require.NoError(t, err)

	status := awaitTerminal(t, m, id)
	assert.Equal(t, synth.JobStateFailed, status.State)
	assert.NotEmpty(t, status.ErrorMessage)
	assert.Empty(t, status.OutputLocation)
}

func TestStatusUnknownID(t *testing.T) {
	m := testManager(t)

	_, ok := m.Status("4b9f78f5-6a7e-4a3e-8c4e-000000000000")
	assert.False(t, ok)
}
