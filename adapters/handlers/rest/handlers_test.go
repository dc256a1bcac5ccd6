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

package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/syngen/entities/flatcsv"
	"github.com/weaviate/syngen/entities/synth"
	"github.com/weaviate/syngen/usecases/config"
	"github.com/weaviate/syngen/usecases/jobs"
	"github.com/weaviate/syngen/usecases/monitoring"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	logger, _ := test.NewNullLogger()

	cfg := config.DefaultConfig()
	cfg.Generation.ComponentCount = 4
	cfg.Generation.Workers = 2

	metrics := (*monitoring.PrometheusMetrics)(nil)
	service := jobs.NewService(cfg, logger, metrics)
	manager := jobs.NewManager(service, logger, metrics)
	return NewHandlers(manager, logger).Routes()
}

// writeTwoClusterInput writes a fittable input file: two flat clusters with
// a little spread each.
func writeTwoClusterInput(t *testing.T) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(flatcsv.Header + "\n")
	for i := 0; i < 200; i++ {
		sb.WriteString(fmt.Sprintf("%.6f\n", 10+float64(i%7)*0.1))
		sb.WriteString(fmt.Sprintf("%.6f\n", 30+float64(i%5)*0.1))
	}

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestHealth(t *testing.T) {
	rec, body := doJSON(t, testHandler(t), http.MethodGet, "/v1/synthetic-data/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", body["status"])
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	rec, body := doJSON(t, testHandler(t), http.MethodPost,
		"/v1/synthetic-data/generate", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "decode request")
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	rec, body := doJSON(t, testHandler(t), http.MethodPost,
		"/v1/synthetic-data/generate", `{"output_file": "out.csv"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["error"], "input_file")
}

func TestStatusUnknownJob(t *testing.T) {
	rec, body := doJSON(t, testHandler(t), http.MethodGet,
		"/v1/synthetic-data/status/not-a-job", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", body["error"])
}

func TestGenerateAndPollToCompletion(t *testing.T) {
	handler := testHandler(t)
	outDir := t.TempDir()
	output := filepath.Join(outDir, "synthetic_data.csv")

	request := synth.Request{
		InputFile:      writeTwoClusterInput(t),
		OutputFile:     output,
		TempDir:        filepath.Join(outDir, "temp"),
		TargetSize:     100,
		SampleSize:     100,
		ChunkSize:      50,
		ChunksPerBatch: 1,
		Sink:           synth.SinkDescriptor{Kind: synth.SinkFlatFile},
	}
	payload, err := json.Marshal(request)
	require.NoError(t, err)

	rec, body := doJSON(t, handler, http.MethodPost,
		"/v1/synthetic-data/generate", string(payload))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending", body["status"])

	id, ok := body["job_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	deadline := time.Now().Add(30 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "job did not finish in time")

		rec, body = doJSON(t, handler, http.MethodGet,
			"/v1/synthetic-data/status/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)

		if body["status"] == "completed" {
			break
		}
		require.NotEqual(t, "failed", body["status"],
			"job failed: %v", body["error_message"])
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, output, body["output_location"])
	_, err = os.Stat(output)
	assert.NoError(t, err)
}
