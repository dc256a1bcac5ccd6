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

package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() Request {
	return Request{
		InputFile:      "input.csv",
		OutputFile:     "output.csv",
		TempDir:        "temp",
		TargetSize:     1000,
		SampleSize:     100,
		ChunkSize:      250,
		ChunksPerBatch: 2,
		Sink:           SinkDescriptor{Kind: SinkFlatFile},
	}
}

func TestChunkAndBatchMath(t *testing.T) {
	tests := []struct {
		name        string
		targetSize  int64
		chunkSize   int
		perBatch    int
		wantChunks  int64
		wantBatches int64
	}{
		{"exact multiple", 1000, 250, 2, 4, 2},
		{"over-generation rounds chunks up", 1001, 250, 2, 5, 3},
		{"single record", 1, 250, 2, 1, 1},
		{"single chunk per batch", 1000, 250, 1, 4, 4},
		{"more chunks per batch than chunks", 1000, 250, 100, 4, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Request{
				TargetSize:     tc.targetSize,
				ChunkSize:      tc.chunkSize,
				ChunksPerBatch: tc.perBatch,
			}
			assert.Equal(t, tc.wantChunks, r.NumChunks())
			assert.Equal(t, tc.wantBatches, r.NumBatches())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, func() error { r := validRequest(); return r.Validate() }())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing input file", func(r *Request) { r.InputFile = "" }},
		{"missing output file", func(r *Request) { r.OutputFile = "" }},
		{"zero target size", func(r *Request) { r.TargetSize = 0 }},
		{"negative target size", func(r *Request) { r.TargetSize = -1 }},
		{"zero sample size", func(r *Request) { r.SampleSize = 0 }},
		{"zero chunk size", func(r *Request) { r.ChunkSize = 0 }},
		{"zero chunks per batch", func(r *Request) { r.ChunksPerBatch = 0 }},
		{"unknown sink kind", func(r *Request) { r.Sink.Kind = "s3" }},
		{"flat-file sink without temp dir", func(r *Request) { r.TempDir = "" }},
		{"sqlite sink without path", func(r *Request) {
			r.Sink = SinkDescriptor{Kind: SinkSQLite}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mutate(&r)
			err := r.Validate()
			assert.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestSQLiteSinkNeedsNoTempDir(t *testing.T) {
	r := validRequest()
	r.TempDir = ""
	r.Sink = SinkDescriptor{Kind: SinkSQLite, Path: "synthetic.db"}
	assert.NoError(t, r.Validate())
}
