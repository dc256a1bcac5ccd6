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
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/weaviate/syngen/entities/synth"
)

// Model is the read-only view of a fitted mixture the generator needs. A
// fitted model is immutable, so the same instance can back any number of
// concurrent workers.
type Model interface {
	SampleModes(n int, sampling synth.ModeSampling, rng *rand.Rand) ([]int, error)
	InverseTransform(normalized []float64, modes []int) ([]float64, error)
}

// GenerateChunk produces chunkSize synthetic records: standard-normal
// draws, mode indicators from the model and an elementwise inverse
// transform. It is pure apart from the RNG stream, so workers holding
// independent RNGs can call it concurrently.
func GenerateChunk(chunkSize int, model Model, sampling synth.ModeSampling,
	rng *rand.Rand,
) ([]float64, error) {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	normalized := make([]float64, chunkSize)
	for i := range normalized {
		normalized[i] = dist.Rand()
	}

	modes, err := model.SampleModes(chunkSize, sampling, rng)
	if err != nil {
		return nil, err
	}

	return model.InverseTransform(normalized, modes)
}
