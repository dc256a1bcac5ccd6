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

// Package vgm fits a bounded-component Gaussian mixture to a scalar sample
// and exposes mode-specific normalization in both directions. A fitted
// model is immutable and safe to share read-only across any number of
// generation workers.
package vgm

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/weaviate/syngen/entities/synth"
)

const (
	defaultMaxIterations = 200
	defaultTolerance     = 1e-8

	// varianceFloor keeps the M-step away from singular components when a
	// component collapses onto (near-)identical points.
	varianceFloor = 1e-12
)

// Options bound and tune the fitting procedure.
type Options struct {
	// ComponentCount is the upper bound on mixture components.
	ComponentCount int

	// Epsilon prunes fitted components whose weight does not exceed it.
	Epsilon float64

	// MaxIterations and Tolerance control EM convergence. Zero values
	// select the defaults.
	MaxIterations int
	Tolerance     float64
}

// VGM is a variational-style Gaussian mixture over a single scalar column.
// After a successful Fit it holds only the compacted valid components,
// re-indexed 0..V-1.
type VGM struct {
	opts   Options
	logger logrus.FieldLogger

	fitted  bool
	weights []float64
	means   []float64
	stds    []float64
}

func New(opts Options, logger logrus.FieldLogger) *VGM {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}

	return &VGM{opts: opts, logger: logger}
}

// Fit estimates up to ComponentCount Gaussian components from the sample.
// Candidate mixtures are fitted with weighted EM for every component count
// up to the bound and the best one is selected by BIC; components whose
// weight does not exceed Epsilon are pruned afterwards. The procedure is
// fully deterministic for identical input.
func (v *VGM) Fit(sample []float64) error {
	if len(sample) == 0 {
		return synth.NewFitErrorf("sample is empty")
	}
	if len(sample) < v.opts.ComponentCount {
		return synth.NewFitErrorf("sample size %d is below the component bound %d",
			len(sample), v.opts.ComponentCount)
	}
	for i, x := range sample {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return synth.NewFitErrorf("sample contains non-finite value at index %d", i)
		}
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	if sorted[0] == sorted[len(sorted)-1] {
		return synth.NewFitErrorf("sample is constant (%g), cannot estimate variance", sorted[0])
	}

	var best *emResult
	bestBIC := math.Inf(1)
	for k := 1; k <= v.opts.ComponentCount; k++ {
		res := runEM(sample, sorted, k, v.opts.MaxIterations, v.opts.Tolerance)
		if bic := res.bic(len(sample)); bic < bestBIC {
			bestBIC = bic
			best = res
		}
	}

	weights, means, stds := best.validComponents(v.opts.Epsilon)
	if len(means) == 0 {
		return synth.NewFitErrorf("no component weight exceeds epsilon %g", v.opts.Epsilon)
	}

	v.weights = weights
	v.means = means
	v.stds = stds
	v.fitted = true

	v.logger.WithFields(logrus.Fields{
		"action":           "vgm_fit",
		"sample_size":      len(sample),
		"component_bound":  v.opts.ComponentCount,
		"valid_components": len(means),
	}).Debug("fitted gaussian mixture")

	return nil
}

// ValidComponents returns V, the number of components surviving the weight
// threshold. At least 1 after a successful Fit.
func (v *VGM) ValidComponents() int {
	return len(v.means)
}

// Means returns a copy of the valid component means, ordered ascending.
func (v *VGM) Means() []float64 {
	out := make([]float64, len(v.means))
	copy(out, v.means)
	return out
}

// Stds returns a copy of the valid component standard deviations, in the
// same order as Means.
func (v *VGM) Stds() []float64 {
	out := make([]float64, len(v.stds))
	copy(out, v.stds)
	return out
}

// Weights returns a copy of the valid component weights, in the same order
// as Means.
func (v *VGM) Weights() []float64 {
	out := make([]float64, len(v.weights))
	copy(out, v.weights)
	return out
}

// Transform normalizes each value with the mean and std of its most likely
// component and returns the assigned mode indicators.
func (v *VGM) Transform(values []float64) ([]float64, []int, error) {
	if !v.fitted {
		return nil, nil, synth.NotFittedError{Op: "Transform"}
	}

	normalized := make([]float64, len(values))
	modes := make([]int, len(values))
	for i, x := range values {
		mode := v.argmaxPosterior(x)
		modes[i] = mode
		normalized[i] = (x - v.means[mode]) / v.stds[mode]
	}

	return normalized, modes, nil
}

// InverseTransform maps normalized values back to the original scale,
// elementwise, using the component selected by each mode indicator.
func (v *VGM) InverseTransform(normalized []float64, modes []int) ([]float64, error) {
	if !v.fitted {
		return nil, synth.NotFittedError{Op: "InverseTransform"}
	}
	if len(normalized) != len(modes) {
		return nil, synth.NewValidationErrorf(
			"normalized values and mode indicators differ in length: %d vs %d",
			len(normalized), len(modes))
	}

	out := make([]float64, len(normalized))
	for i, x := range normalized {
		mode := modes[i]
		if mode < 0 || mode >= len(v.means) {
			return nil, synth.ModeRangeError{Mode: mode, Valid: len(v.means)}
		}
		out[i] = x*v.stds[mode] + v.means[mode]
	}

	return out, nil
}

// SampleModes draws n mode indicators from [0, V). Uniform sampling keeps
// the historical behavior of equal per-mode volume; weighted sampling
// follows the fitted component weights instead.
func (v *VGM) SampleModes(n int, sampling synth.ModeSampling, rng *rand.Rand) ([]int, error) {
	if !v.fitted {
		return nil, synth.NotFittedError{Op: "SampleModes"}
	}

	modes := make([]int, n)
	switch sampling {
	case synth.ModeSamplingWeighted:
		cum := make([]float64, len(v.weights))
		floats.CumSum(cum, v.weights)
		total := cum[len(cum)-1]
		for i := range modes {
			modes[i] = sort.SearchFloat64s(cum, rng.Float64()*total)
		}
	default:
		for i := range modes {
			modes[i] = rng.Intn(len(v.means))
		}
	}

	return modes, nil
}

func (v *VGM) argmaxPosterior(x float64) int {
	best := 0
	bestLog := math.Inf(-1)
	for k := range v.means {
		logp := math.Log(v.weights[k]) +
			distuv.Normal{Mu: v.means[k], Sigma: v.stds[k]}.LogProb(x)
		if logp > bestLog {
			bestLog = logp
			best = k
		}
	}
	return best
}

// emResult is one converged candidate mixture.
type emResult struct {
	k         int
	weights   []float64
	means     []float64
	variances []float64
	logLik    float64
}

// bic scores the candidate: lower is better. A univariate mixture with k
// components has k-1 free weights, k means and k variances.
func (r *emResult) bic(n int) float64 {
	params := float64(3*r.k - 1)
	return -2*r.logLik + params*math.Log(float64(n))
}

// validComponents prunes weights <= epsilon, compacts the survivors and
// orders them by ascending mean.
func (r *emResult) validComponents(epsilon float64) (weights, means, stds []float64) {
	type component struct {
		weight, mean, std float64
	}

	var valid []component
	for k := 0; k < r.k; k++ {
		if r.weights[k] > epsilon {
			valid = append(valid, component{
				weight: r.weights[k],
				mean:   r.means[k],
				std:    math.Sqrt(r.variances[k]),
			})
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].mean < valid[j].mean })

	for _, c := range valid {
		weights = append(weights, c.weight)
		means = append(means, c.mean)
		stds = append(stds, c.std)
	}
	return weights, means, stds
}

// runEM fits a k-component mixture with expectation maximization.
// Initialization places the means at evenly spaced empirical quantiles of
// the sorted sample, which makes the whole fit deterministic.
func runEM(sample, sorted []float64, k, maxIterations int, tolerance float64) *emResult {
	n := len(sample)
	sampleVar := stat.Variance(sample, nil)

	weights := make([]float64, k)
	means := make([]float64, k)
	variances := make([]float64, k)
	for j := 0; j < k; j++ {
		weights[j] = 1 / float64(k)
		means[j] = stat.Quantile((float64(j)+0.5)/float64(k), stat.Empirical, sorted, nil)
		variances[j] = math.Max(sampleVar, varianceFloor)
	}

	logRow := make([]float64, k)
	resp := make([]float64, k)
	sumResp := make([]float64, k)
	sumX := make([]float64, k)
	sumXX := make([]float64, k)

	prevLogLik := math.Inf(-1)
	logLik := math.Inf(-1)

	for iter := 0; iter < maxIterations; iter++ {
		for j := 0; j < k; j++ {
			sumResp[j], sumX[j], sumXX[j] = 0, 0, 0
		}

		logLik = 0
		for _, x := range sample {
			for j := 0; j < k; j++ {
				if weights[j] == 0 {
					logRow[j] = math.Inf(-1)
					continue
				}
				logRow[j] = math.Log(weights[j]) +
					distuv.Normal{Mu: means[j], Sigma: math.Sqrt(variances[j])}.LogProb(x)
			}
			total := floats.LogSumExp(logRow)
			logLik += total

			for j := 0; j < k; j++ {
				resp[j] = math.Exp(logRow[j] - total)
				sumResp[j] += resp[j]
				sumX[j] += resp[j] * x
				sumXX[j] += resp[j] * x * x
			}
		}

		for j := 0; j < k; j++ {
			if sumResp[j] < 1e-10 {
				// component lost all responsibility mass, retire it
				weights[j] = 0
				continue
			}
			weights[j] = sumResp[j] / float64(n)
			means[j] = sumX[j] / sumResp[j]
			variances[j] = math.Max(sumXX[j]/sumResp[j]-means[j]*means[j], varianceFloor)
		}

		if math.Abs(logLik-prevLogLik) < tolerance*(math.Abs(logLik)+tolerance) {
			break
		}
		prevLogLik = logLik
	}

	return &emResult{
		k:         k,
		weights:   weights,
		means:     means,
		variances: variances,
		logLik:    logLik,
	}
}
