package classifier

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	epochs       = 200
	learningRate = 0.5
	l2Penalty    = 1e-4
)

// trainSoftmax fits multinomial logistic regression by full-batch gradient
// descent with balanced class weights (rare attack categories count as much
// as the Normal majority). X is nSamples x nFeatures, y holds class indices.
// Weights start at zero, so training is deterministic for a given corpus.
// Returns per-class weight rows and biases.
func trainSoftmax(x *mat.Dense, y []int, nClasses int) ([][]float64, []float64) {
	n, f := x.Dims()

	counts := make([]float64, nClasses)
	for _, c := range y {
		counts[c]++
	}
	classW := make([]float64, nClasses)
	for c := range classW {
		if counts[c] > 0 {
			classW[c] = float64(n) / (float64(nClasses) * counts[c])
		}
	}
	sampleW := make([]float64, n)
	var totalW float64
	for i, c := range y {
		sampleW[i] = classW[c]
		totalW += sampleW[i]
	}

	weights := mat.NewDense(nClasses, f, nil)
	bias := make([]float64, nClasses)

	resid := mat.NewDense(n, nClasses, nil)
	grad := mat.NewDense(nClasses, f, nil)

	for epoch := 0; epoch < epochs; epoch++ {
		// resid = softmax(X Wᵀ + b), then re-used as the weighted residual.
		resid.Mul(x, weights.T())
		biasGrad := make([]float64, nClasses)
		for i := 0; i < n; i++ {
			row := resid.RawRowView(i)
			for c := range row {
				row[c] += bias[c]
			}
			softmaxInPlace(row)
			for c := range row {
				target := 0.0
				if c == y[i] {
					target = 1
				}
				row[c] = sampleW[i] * (row[c] - target) / totalW
				biasGrad[c] += row[c]
			}
		}

		grad.Mul(resid.T(), x)
		for c := 0; c < nClasses; c++ {
			bias[c] -= learningRate * biasGrad[c]
			gRow := grad.RawRowView(c)
			wRow := weights.RawRowView(c)
			for j := 0; j < f; j++ {
				wRow[j] -= learningRate * (gRow[j] + l2Penalty*wRow[j])
			}
		}
	}

	out := make([][]float64, nClasses)
	for c := range out {
		out[c] = append([]float64(nil), weights.RawRowView(c)...)
	}
	return out, bias
}

// softmaxInPlace converts logits to probabilities, max-shifted for
// numerical stability.
func softmaxInPlace(row []float64) {
	maxv := row[0]
	for _, v := range row[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - maxv)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
}
