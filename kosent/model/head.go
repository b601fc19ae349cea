package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Head is the single learned projection over the encoder output: an affine
// transform of the [CLS]-position embedding to a scalar, squashed through a
// sigmoid. No pooling over other positions.
//
// Parameters are stored as one flat vector (weights then bias) so the
// optimizer and checkpoint can treat them uniformly.
type Head struct {
	params []float64
	dim    int
}

// NewHead initializes weights from a seeded normal distribution with small
// scale; the bias starts at zero.
func NewHead(dim int, seed int64) *Head {
	rng := rand.New(rand.NewSource(seed))
	params := make([]float64, dim+1)
	for i := 0; i < dim; i++ {
		params[i] = rng.NormFloat64() * 0.02
	}
	return &Head{params: params, dim: dim}
}

// HiddenDim returns the expected embedding width.
func (h *Head) HiddenDim() int { return h.dim }

// Weights exposes the weight portion as a gonum vector view (no copy).
func (h *Head) Weights() *mat.VecDense { return mat.NewVecDense(h.dim, h.params[:h.dim]) }

// Bias returns the bias term.
func (h *Head) Bias() float64 { return h.params[h.dim] }

// Logit computes w·x + b for one [CLS] embedding.
func (h *Head) Logit(x []float32) float64 {
	xf := make([]float64, h.dim)
	for i := 0; i < h.dim && i < len(x); i++ {
		xf[i] = float64(x[i])
	}
	return floats.Dot(h.params[:h.dim], xf) + h.params[h.dim]
}

// Forward returns the predicted probability in [0,1].
func (h *Head) Forward(x []float32) float64 {
	return sigmoid(h.Logit(x))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
