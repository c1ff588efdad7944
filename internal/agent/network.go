// File: internal/agent/network.go
// Description: A small fully-connected network with manual backpropagation.
// Both agents' estimators are instances of this; keeping the math hand-rolled
// keeps the learning loop dependency-free and the parameter container trivially
// serializable.

package agent

import (
	"fmt"
	"math"
	"math/rand"
)

// Network is a two-layer perceptron (input -> ReLU hidden -> linear output)
// trained by stochastic gradient descent.
type Network struct {
	inSize     int
	hiddenSize int
	outSize    int
	lr         float64

	// Row-major weight matrices and bias vectors.
	w1 []float64 // hiddenSize x inSize
	b1 []float64
	w2 []float64 // outSize x hiddenSize
	b2 []float64
}

// Params is an opaque, serializable snapshot of a network's weights.
type Params struct {
	W1 []float64 `json:"w1"`
	B1 []float64 `json:"b1"`
	W2 []float64 `json:"w2"`
	B2 []float64 `json:"b2"`
}

// NewNetwork builds a network with Xavier-style uniform initialization.
func NewNetwork(inSize, hiddenSize, outSize int, lr float64, rng *rand.Rand) *Network {
	n := &Network{
		inSize:     inSize,
		hiddenSize: hiddenSize,
		outSize:    outSize,
		lr:         lr,
		w1:         make([]float64, hiddenSize*inSize),
		b1:         make([]float64, hiddenSize),
		w2:         make([]float64, outSize*hiddenSize),
		b2:         make([]float64, outSize),
	}
	initUniform(n.w1, inSize, rng)
	initUniform(n.w2, hiddenSize, rng)
	return n
}

func initUniform(w []float64, fanIn int, rng *rand.Rand) {
	bound := 1.0 / math.Sqrt(float64(fanIn))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * bound
	}
}

// Forward computes the output vector for one input.
func (n *Network) Forward(x []float64) []float64 {
	_, out := n.forward(x)
	return out
}

func (n *Network) forward(x []float64) (hidden, out []float64) {
	hidden = make([]float64, n.hiddenSize)
	for h := 0; h < n.hiddenSize; h++ {
		sum := n.b1[h]
		row := n.w1[h*n.inSize:]
		for i := 0; i < n.inSize && i < len(x); i++ {
			sum += row[i] * x[i]
		}
		if sum > 0 {
			hidden[h] = sum
		}
	}
	out = make([]float64, n.outSize)
	for o := 0; o < n.outSize; o++ {
		sum := n.b2[o]
		row := n.w2[o*n.hiddenSize:]
		for h := 0; h < n.hiddenSize; h++ {
			sum += row[h] * hidden[h]
		}
		out[o] = sum
	}
	return hidden, out
}

// Backprop applies one SGD step given the gradient of the loss with respect
// to the network's outputs.
func (n *Network) Backprop(x, gradOut []float64) {
	hidden, _ := n.forward(x)

	// Output layer.
	gradHidden := make([]float64, n.hiddenSize)
	for o := 0; o < n.outSize; o++ {
		g := gradOut[o]
		if g == 0 {
			continue
		}
		row := n.w2[o*n.hiddenSize:]
		for h := 0; h < n.hiddenSize; h++ {
			gradHidden[h] += g * row[h]
			row[h] -= n.lr * g * hidden[h]
		}
		n.b2[o] -= n.lr * g
	}

	// Hidden layer; ReLU gates the gradient where the activation was zero.
	for h := 0; h < n.hiddenSize; h++ {
		if hidden[h] <= 0 || gradHidden[h] == 0 {
			continue
		}
		g := gradHidden[h]
		row := n.w1[h*n.inSize:]
		for i := 0; i < n.inSize && i < len(x); i++ {
			row[i] -= n.lr * g * x[i]
		}
		n.b1[h] -= n.lr * g
	}
}

// TrainTargetAt nudges output index idx toward target with a squared-error
// step, leaving the other outputs untouched.
func (n *Network) TrainTargetAt(x []float64, idx int, target float64) {
	_, out := n.forward(x)
	grad := make([]float64, n.outSize)
	grad[idx] = out[idx] - target
	n.Backprop(x, grad)
}

// Snapshot returns a deep copy of the current parameters.
func (n *Network) Snapshot() Params {
	return Params{
		W1: append([]float64(nil), n.w1...),
		B1: append([]float64(nil), n.b1...),
		W2: append([]float64(nil), n.w2...),
		B2: append([]float64(nil), n.b2...),
	}
}

// Restore overwrites the network's parameters from a snapshot.
func (n *Network) Restore(p Params) error {
	if len(p.W1) != len(n.w1) || len(p.B1) != len(n.b1) ||
		len(p.W2) != len(n.w2) || len(p.B2) != len(n.b2) {
		return fmt.Errorf("parameter shape mismatch: got %d/%d/%d/%d want %d/%d/%d/%d",
			len(p.W1), len(p.B1), len(p.W2), len(p.B2),
			len(n.w1), len(n.b1), len(n.w2), len(n.b2))
	}
	copy(n.w1, p.W1)
	copy(n.b1, p.B1)
	copy(n.w2, p.W2)
	copy(n.b2, p.B2)
	return nil
}

// CopyFrom overwrites this network's parameters wholesale from another
// network of the same shape. Used for hard target-network syncs.
func (n *Network) CopyFrom(other *Network) {
	copy(n.w1, other.w1)
	copy(n.b1, other.b1)
	copy(n.w2, other.w2)
	copy(n.b2, other.b2)
}

// Softmax converts logits into a probability distribution.
func Softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// CategoricalSampler draws an index from a probability vector. The interface
// exists so the stochastic pattern selection stays decoupled from whatever
// numeric primitive backs it.
type CategoricalSampler interface {
	Sample(probs []float64) int
}

// RandSampler samples with a rand.Rand via inverse CDF.
type RandSampler struct {
	Rng *rand.Rand
}

// Sample returns an index distributed according to probs. A degenerate or
// empty distribution falls back to the last index / zero.
func (s RandSampler) Sample(probs []float64) int {
	if len(probs) == 0 {
		return 0
	}
	r := s.Rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if r < cum {
			return i
		}
	}
	return len(probs) - 1
}
