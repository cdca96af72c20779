package deciders

import (
	"math"
	"math/rand"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Neuron is a feed-forward net with one sigmoid hidden layer and a single
// sigmoid output, trained by stochastic gradient descent on squared error.
type Neuron struct {
	Thresh        float64
	HiddenNeurons int
	MaxEpochs     int
	LearningRate  float64
	Seed          int64

	dim     int
	w1      [][]float64 // hidden x (dim+1), last column is the bias
	w2      []float64   // hidden+1, last entry is the bias
	learned bool
}

func (d *Neuron) Name() string { return "NeuronDecider" }

func (d *Neuron) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *Neuron) Learn(positives, negatives [][]float64) error {
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	hidden := d.HiddenNeurons
	if hidden <= 0 {
		hidden = 2
	}
	epochs := d.MaxEpochs
	if epochs <= 0 {
		epochs = 20000
	}
	lr := d.LearningRate
	if lr <= 0 {
		lr = 0.1
	}

	rows := make([][]float64, 0, len(positives)+len(negatives))
	targets := make([]float64, 0, cap(rows))
	for _, r := range positives {
		rows = append(rows, r)
		targets = append(targets, 1)
	}
	for _, r := range negatives {
		rows = append(rows, r)
		targets = append(targets, 0)
	}

	rng := rand.New(rand.NewSource(d.Seed))
	d.dim = dim
	d.w1 = make([][]float64, hidden)
	for h := range d.w1 {
		d.w1[h] = make([]float64, dim+1)
		for j := range d.w1[h] {
			d.w1[h][j] = rng.Float64() - 0.5
		}
	}
	d.w2 = make([]float64, hidden+1)
	for j := range d.w2 {
		d.w2[j] = rng.Float64() - 0.5
	}

	for epoch := 0; epoch < epochs; epoch++ {
		for _, i := range rng.Perm(len(rows)) {
			d.step(rows[i], targets[i], lr)
		}
	}
	d.learned = true
	return nil
}

func (d *Neuron) step(row []float64, target, lr float64) {
	hiddenOut, out := d.forward(row)

	// output delta, squared error with sigmoid derivative
	deltaOut := (out - target) * out * (1 - out)

	hidden := len(d.w1)
	deltaHidden := make([]float64, hidden)
	for h := 0; h < hidden; h++ {
		deltaHidden[h] = deltaOut * d.w2[h] * hiddenOut[h] * (1 - hiddenOut[h])
	}

	for h := 0; h < hidden; h++ {
		d.w2[h] -= lr * deltaOut * hiddenOut[h]
	}
	d.w2[hidden] -= lr * deltaOut

	for h := 0; h < hidden; h++ {
		for j := 0; j < d.dim; j++ {
			d.w1[h][j] -= lr * deltaHidden[h] * row[j]
		}
		d.w1[h][d.dim] -= lr * deltaHidden[h]
	}
}

func (d *Neuron) forward(row []float64) ([]float64, float64) {
	hidden := len(d.w1)
	hiddenOut := make([]float64, hidden)
	for h := 0; h < hidden; h++ {
		sum := d.w1[h][d.dim]
		for j := 0; j < d.dim; j++ {
			sum += d.w1[h][j] * row[j]
		}
		hiddenOut[h] = sigmoid(sum)
	}
	sum := d.w2[hidden]
	for h := 0; h < hidden; h++ {
		sum += d.w2[h] * hiddenOut[h]
	}
	return hiddenOut, sigmoid(sum)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (d *Neuron) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != d.dim {
			return nil, errors.QueryInputf("sample row has %d coordinates, trained on %d", len(row), d.dim)
		}
		_, out[i] = d.forward(row)
	}
	return out, nil
}
