package deciders

import (
	"math"
	"sort"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Tree is a CART-style decision tree decider. Evaluate returns hard class
// labels cast to {0, 1}, which downstream thresholding handles fine.
type Tree struct {
	Thresh     float64
	MaxDepth   int
	MinSamples int

	dim     int
	root    *treeNode
	learned bool
}

type treeNode struct {
	feature   int
	split     float64
	label     float64
	left      *treeNode
	right     *treeNode
}

func (d *Tree) Name() string { return "TreeDec" }

func (d *Tree) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *Tree) Learn(positives, negatives [][]float64) error {
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	maxDepth := d.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}
	minSamples := d.MinSamples
	if minSamples <= 0 {
		minSamples = 2
	}

	rows := make([][]float64, 0, len(positives)+len(negatives))
	labels := make([]float64, 0, cap(rows))
	for _, r := range positives {
		rows = append(rows, r)
		labels = append(labels, 1)
	}
	for _, r := range negatives {
		rows = append(rows, r)
		labels = append(labels, 0)
	}

	d.dim = dim
	d.root = buildTree(rows, labels, 0, maxDepth, minSamples)
	d.learned = true
	return nil
}

func buildTree(rows [][]float64, labels []float64, depth, maxDepth, minSamples int) *treeNode {
	majority := majorityLabel(labels)
	if depth >= maxDepth || len(rows) < minSamples || pure(labels) {
		return &treeNode{feature: -1, label: majority}
	}

	feature, split, ok := bestSplit(rows, labels)
	if !ok {
		return &treeNode{feature: -1, label: majority}
	}

	var leftRows, rightRows [][]float64
	var leftLabels, rightLabels []float64
	for i, row := range rows {
		if row[feature] < split {
			leftRows = append(leftRows, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightRows = append(rightRows, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	if len(leftRows) == 0 || len(rightRows) == 0 {
		return &treeNode{feature: -1, label: majority}
	}
	return &treeNode{
		feature: feature,
		split:   split,
		left:    buildTree(leftRows, leftLabels, depth+1, maxDepth, minSamples),
		right:   buildTree(rightRows, rightLabels, depth+1, maxDepth, minSamples),
	}
}

// bestSplit scans every feature's midpoints for the lowest weighted Gini
// impurity.
func bestSplit(rows [][]float64, labels []float64) (int, float64, bool) {
	bestGini := math.Inf(1)
	bestFeature, bestValue := -1, 0.0

	dim := len(rows[0])
	for f := 0; f < dim; f++ {
		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			if !math.IsNaN(row[f]) {
				values = append(values, row[f])
			}
		}
		sort.Float64s(values)
		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			split := (values[i] + values[i-1]) / 2
			g := splitGini(rows, labels, f, split)
			if g < bestGini {
				bestGini = g
				bestFeature = f
				bestValue = split
			}
		}
	}
	return bestFeature, bestValue, bestFeature >= 0
}

func splitGini(rows [][]float64, labels []float64, feature int, split float64) float64 {
	var leftPos, leftN, rightPos, rightN float64
	for i, row := range rows {
		if row[feature] < split {
			leftN++
			leftPos += labels[i]
		} else {
			rightN++
			rightPos += labels[i]
		}
	}
	total := leftN + rightN
	return leftN/total*gini(leftPos, leftN) + rightN/total*gini(rightPos, rightN)
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}

func majorityLabel(labels []float64) float64 {
	var pos float64
	for _, l := range labels {
		pos += l
	}
	if pos*2 >= float64(len(labels)) {
		return 1
	}
	return 0
}

func pure(labels []float64) bool {
	for _, l := range labels[1:] {
		if l != labels[0] {
			return false
		}
	}
	return true
}

func (n *treeNode) predict(row []float64) float64 {
	if n.feature < 0 {
		return n.label
	}
	if row[n.feature] < n.split {
		return n.left.predict(row)
	}
	return n.right.predict(row)
}

func (d *Tree) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != d.dim {
			return nil, errors.QueryInputf("sample row has %d coordinates, trained on %d", len(row), d.dim)
		}
		out[i] = d.root.predict(row)
	}
	return out, nil
}
