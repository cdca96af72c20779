package deciders

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// ridge is added to covariance diagonals so degenerate training samples
// still factorize.
const ridge = 1e-6

// GaussianNB is a naive-Bayes decider assuming per-feature independent
// Gaussians within each class.
type GaussianNB struct {
	Thresh float64

	dim     int
	pos     nbClass
	neg     nbClass
	learned bool
}

type nbClass struct {
	mean     []float64
	variance []float64
	logPrior float64
}

func (d *GaussianNB) Name() string { return "GaussianNBDec" }

func (d *GaussianNB) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *GaussianNB) Learn(positives, negatives [][]float64) error {
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	total := float64(len(positives) + len(negatives))
	d.dim = dim
	d.pos = fitNBClass(positives, dim, float64(len(positives))/total)
	d.neg = fitNBClass(negatives, dim, float64(len(negatives))/total)
	d.learned = true
	return nil
}

func fitNBClass(rows [][]float64, dim int, prior float64) nbClass {
	c := nbClass{
		mean:     make([]float64, dim),
		variance: make([]float64, dim),
		logPrior: math.Log(prior),
	}
	n := float64(len(rows))
	for _, row := range rows {
		for j, v := range row {
			c.mean[j] += v
		}
	}
	for j := range c.mean {
		c.mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			dv := v - c.mean[j]
			c.variance[j] += dv * dv
		}
	}
	for j := range c.variance {
		c.variance[j] = c.variance[j]/n + ridge
	}
	return c
}

func (c nbClass) logLikelihood(row []float64) float64 {
	ll := c.logPrior
	for j, v := range row {
		dv := v - c.mean[j]
		ll += -0.5*math.Log(2*math.Pi*c.variance[j]) - dv*dv/(2*c.variance[j])
	}
	return ll
}

func (d *GaussianNB) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != d.dim {
			return nil, errors.QueryInputf("sample row has %d coordinates, trained on %d", len(row), d.dim)
		}
		out[i] = binaryPosterior(d.pos.logLikelihood(row), d.neg.logLikelihood(row))
	}
	return out, nil
}

// binaryPosterior converts two class log scores to the positive-class
// probability with log-sum-exp stabilization.
func binaryPosterior(logPos, logNeg float64) float64 {
	m := math.Max(logPos, logNeg)
	ep := math.Exp(logPos - m)
	en := math.Exp(logNeg - m)
	return ep / (ep + en)
}

// LDA is a linear discriminant decider with a pooled class covariance.
type LDA struct {
	Thresh float64

	dim          int
	wPos, wNeg   *mat.VecDense
	bPos, bNeg   float64
	learned      bool
}

func (d *LDA) Name() string { return "LDADec" }

func (d *LDA) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *LDA) Learn(positives, negatives [][]float64) error {
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	meanPos := columnMeans(positives, dim)
	meanNeg := columnMeans(negatives, dim)

	cov := mat.NewSymDense(dim, nil)
	accumulateScatter(cov, positives, meanPos)
	accumulateScatter(cov, negatives, meanNeg)
	n := float64(len(positives) + len(negatives))
	denom := n - 2
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			cov.SetSym(i, j, cov.At(i, j)/denom)
		}
		cov.SetSym(i, i, cov.At(i, i)+ridge)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return errors.Learning("pooled covariance is not positive definite")
	}

	total := float64(len(positives) + len(negatives))
	muPos := mat.NewVecDense(dim, meanPos)
	muNeg := mat.NewVecDense(dim, meanNeg)
	d.wPos = solveVec(&chol, muPos)
	d.wNeg = solveVec(&chol, muNeg)
	if d.wPos == nil || d.wNeg == nil {
		return errors.Learning("pooled covariance solve failed")
	}
	d.bPos = -0.5*mat.Dot(muPos, d.wPos) + math.Log(float64(len(positives))/total)
	d.bNeg = -0.5*mat.Dot(muNeg, d.wNeg) + math.Log(float64(len(negatives))/total)
	d.dim = dim
	d.learned = true
	return nil
}

func (d *LDA) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != d.dim {
			return nil, errors.QueryInputf("sample row has %d coordinates, trained on %d", len(row), d.dim)
		}
		x := mat.NewVecDense(d.dim, row)
		deltaPos := mat.Dot(x, d.wPos) + d.bPos
		deltaNeg := mat.Dot(x, d.wNeg) + d.bNeg
		out[i] = binaryPosterior(deltaPos, deltaNeg)
	}
	return out, nil
}

// QDA is a quadratic discriminant decider with per-class covariances.
type QDA struct {
	Thresh float64

	dim     int
	pos     qdaClass
	neg     qdaClass
	learned bool
}

type qdaClass struct {
	mean     *mat.VecDense
	chol     mat.Cholesky
	logDet   float64
	logPrior float64
}

func (d *QDA) Name() string { return "QDADec" }

func (d *QDA) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *QDA) Learn(positives, negatives [][]float64) error {
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	total := float64(len(positives) + len(negatives))

	pos, err := fitQDAClass(positives, dim, float64(len(positives))/total)
	if err != nil {
		return err
	}
	neg, err := fitQDAClass(negatives, dim, float64(len(negatives))/total)
	if err != nil {
		return err
	}
	d.dim = dim
	d.pos = pos
	d.neg = neg
	d.learned = true
	return nil
}

func fitQDAClass(rows [][]float64, dim int, prior float64) (qdaClass, error) {
	mean := columnMeans(rows, dim)
	cov := mat.NewSymDense(dim, nil)
	accumulateScatter(cov, rows, mean)
	denom := float64(len(rows)) - 1
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			cov.SetSym(i, j, cov.At(i, j)/denom)
		}
		cov.SetSym(i, i, cov.At(i, i)+ridge)
	}

	c := qdaClass{
		mean:     mat.NewVecDense(dim, mean),
		logPrior: math.Log(prior),
	}
	if ok := c.chol.Factorize(cov); !ok {
		return qdaClass{}, errors.Learning("class covariance is not positive definite")
	}
	c.logDet = c.chol.LogDet()
	return c, nil
}

func (c *qdaClass) discriminant(row []float64) float64 {
	dim := c.mean.Len()
	diff := mat.NewVecDense(dim, nil)
	diff.SubVec(mat.NewVecDense(dim, row), c.mean)
	solved := solveVec(&c.chol, diff)
	if solved == nil {
		return math.Inf(-1)
	}
	return -0.5*c.logDet - 0.5*mat.Dot(diff, solved) + c.logPrior
}

func (d *QDA) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != d.dim {
			return nil, errors.QueryInputf("sample row has %d coordinates, trained on %d", len(row), d.dim)
		}
		out[i] = binaryPosterior(d.pos.discriminant(row), d.neg.discriminant(row))
	}
	return out, nil
}

func columnMeans(rows [][]float64, dim int) []float64 {
	mean := make([]float64, dim)
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}
	return mean
}

func accumulateScatter(cov *mat.SymDense, rows [][]float64, mean []float64) {
	dim := len(mean)
	for _, row := range rows {
		for i := 0; i < dim; i++ {
			di := row[i] - mean[i]
			for j := i; j < dim; j++ {
				cov.SetSym(i, j, cov.At(i, j)+di*(row[j]-mean[j]))
			}
		}
	}
}

func solveVec(chol *mat.Cholesky, b *mat.VecDense) *mat.VecDense {
	var out mat.VecDense
	if err := chol.SolveVecTo(&out, b); err != nil {
		return nil
	}
	return &out
}
