// Package portfolio sizes multi-asset allocations from daily return
// histories. Inputs are undefined-free return slices aligned by position;
// callers drop undefined values and align calendars before optimizing.
package portfolio

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdesk-lab/quantdesk/internal/risk"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Method selects the weighting scheme.
type Method string

const (
	// MethodEqualWeight assigns 1/n to every asset.
	MethodEqualWeight Method = "equal_weight"
	// MethodRiskParity weights assets by inverse volatility.
	MethodRiskParity Method = "risk_parity"
	// MethodMinimumVariance solves the unconstrained minimum variance
	// portfolio from the sample covariance matrix.
	MethodMinimumVariance Method = "minimum_variance"
)

// AllMethods lists the supported weighting schemes in wire order.
func AllMethods() []Method {
	return []Method{MethodEqualWeight, MethodRiskParity, MethodMinimumVariance}
}

// ParseMethod maps a wire name onto a Method.
func ParseMethod(name string) (Method, error) {
	for _, m := range AllMethods() {
		if string(m) == name {
			return m, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnknownMethod, "unknown optimization method %q, expected one of equal_weight, risk_parity, minimum_variance", name)
}

// Asset pairs a symbol with its daily return history.
type Asset struct {
	Symbol  string
	Returns []float64
}

// Allocation is the result of an optimization run. Symbols and Weights are
// parallel slices in the caller's asset order.
type Allocation struct {
	Method           Method
	Symbols          []string
	Weights          []float64
	PortfolioReturns []float64
	Metrics          risk.Metrics
}

// minObservations is the shortest history the volatility based methods
// accept. Sample statistics need at least two points.
const minObservations = 2

// Optimize computes asset weights with the given method, then folds the
// weighted returns into a single portfolio history and its risk metrics.
func Optimize(assets []Asset, method Method) (*Allocation, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "portfolio optimization requires at least one asset")
	}

	n := len(assets[0].Returns)
	for _, asset := range assets[1:] {
		if len(asset.Returns) != n {
			return nil, errors.Newf(errors.ErrCodeInvalidArgument, "return history length mismatch: %s has %d observations, %s has %d",
				assets[0].Symbol, n, asset.Symbol, len(asset.Returns))
		}
	}

	var (
		weights []float64
		err     error
	)
	switch method {
	case MethodEqualWeight:
		weights = equalWeights(len(assets))
	case MethodRiskParity:
		weights, err = riskParityWeights(assets)
	case MethodMinimumVariance:
		weights, err = minimumVarianceWeights(assets)
	}
	if err != nil {
		return nil, err
	}

	portfolioReturns := make([]float64, n)
	for t := 0; t < n; t++ {
		var sum float64
		for i, asset := range assets {
			sum += weights[i] * asset.Returns[t]
		}
		portfolioReturns[t] = sum
	}

	symbols := make([]string, len(assets))
	for i, asset := range assets {
		symbols[i] = asset.Symbol
	}

	return &Allocation{
		Method:           method,
		Symbols:          symbols,
		Weights:          weights,
		PortfolioReturns: portfolioReturns,
		Metrics:          risk.Compute(portfolioReturns),
	}, nil
}

func equalWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}

	return weights
}

// riskParityWeights assigns each asset a weight proportional to the inverse
// of its daily return volatility.
func riskParityWeights(assets []Asset) ([]float64, error) {
	weights := make([]float64, len(assets))

	var total float64
	for i, asset := range assets {
		if len(asset.Returns) < minObservations {
			return nil, errors.NewInsufficientDataErrorf(minObservations, len(asset.Returns), asset.Symbol,
				"risk parity needs at least %d observations per asset", minObservations)
		}
		vol := stat.StdDev(asset.Returns, nil)
		if vol == 0 || math.IsNaN(vol) {
			return nil, errors.Newf(errors.ErrCodeComputation, "risk parity is undefined for %s: zero return volatility", asset.Symbol)
		}
		weights[i] = 1 / vol
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}

	return weights, nil
}

// minimumVarianceWeights solves w = pinv(C) * ones, normalized to sum to
// one, where C is the sample covariance matrix. The pseudoinverse keeps the
// solve well defined when the covariance matrix is singular, for example
// when two assets move in lockstep. Weights may be negative.
func minimumVarianceWeights(assets []Asset) ([]float64, error) {
	d := len(assets)
	n := len(assets[0].Returns)
	if n < minObservations {
		return nil, errors.NewInsufficientDataErrorf(minObservations, n, assets[0].Symbol,
			"minimum variance needs at least %d observations per asset", minObservations)
	}

	samples := mat.NewDense(n, d, nil)
	for j, asset := range assets {
		for i, v := range asset.Returns {
			samples.Set(i, j, v)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, samples, nil)

	inverse, err := pseudoInverse(&cov)
	if err != nil {
		return nil, err
	}

	ones := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		ones.SetVec(i, 1)
	}

	var raw mat.VecDense
	raw.MulVec(inverse, ones)

	// The raw weights are normalized by their sum. When the sum cancels to
	// zero, as it does for a perfectly hedged pair, there is no finite
	// normalization.
	var total, scale float64
	for i := 0; i < d; i++ {
		total += raw.AtVec(i)
		scale += math.Abs(raw.AtVec(i))
	}
	if scale == 0 || math.IsNaN(total) || math.Abs(total) <= 1e-9*scale {
		return nil, errors.New(errors.ErrCodeDegenerateWeights, "minimum variance weights are degenerate: pseudoinverse row sums cancel to zero")
	}

	weights := make([]float64, d)
	for i := 0; i < d; i++ {
		weights[i] = raw.AtVec(i) / total
	}

	return weights, nil
}

// pseudoInverse computes the Moore-Penrose pseudoinverse by zeroing singular
// values at or below 1e-15 of the largest one.
func pseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errors.New(errors.ErrCodeComputation, "covariance matrix factorization failed")
	}

	values := svd.Values(nil)
	var cutoff float64
	if len(values) > 0 {
		cutoff = 1e-15 * values[0]
	}

	reciprocals := make([]float64, len(values))
	for i, s := range values {
		if s > cutoff {
			reciprocals[i] = 1 / s
		}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var scaled, inverse mat.Dense
	scaled.Mul(&v, mat.NewDiagDense(len(reciprocals), reciprocals))
	inverse.Mul(&scaled, u.T())

	return &inverse, nil
}
