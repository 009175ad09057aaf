// Package regression fits simple curves to vote-history series and reports
// how well each curve explains the data.
package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Fit is the result of fitting one curve to a series.
type Fit struct {
	Intercept float64
	Slope     float64
	Predicted []float64
	R2        float64
	OK        bool
}

// Linear fits y = a + b*x by ordinary least squares.
func Linear(xs, ys []float64) Fit {
	if len(xs) < 2 || len(xs) != len(ys) {
		return Fit{}
	}
	a, b := stat.LinearRegression(xs, ys, nil, false)
	if !finite(a) || !finite(b) {
		return Fit{}
	}
	pred := make([]float64, len(xs))
	for i, x := range xs {
		pred[i] = a + b*x
	}
	return Fit{Intercept: a, Slope: b, Predicted: pred, R2: Determination(ys, pred), OK: true}
}

// Exponential fits y = A*exp(b*x). The fit regresses ln(y) on x weighted by y,
// so only points with y > 0 take part in the fit. Predictions cover every
// point. Intercept holds ln(A).
func Exponential(xs, ys []float64) Fit {
	if len(xs) != len(ys) {
		return Fit{}
	}
	var fx, fy, w []float64
	for i, y := range ys {
		if y > 0 {
			fx = append(fx, xs[i])
			fy = append(fy, math.Log(y))
			w = append(w, y)
		}
	}
	if len(fx) < 2 {
		return Fit{}
	}
	a, b := stat.LinearRegression(fx, fy, w, false)
	if !finite(a) || !finite(b) {
		return Fit{}
	}
	pred := make([]float64, len(xs))
	for i, x := range xs {
		pred[i] = math.Exp(a + b*x)
	}
	return Fit{Intercept: a, Slope: b, Predicted: pred, R2: Determination(ys, pred), OK: true}
}

// Determination returns the squared Pearson correlation between the actual
// and fitted values. Undefined or negative correlations count as zero.
func Determination(actual, predicted []float64) float64 {
	if len(actual) < 2 || len(actual) != len(predicted) {
		return 0
	}
	r := stat.Correlation(actual, predicted, nil)
	if !finite(r) || r < 0 {
		return 0
	}
	return r * r
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
