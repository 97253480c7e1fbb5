package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanStd returns the mean and population standard deviation of xs.
func MeanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.PopMeanStdDev(xs, nil)
}

// Consistency is 100 minus the coefficient of variation in percent, floored at 0.
func Consistency(xs []float64) float64 {
	m, s := MeanStd(xs)
	if m <= 0 {
		return 0
	}
	return math.Max(0, 100-100*s/m)
}

// Slope fits y = a + b*x by least squares and returns b. Fewer than two
// points or no spread in x yields 0.
func Slope(xs, ys []float64) float64 {
	_, b := Line(xs, ys)
	return b
}

// Line returns intercept and slope of the least-squares fit.
func Line(xs, ys []float64) (float64, float64) {
	if len(xs) < 2 || len(xs) != len(ys) {
		if len(ys) > 0 {
			return ys[len(ys)-1], 0
		}
		return 0, 0
	}
	if _, sx := MeanStd(xs); sx == 0 {
		m, _ := MeanStd(ys)
		return m, 0
	}
	a, b := stat.LinearRegression(xs, ys, nil, false)
	return a, b
}

// Pearson is the correlation coefficient, or 0 when either series is flat.
func Pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	_, sx := MeanStd(xs)
	_, sy := MeanStd(ys)
	if sx == 0 || sy == 0 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
