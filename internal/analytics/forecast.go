package analytics

import (
	"fmt"
	"math"

	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

const (
	// ConsistencyWeight and TrendStrengthWeight split forecast confidence
	// between series stability and linear fit.
	ConsistencyWeight   = 0.6
	TrendStrengthWeight = 0.4
	MinConfidence       = 0.1
	MaxConfidence       = 0.95
	// ReliableConfidence is the lowest confidence reported without an
	// unreliable-forecast warning.
	ReliableConfidence = 0.5
	MinForecastPoints  = 3
)

// Horizons maps timeframe names to monthly periods.
var Horizons = map[string]int{
	"3_months": 3,
	"6_months": 6,
	"1_year":   12,
	"2_years":  24,
	"5_years":  60,
}

// HorizonNames lists Horizons shortest first.
var HorizonNames = []string{"3_months", "6_months", "1_year", "2_years", "5_years"}

func HorizonPeriods(timeframe string) (int, error) {
	if timeframe == "" {
		timeframe = "1_year"
	}
	p, ok := Horizons[timeframe]
	if !ok {
		return 0, errs.New(errs.KindInvalidArgument, fmt.Sprintf("unknown timeframe %q", timeframe), errs.ErrInvalidArgument)
	}
	return p, nil
}

type Forecast struct {
	Periods         int       `json:"periods"`
	Current         float64   `json:"current"`
	Linear          float64   `json:"linear"`
	Exponential     float64   `json:"exponential"`
	Ensemble        float64   `json:"ensemble"`
	Slope           float64   `json:"slope"`
	Consistency     float64   `json:"consistency"`
	TrendStrength   float64   `json:"trend_strength"`
	Confidence      float64   `json:"confidence"`
	ConfidenceLabel string    `json:"confidence_label"`
	Reliable        bool      `json:"reliable"`
	Path            []float64 `json:"path"`
}

// ForecastSeries projects series (one value per period, oldest first)
// periods ahead with a linear fit, an exponentially weighted recent
// improvement, and their clipped mean.
func ForecastSeries(series []float64, periods int) (*Forecast, error) {
	if len(series) < MinForecastPoints {
		return nil, errs.New(errs.KindInsufficientData,
			fmt.Sprintf("forecast needs at least %d periods of data, have %d", MinForecastPoints, len(series)),
			errs.ErrInsufficientData)
	}
	if periods <= 0 {
		return nil, errs.New(errs.KindInvalidArgument, "periods must be positive", errs.ErrInvalidArgument)
	}
	n := len(series)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	a, b := scoring.Line(xs, series)
	last := series[n-1]
	improvement := weightedImprovement(series)

	at := func(k int) (float64, float64, float64) {
		lin := a + b*float64(n-1+k)
		exp := last + improvement*float64(k)
		return lin, exp, scoring.Clamp((lin+exp)/2, 0, 100)
	}

	f := &Forecast{Periods: periods, Current: last, Slope: b, Path: make([]float64, 0, periods)}
	for k := 1; k <= periods; k++ {
		lin, exp, ens := at(k)
		f.Path = append(f.Path, scoring.Round(ens, 2))
		if k == periods {
			f.Linear, f.Exponential, f.Ensemble = lin, exp, ens
		}
	}

	f.Consistency = seriesConsistency(series)
	f.TrendStrength = math.Abs(scoring.Pearson(xs, series))
	f.Confidence = scoring.Clamp(ConsistencyWeight*f.Consistency+TrendStrengthWeight*f.TrendStrength, MinConfidence, MaxConfidence)
	f.ConfidenceLabel = confidenceLabel(f.Confidence)
	f.Reliable = f.Confidence >= ReliableConfidence
	return f, nil
}

// weightedImprovement averages period-over-period changes with weights
// e^i / e^max, so the latest change counts most.
func weightedImprovement(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}
	maxW := math.Exp(float64(n - 1))
	var num, den float64
	for i := 1; i < n; i++ {
		w := math.Exp(float64(i)) / maxW
		num += w * (series[i] - series[i-1])
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// seriesConsistency is 1 - sigma/mu clipped to [0, 1].
func seriesConsistency(series []float64) float64 {
	m, s := scoring.MeanStd(series)
	if m <= 0 {
		return 0
	}
	return scoring.Clamp(1-s/m, 0, 1)
}

func confidenceLabel(c float64) string {
	switch {
	case c >= 0.75:
		return "high"
	case c >= ReliableConfidence:
		return "medium"
	default:
		return "low"
	}
}
