package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/engine/regression"
	"github.com/boddenberg/finml/internal/infra/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Minimum input sizes for a forecast.
const (
	minHistoryRecords = 3
	minDistinctMonths = 2
)

// Recommendation thresholds relative to the historical monthly mean.
const (
	increaseFactor   = 1.1
	decreaseFactor   = 0.9
	volatilityFactor = 0.5
	confidenceFloor  = 0.1
)

// dateLayouts are tried in order when parsing expense dates.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
	"01/02/2006",
	"2006/01/02",
}

var (
	errMissingDate   = errors.New("date is missing")
	errMissingAmount = errors.New("amount is missing")
)

// Forecaster projects monthly spending from a caller-supplied history.
// It holds no model state between calls.
type Forecaster struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewForecaster creates the forecaster.
func NewForecaster(metrics *observability.Metrics, logger *zap.Logger) *Forecaster {
	return &Forecaster{metrics: metrics, logger: logger}
}

// PredictSpending fits a linear trend to the monthly totals of history and
// projects it monthsAhead months past the last observed month. A horizon
// below 1 uses domain.DefaultMonthsAhead. It never fails: short or malformed
// history yields an empty forecast carrying an explanatory message.
func (f *Forecaster) PredictSpending(ctx context.Context, history []domain.HistoricalExpense, monthsAhead int) domain.ForecastResult {
	_, span := tracer.Start(ctx, "Forecaster.PredictSpending")
	defer span.End()

	start := time.Now()
	defer func() {
		f.metrics.RecordRequestDuration("forecast", time.Since(start))
	}()

	if monthsAhead < 1 {
		monthsAhead = domain.DefaultMonthsAhead
	}
	span.SetAttributes(
		attribute.Int("history.records", len(history)),
		attribute.Int("months_ahead", monthsAhead),
	)

	if len(history) < minHistoryRecords {
		f.metrics.IncrForecast(observability.ForecastInsufficient)
		return domain.EmptyForecast(domain.MsgMoreDataNeeded)
	}

	months, err := AggregateMonthly(history)
	if err != nil {
		return f.degraded("aggregate", err)
	}
	if len(months) < minDistinctMonths {
		f.metrics.IncrForecast(observability.ForecastInsufficient)
		return domain.EmptyForecast(domain.MsgNeedTwoMonths)
	}

	x := make([]float64, len(months))
	totals := make([]float64, len(months))
	for i, m := range months {
		x[i] = float64(m.MonthIndex)
		totals[i] = m.Total.InexactFloat64()
	}

	line, err := regression.Fit(x, totals)
	if err != nil {
		return f.degraded("fit", err)
	}

	last := months[len(months)-1].MonthIndex
	predictions := make([]domain.MonthlyPrediction, monthsAhead)
	predicted := make([]float64, monthsAhead)
	for i := 1; i <= monthsAhead; i++ {
		amount := line.Predict(float64(last + i))
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return f.degraded("predict", fmt.Errorf("non-finite prediction for month %d", i))
		}
		amount = math.Max(0, amount)
		predictions[i-1] = domain.MonthlyPrediction{Month: i, PredictedAmount: amount}
		predicted[i-1] = amount
	}

	f.metrics.IncrForecast(observability.ForecastOK)
	return domain.ForecastResult{
		Predictions:     predictions,
		Confidence:      forecastConfidence(totals),
		Recommendations: recommendations(totals, predicted),
	}
}

func (f *Forecaster) degraded(stage string, err error) domain.ForecastResult {
	f.logger.Warn("forecast degraded", zap.String("stage", stage), zap.Error(err))
	f.metrics.IncrForecast(observability.ForecastDegraded)
	return domain.EmptyForecast(domain.MsgUnableToPredict)
}

// forecastConfidence is 1 - var(last three totals)/mean(all totals), floored
// at 0.1 and capped at 1. A zero mean yields the floor.
func forecastConfidence(totals []float64) float64 {
	mean := regression.Mean(totals)
	if mean == 0 {
		return confidenceFloor
	}
	recent := totals[max(0, len(totals)-3):]
	c := 1 - regression.SampleVariance(recent)/mean
	if math.IsNaN(c) {
		return confidenceFloor
	}
	return math.Min(1, math.Max(confidenceFloor, c))
}

// recommendations emits exactly one trend message, plus a volatility warning
// when the monthly totals vary by more than half their mean.
func recommendations(totals, predicted []float64) []string {
	histMean := regression.Mean(totals)
	predMean := regression.Mean(predicted)

	var recs []string
	switch {
	case predMean > histMean*increaseFactor:
		recs = append(recs, domain.MsgSpendingIncrease)
	case predMean < histMean*decreaseFactor:
		recs = append(recs, domain.MsgSpendingDecrease)
	default:
		recs = append(recs, domain.MsgSpendingStable)
	}

	if regression.SampleVariance(totals) > histMean*volatilityFactor {
		recs = append(recs, domain.MsgSpendingVolatile)
	}
	return recs
}

// AggregateMonthly groups history by calendar month and sums each month.
// Months are returned in chronological order with consecutive indices
// starting at 0; months absent from history get no entry.
func AggregateMonthly(history []domain.HistoricalExpense) ([]domain.MonthlyAggregate, error) {
	sums := make(map[string]decimal.Decimal)
	for i, h := range history {
		date, err := parseExpenseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		amount, err := parseExpenseAmount(h.Amount)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		key := date.Format("2006-01")
		sums[key] = sums[key].Add(amount)
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	months := make([]domain.MonthlyAggregate, len(keys))
	for i, k := range keys {
		months[i] = domain.MonthlyAggregate{MonthIndex: i, Month: k, Total: sums[k]}
	}
	return months, nil
}

// parseExpenseDate accepts a JSON string in one of dateLayouts.
func parseExpenseDate(raw json.RawMessage) (time.Time, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return time.Time{}, errMissingDate
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("date %s is not a string", text)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < 1 || t.Year() > 9999 {
				break
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseExpenseAmount accepts a JSON number or a numeric JSON string.
func parseExpenseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, errMissingAmount
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, fmt.Errorf("amount: %w", err)
		}
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", text, err)
	}
	return d, nil
}
