package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Forecasting
// ============================================================

// DefaultMonthsAhead is used when the caller does not ask for a horizon.
const DefaultMonthsAhead = 3

// Forecast recommendation messages.
const (
	MsgMoreDataNeeded   = "More data needed for accurate predictions"
	MsgNeedTwoMonths    = "Need at least 2 months of data"
	MsgUnableToPredict  = "Unable to generate predictions"
	MsgSpendingIncrease = "Spending is predicted to increase. Consider reviewing your budget."
	MsgSpendingDecrease = "Great! Your spending is predicted to decrease."
	MsgSpendingStable   = "Your spending pattern appears stable."
	MsgSpendingVolatile = "Your spending varies significantly. Try to maintain consistent spending habits."
)

// HistoricalExpense is a single spending record supplied with a forecast call.
// Date and Amount stay in wire form and are parsed during forecasting, so a
// malformed record degrades the forecast instead of rejecting the request.
type HistoricalExpense struct {
	Date   json.RawMessage `json:"date"`
	Amount json.RawMessage `json:"amount"`
}

// NewHistoricalExpense builds a record from typed values.
func NewHistoricalExpense(date time.Time, amount decimal.Decimal) HistoricalExpense {
	return HistoricalExpense{
		Date:   json.RawMessage(`"` + date.Format("2006-01-02") + `"`),
		Amount: json.RawMessage(amount.String()),
	}
}

// MonthlyAggregate is the spend of one calendar month present in the history.
// MonthIndex is the chronological rank among the months present, so gaps in
// the history do not shift the regression.
type MonthlyAggregate struct {
	MonthIndex int             `json:"month_index"`
	Month      string          `json:"month"` // YYYY-MM
	Total      decimal.Decimal `json:"total"`
}

// MonthlyPrediction is the projected spend N months after the last observed month.
type MonthlyPrediction struct {
	Month           int     `json:"month"`
	PredictedAmount float64 `json:"predicted_amount"`
}

// ForecastResult is returned by POST /forecast.
type ForecastResult struct {
	Predictions     []MonthlyPrediction `json:"predictions"`
	Confidence      float64             `json:"confidence"`
	Recommendations []string            `json:"recommendations"`
}

// EmptyForecast returns a result with no predictions and a single message.
func EmptyForecast(message string) ForecastResult {
	return ForecastResult{
		Predictions:     []MonthlyPrediction{},
		Confidence:      0,
		Recommendations: []string{message},
	}
}

// ForecastRequest is the body of POST /forecast.
// MonthsAhead is a pointer so an omitted value can fall back to the default.
type ForecastRequest struct {
	HistoricalData []HistoricalExpense `json:"historical_data"`
	MonthsAhead    *int                `json:"months_ahead,omitempty"`
}
