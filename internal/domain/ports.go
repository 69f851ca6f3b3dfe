package domain

import "context"

// PolicyStore holds the single policy record. It performs no validation.
type PolicyStore interface {
	// Get returns the current policy. found is false before the first registration.
	Get(ctx context.Context) (p Policy, found bool, err error)
	// Put replaces the stored policy in full.
	Put(ctx context.Context, p Policy) error
}

// RainfallReading is a data source response. OneHourMm is nil when the source
// reported no rainfall measurement for the most recent hour.
type RainfallReading struct {
	OneHourMm *float64
}

// RainfallMm returns the most recent hourly rainfall, treating a missing
// measurement as no rain.
func (r RainfallReading) RainfallMm() float64 {
	if r.OneHourMm == nil {
		return 0.0
	}
	return *r.OneHourMm
}

// DataSource fetches current rainfall for a named location.
type DataSource interface {
	FetchRainfall(ctx context.Context, location, credential string) (RainfallReading, error)
}

// Ledger moves tokens between accounts.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// NotificationSink delivers events. Emit is fire-and-forget: implementations
// must not block the caller on delivery and report failures out of band.
type NotificationSink interface {
	Emit(ctx context.Context, event Event)
}

// Outcome is the result of a successful evaluation.
type Outcome string

const (
	OutcomeTriggered       Outcome = "triggered"
	OutcomeConditionNotMet Outcome = "condition_not_met"
)

// Evaluation reports what an evaluation observed and decided.
type Evaluation struct {
	Outcome      Outcome `json:"outcome"`
	Location     string  `json:"location"`
	RainfallMm   float64 `json:"rainfall_mm"`
	ThresholdMm  float64 `json:"threshold_mm"`
	PayoutAmount uint64  `json:"payout_amount,omitempty"`
}

// Triggered applies the inclusive trigger rule with no tolerance.
func Triggered(rainfallMm, thresholdMm float64) bool {
	return rainfallMm >= thresholdMm
}
