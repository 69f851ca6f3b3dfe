package domain

import (
	"log/slog"
	"time"
)

const (
	// MinThresholdMm is the lowest rainfall threshold a policy may register.
	MinThresholdMm = 0.1
	// MaxPayoutAmount is the largest payout, in token units, a policy may register.
	MaxPayoutAmount uint64 = 200
)

// State is the lifecycle position of the stored policy.
type State string

const (
	StateUnset   State = "unset"
	StateActive  State = "active"
	StateSettled State = "settled"
)

// Policy is the single stored insurance agreement.
type Policy struct {
	Beneficiary  string    `json:"beneficiary"`
	Location     string    `json:"location"`
	ThresholdMm  float64   `json:"threshold_mm"`
	PayoutAmount uint64    `json:"payout_amount"`
	PaidOut      bool      `json:"paid_out"`
	Credential   string    `json:"-"` // data source credential; never serialized or logged
	UpdatedAt    time.Time `json:"updated_at"`
}

// LogValue redacts the data source credential.
func (p Policy) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("beneficiary", p.Beneficiary),
		slog.String("location", p.Location),
		slog.Float64("threshold_mm", p.ThresholdMm),
		slog.Uint64("payout_amount", p.PayoutAmount),
		slog.Bool("paid_out", p.PaidOut),
	)
}

// Registration carries the caller-supplied fields of a new policy.
// The beneficiary is not part of it: it is always the authenticated caller.
type Registration struct {
	Location     string  `json:"location"`
	ThresholdMm  float64 `json:"threshold_mm"`
	PayoutAmount uint64  `json:"payout_amount"`
	Credential   string  `json:"data_source_credential"`
}

// Validate checks the exposure caps. NaN thresholds fail the floor check.
func (r Registration) Validate() error {
	if !(r.ThresholdMm >= MinThresholdMm) {
		return ErrThresholdTooLow
	}
	if r.PayoutAmount > MaxPayoutAmount {
		return ErrPayoutTooHigh
	}
	return nil
}

// NewPolicy builds the unpaid policy for a validated registration.
func NewPolicy(beneficiary string, r Registration) Policy {
	return Policy{
		Beneficiary:  beneficiary,
		Location:     r.Location,
		ThresholdMm:  r.ThresholdMm,
		PayoutAmount: r.PayoutAmount,
		Credential:   r.Credential,
		PaidOut:      false,
		UpdatedAt:    clock.Now().UTC(),
	}
}

// Settled returns a copy of p marked as paid out.
func (p Policy) Settled() Policy {
	p.PaidOut = true
	p.UpdatedAt = clock.Now().UTC()
	return p
}

// StateOf derives the lifecycle state from a store lookup.
func StateOf(p Policy, found bool) State {
	switch {
	case !found:
		return StateUnset
	case p.PaidOut:
		return StateSettled
	default:
		return StateActive
	}
}
