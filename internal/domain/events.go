package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventName identifies a notification.
type EventName string

const (
	EventPolicyCreated   EventName = "PolicyCreated"
	EventWeatherChecked  EventName = "WeatherChecked"
	EventPolicyTriggered EventName = "PolicyTriggered"
	EventConditionNotMet EventName = "ConditionNotMet"
)

// Payload is the event-specific field set.
type Payload interface {
	EventName() EventName
}

// PolicyCreated is emitted after a successful registration.
type PolicyCreated struct {
	Beneficiary  string  `json:"beneficiary"`
	Location     string  `json:"location"`
	ThresholdMm  float64 `json:"threshold_mm"`
	PayoutAmount uint64  `json:"payout_amount"`
}

// WeatherChecked is emitted for every completed fetch, before the trigger decision.
type WeatherChecked struct {
	Location    string  `json:"location"`
	RainfallMm  float64 `json:"rainfall_mm"`
	ThresholdMm float64 `json:"threshold_mm"`
}

// PolicyTriggered is emitted once the payout transfer has succeeded.
type PolicyTriggered struct {
	Beneficiary  string  `json:"beneficiary"`
	RainfallMm   float64 `json:"rainfall_mm"`
	PayoutAmount uint64  `json:"payout_amount"`
}

// ConditionNotMet is emitted when measured rainfall is below the threshold.
type ConditionNotMet struct {
	RainfallMm  float64 `json:"rainfall_mm"`
	ThresholdMm float64 `json:"threshold_mm"`
}

func (PolicyCreated) EventName() EventName   { return EventPolicyCreated }
func (WeatherChecked) EventName() EventName  { return EventWeatherChecked }
func (PolicyTriggered) EventName() EventName { return EventPolicyTriggered }
func (ConditionNotMet) EventName() EventName { return EventConditionNotMet }

// Event is the envelope delivered to notification sinks.
type Event struct {
	ID         string    `json:"id"`
	Name       EventName `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Payload   `json:"payload"`
}

// NewEvent wraps a payload with a fresh ID and the current time.
func NewEvent(p Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       p.EventName(),
		OccurredAt: clock.Now().UTC(),
		Payload:    p,
	}
}
