// Package domain models a single parametric rainfall insurance policy.
//
// # Policy Lifecycle
//
// A policy is registered by a beneficiary with a location, a rainfall
// threshold in millimeters, and a fixed payout in token units. Any caller may
// then ask for an evaluation: current rainfall for the location is fetched
// from an external data source and compared against the threshold.
//
//	UNSET   --register(valid)-->                     ACTIVE
//	ACTIVE  --register(valid)-->                     ACTIVE  (full overwrite)
//	ACTIVE  --evaluate(rain < threshold)-->          ACTIVE
//	ACTIVE  --evaluate(rain >= threshold, paid)-->   SETTLED
//	ACTIVE  --evaluate(rain >= threshold, failed)--> ACTIVE  (retry possible)
//	SETTLED --register | evaluate-->                 ErrAlreadySettled
//
// SETTLED is terminal: there is no renewal path.
//
// # Exposure Caps
//
// Registration enforces a threshold floor of [MinThresholdMm] (0.1 mm) and a
// payout ceiling of [MaxPayoutAmount] (200 tokens). The caps bound how often
// and how much the holding vault can pay out.
//
// # Rainfall Data
//
// The data source reports rainfall for the most recent hour. A response with
// no rainfall measurement means no rain fell, so [RainfallReading.RainfallMm]
// returns 0.0 rather than an error.
//
// The trigger comparison is a literal, inclusive floating-point `>=` with no
// epsilon. A reading that is meant to equal the threshold but differs in its
// last binary digit will not trigger; this is a known precision risk.
//
// # Notifications
//
// Four events leave the domain through a [NotificationSink]: PolicyCreated,
// WeatherChecked, PolicyTriggered and ConditionNotMet. Each carries a UUID and
// a timestamp taken from the package clock (see [SetClock]).
package domain
