// Package engine implements policy registration and conditional payout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/couchcryptid/rainfall-insurance-service/internal/observability"
)

// Engine owns the policy lifecycle. Every call runs under a single mutex, so
// two evaluations can never both observe an unpaid policy and both transfer.
type Engine struct {
	mu sync.Mutex

	store   domain.PolicyStore
	source  domain.DataSource
	ledger  domain.Ledger
	vault   string
	sink    domain.NotificationSink
	logger  *slog.Logger
	metrics *observability.Metrics

	// unrecorded is a policy whose payout transferred but whose settlement
	// write failed. While set, the policy is treated as settled and the write
	// is retried on every call.
	unrecorded *domain.Policy
}

// Pinger is implemented by stores that can probe their backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates an Engine. vault is the holding account payouts are drawn from.
func New(
	store domain.PolicyStore,
	source domain.DataSource,
	ledger domain.Ledger,
	vault string,
	sink domain.NotificationSink,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		store:   store,
		source:  source,
		ledger:  ledger,
		vault:   vault,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// Register creates or replaces the policy with caller as beneficiary.
// Checks run in order: settled policy, threshold floor, payout ceiling.
func (e *Engine) Register(ctx context.Context, caller string, reg domain.Registration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.settlePending(ctx) {
		e.metrics.Registrations.WithLabelValues("already_settled").Inc()
		return domain.ErrAlreadySettled
	}

	current, _, err := e.store.Get(ctx)
	if err != nil {
		e.metrics.Registrations.WithLabelValues("error").Inc()
		return fmt.Errorf("load policy: %w", err)
	}
	if current.PaidOut {
		e.metrics.Registrations.WithLabelValues("already_settled").Inc()
		return domain.ErrAlreadySettled
	}
	if err := reg.Validate(); err != nil {
		e.metrics.Registrations.WithLabelValues(registrationOutcome(err)).Inc()
		return err
	}

	policy := domain.NewPolicy(caller, reg)
	if err := e.store.Put(ctx, policy); err != nil {
		e.metrics.Registrations.WithLabelValues("error").Inc()
		return fmt.Errorf("store policy: %w", err)
	}

	e.metrics.Registrations.WithLabelValues("created").Inc()
	e.metrics.PolicySettled.Set(0)
	e.logger.Info("policy registered", "policy", policy)
	e.emit(ctx, domain.PolicyCreated{
		Beneficiary:  policy.Beneficiary,
		Location:     policy.Location,
		ThresholdMm:  policy.ThresholdMm,
		PayoutAmount: policy.PayoutAmount,
	})
	return nil
}

// EvaluateAndPay fetches current rainfall for the policy location and pays the
// beneficiary once if it meets the threshold. A failed transfer leaves the
// policy unpaid so a later evaluation can retry.
func (e *Engine) EvaluateAndPay(ctx context.Context) (domain.Evaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.settlePending(ctx) {
		e.metrics.Evaluations.WithLabelValues("already_settled").Inc()
		return domain.Evaluation{}, domain.ErrAlreadySettled
	}

	policy, found, err := e.store.Get(ctx)
	if err != nil {
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		return domain.Evaluation{}, fmt.Errorf("load policy: %w", err)
	}
	if !found {
		e.metrics.Evaluations.WithLabelValues("not_registered").Inc()
		return domain.Evaluation{}, domain.ErrNotRegistered
	}
	if policy.PaidOut {
		e.metrics.Evaluations.WithLabelValues("already_settled").Inc()
		return domain.Evaluation{}, domain.ErrAlreadySettled
	}

	rainfall, err := e.fetchRainfall(ctx, policy)
	if err != nil {
		e.metrics.Evaluations.WithLabelValues("data_source_error").Inc()
		e.logger.Warn("rainfall fetch failed", "location", policy.Location, "error", err)
		return domain.Evaluation{}, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
	}

	e.emit(ctx, domain.WeatherChecked{
		Location:    policy.Location,
		RainfallMm:  rainfall,
		ThresholdMm: policy.ThresholdMm,
	})

	eval := domain.Evaluation{
		Outcome:     domain.OutcomeConditionNotMet,
		Location:    policy.Location,
		RainfallMm:  rainfall,
		ThresholdMm: policy.ThresholdMm,
	}

	if !domain.Triggered(rainfall, policy.ThresholdMm) {
		e.metrics.Evaluations.WithLabelValues(string(domain.OutcomeConditionNotMet)).Inc()
		e.logger.Debug("condition not met",
			"location", policy.Location,
			"rainfall_mm", rainfall,
			"threshold_mm", policy.ThresholdMm,
		)
		e.emit(ctx, domain.ConditionNotMet{RainfallMm: rainfall, ThresholdMm: policy.ThresholdMm})
		return eval, nil
	}

	if err := e.payout(ctx, policy); err != nil {
		return domain.Evaluation{}, err
	}

	eval.Outcome = domain.OutcomeTriggered
	eval.PayoutAmount = policy.PayoutAmount
	e.metrics.Evaluations.WithLabelValues(string(domain.OutcomeTriggered)).Inc()
	e.logger.Info("policy triggered",
		"beneficiary", policy.Beneficiary,
		"rainfall_mm", rainfall,
		"payout_amount", policy.PayoutAmount,
	)
	e.emit(ctx, domain.PolicyTriggered{
		Beneficiary:  policy.Beneficiary,
		RainfallMm:   rainfall,
		PayoutAmount: policy.PayoutAmount,
	})
	return eval, nil
}

// Policy returns the stored policy and its lifecycle state.
func (e *Engine) Policy(ctx context.Context) (domain.Policy, domain.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unrecorded != nil {
		return *e.unrecorded, domain.StateSettled, nil
	}
	p, found, err := e.store.Get(ctx)
	if err != nil {
		return domain.Policy{}, domain.StateUnset, fmt.Errorf("load policy: %w", err)
	}
	return p, domain.StateOf(p, found), nil
}

// CheckReadiness reports whether the policy store is reachable.
func (e *Engine) CheckReadiness(ctx context.Context) error {
	if p, ok := e.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("policy store unavailable: %w", err)
		}
	}
	if _, _, err := e.store.Get(ctx); err != nil {
		return fmt.Errorf("policy store unavailable: %w", err)
	}
	return nil
}

func (e *Engine) fetchRainfall(ctx context.Context, policy domain.Policy) (float64, error) {
	start := time.Now()
	reading, err := e.source.FetchRainfall(ctx, policy.Location, policy.Credential)
	e.metrics.DataSourceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	rainfall := reading.RainfallMm()
	e.metrics.RainfallMm.Observe(rainfall)
	return rainfall, nil
}

// payout re-checks settlement, transfers, then commits paidOut. The store is
// written only after the ledger confirms the transfer, and that write is
// detached from the caller's cancellation.
func (e *Engine) payout(ctx context.Context, policy domain.Policy) error {
	latest, _, err := e.store.Get(ctx)
	if err != nil {
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		return fmt.Errorf("reload policy: %w", err)
	}
	if latest.PaidOut {
		e.metrics.Evaluations.WithLabelValues("already_settled").Inc()
		return domain.ErrAlreadySettled
	}
	if err := ctx.Err(); err != nil {
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		return fmt.Errorf("evaluation cancelled before payout: %w", err)
	}

	if err := e.ledger.Transfer(ctx, e.vault, policy.Beneficiary, policy.PayoutAmount); err != nil {
		e.metrics.Evaluations.WithLabelValues("payout_error").Inc()
		e.logger.Warn("payout transfer failed, policy remains active",
			"beneficiary", policy.Beneficiary,
			"payout_amount", policy.PayoutAmount,
			"error", err,
		)
		return fmt.Errorf("%w: %w", domain.ErrPayout, err)
	}

	e.metrics.PolicySettled.Set(1)
	e.metrics.Payouts.Inc()
	e.metrics.PayoutTokens.Add(float64(policy.PayoutAmount))

	settled := policy.Settled()
	if err := e.store.Put(context.WithoutCancel(ctx), settled); err != nil {
		e.unrecorded = &settled
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		e.logger.Error("payout transferred but settlement not stored",
			"beneficiary", policy.Beneficiary,
			"payout_amount", policy.PayoutAmount,
			"error", err,
		)
		return fmt.Errorf("store settlement: %w", err)
	}
	return nil
}

// settlePending retries a settlement write left over from a failed commit.
// It reports whether a payout has already been made.
func (e *Engine) settlePending(ctx context.Context) bool {
	if e.unrecorded == nil {
		return false
	}
	if err := e.store.Put(context.WithoutCancel(ctx), *e.unrecorded); err != nil {
		e.logger.Error("settlement still not stored", "beneficiary", e.unrecorded.Beneficiary, "error", err)
		return true
	}
	e.logger.Info("pending settlement stored", "beneficiary", e.unrecorded.Beneficiary)
	e.unrecorded = nil
	return true
}

func (e *Engine) emit(ctx context.Context, p domain.Payload) {
	e.sink.Emit(ctx, domain.NewEvent(p))
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrThresholdTooLow):
		return "threshold_too_low"
	case errors.Is(err, domain.ErrPayoutTooHigh):
		return "payout_too_high"
	default:
		return "error"
	}
}
