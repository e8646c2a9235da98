package services

import (
	"math"
	"time"

	"amx-support-bot/internal/apperrors"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/constants"
	"amx-support-bot/internal/models"
)

// ValidationState classifies an order's subscription window
type ValidationState int

const (
	// SubscriptionValid means the order is inside its validity window
	SubscriptionValid ValidationState = iota
	// SubscriptionExpired means the window or the grace threshold has passed
	SubscriptionExpired
)

// String returns the user-facing state name
func (s ValidationState) String() string {
	if s == SubscriptionValid {
		return "Valid"
	}
	return "Expired"
}

// Evaluation is the outcome of validating one order at a point in time.
// Replacement and NoReplacement distinguish "directory has no entry for
// this package" from "no replacement surfaced because the order expired".
type Evaluation struct {
	Found            bool
	State            ValidationState
	DaysLeft         int
	RenewalSuggested bool
	Replacement      *models.Endpoint
	NoReplacement    bool
}

// SubscriptionValidator computes order validity against the configured
// expiry rules. Evaluation itself has no side effects; messaging and
// logging of results belong to the caller.
type SubscriptionValidator struct {
	records *RecordService
	rules   config.SubscriptionConfig
}

// NewSubscriptionValidator creates a new subscription validator
func NewSubscriptionValidator(records *RecordService, cfg *config.Config) *SubscriptionValidator {
	return &SubscriptionValidator{
		records: records,
		rules:   cfg.Subscription,
	}
}

// EvaluateOrder looks up orderID and evaluates it at now. An unknown id
// yields a NotFoundError and no evaluation.
func (v *SubscriptionValidator) EvaluateOrder(orderID string, now time.Time) (models.Order, Evaluation, error) {
	order, ok := v.records.Order(orderID)
	if !ok {
		return models.Order{}, Evaluation{}, &apperrors.NotFoundError{Kind: "order", Key: orderID}
	}

	eval, err := v.Evaluate(orderID, order, now)
	return order, eval, err
}

// Evaluate applies the expiry rules to a single order at now.
//
// The grace cutoff is checked before the validity window: an order older
// than GraceDays is Expired and surfaces no replacement info even if it is
// nominally still inside the window. RenewalSuggested depends only on the
// days left, so an already-expired order still gets the suggestion.
func (v *SubscriptionValidator) Evaluate(orderID string, order models.Order, now time.Time) (Evaluation, error) {
	orderDate, err := time.Parse(constants.OrderDateLayout, order.OrderDate)
	if err != nil {
		return Evaluation{Found: true}, &apperrors.MalformedDateError{OrderID: orderID, Value: order.OrderDate}
	}

	validUntil := orderDate.AddDate(0, 0, v.rules.ValidityDays)
	daysLeft := floorDays(validUntil.Sub(now))
	elapsed := floorDays(now.Sub(orderDate))

	eval := Evaluation{
		Found:            true,
		DaysLeft:         daysLeft,
		RenewalSuggested: daysLeft <= v.rules.RenewalWarningDays,
	}

	switch {
	case elapsed >= v.rules.GraceDays:
		eval.State = SubscriptionExpired
	case !now.After(validUntil):
		eval.State = SubscriptionValid
		if endpoint, ok := v.records.Replacement(order.Package); ok {
			eval.Replacement = &endpoint
		} else {
			eval.NoReplacement = true
		}
	default:
		eval.State = SubscriptionExpired
	}

	return eval, nil
}

// floorDays converts a duration to whole days, rounding toward minus
// infinity so a partial day short still counts as a full day short.
func floorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
