package policy

import (
	"fmt"

	"circapi/internal/config"
	"circapi/internal/model"
)

// PenaltyPolicy prices late returns. It is a collaborator of the loan
// lifecycle: the engine asks for an amount, the policy owns the tariff.
type PenaltyPolicy interface {
	// Amount returns the penalty in cents for a loan of the given kind
	// returned daysLate days after its due date. Zero means no penalty.
	Amount(kind model.DocumentKind, daysLate int) (int64, error)
}

// Standard applies a per-kind daily rate after a grace period, capped by a
// per-kind maximum: min(max, rate × max(0, daysLate − grace)).
type Standard struct {
	kinds map[model.DocumentKind]config.KindPolicy
}

var _ PenaltyPolicy = (*Standard)(nil)

// NewStandard builds the policy from configuration.
func NewStandard(kinds map[model.DocumentKind]config.KindPolicy) *Standard {
	return &Standard{kinds: kinds}
}

func (p *Standard) Amount(kind model.DocumentKind, daysLate int) (int64, error) {
	kp, ok := p.kinds[kind]
	if !ok {
		return 0, fmt.Errorf("no penalty policy for document kind %q", kind)
	}
	if daysLate <= 0 {
		return 0, nil
	}
	billable := daysLate - kp.GracePeriodDays
	if billable <= 0 {
		return 0, nil
	}
	amount := kp.DailyRateCents * int64(billable)
	if amount > kp.MaxPenaltyCents {
		amount = kp.MaxPenaltyCents
	}
	return amount, nil
}
