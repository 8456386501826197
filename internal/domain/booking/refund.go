package booking

import (
	"time"

	"reservations/internal/domain/shared/money"
)

// RefundPolicy maps the lead time before check-in to a refunded share of the total.
type RefundPolicy struct {
	FullRefundLead    time.Duration
	PartialRefundLead time.Duration
	PartialPercent    int
}

// DefaultRefundPolicy refunds everything a week ahead, half from three days ahead, nothing later.
var DefaultRefundPolicy = RefundPolicy{
	FullRefundLead:    7 * 24 * time.Hour,
	PartialRefundLead: 3 * 24 * time.Hour,
	PartialPercent:    50,
}

func (p RefundPolicy) Refund(total money.Money, checkIn, now time.Time) money.Money {
	lead := checkIn.Sub(now)
	switch {
	case lead >= p.FullRefundLead:
		return total
	case lead >= p.PartialRefundLead:
		return total.Percent(p.PartialPercent)
	default:
		return money.Zero(total.Currency)
	}
}
