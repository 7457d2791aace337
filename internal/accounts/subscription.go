package accounts

import (
	"fmt"

	"github.com/gosuda/cardvault/internal/domain"
)

// ErrSeatLimit is returned when adding a user would exceed the tenant's seats.
var ErrSeatLimit = fmt.Errorf("accounts: seat limit reached: %w", domain.ErrConflict)

// Plan describes what a subscription tier includes.
type Plan struct {
	Tier domain.SubscriptionTier
	// MaxUsers is the default seat count; 0 means unlimited.
	MaxUsers int
}

var plans = map[domain.SubscriptionTier]Plan{
	domain.TierFree:       {Tier: domain.TierFree, MaxUsers: 5},
	domain.TierPro:        {Tier: domain.TierPro, MaxUsers: 25},
	domain.TierEnterprise: {Tier: domain.TierEnterprise},
}

func PlanFor(tier domain.SubscriptionTier) (Plan, bool) {
	p, ok := plans[tier]
	return p, ok
}

// Unlimited reports whether the plan has no seat cap.
func (p Plan) Unlimited() bool { return p.MaxUsers == 0 }

// ValidateSeats checks a requested seat count against the plan. 0 selects the
// plan default.
func (p Plan) ValidateSeats(maxUsers int) error {
	if maxUsers < 0 {
		return &domain.ValidationError{Field: "max_users", Reason: "must not be negative"}
	}
	if !p.Unlimited() && maxUsers > p.MaxUsers {
		return &domain.ValidationError{
			Field:  "max_users",
			Reason: fmt.Sprintf("the %s plan allows at most %d users", p.Tier, p.MaxUsers),
		}
	}
	return nil
}

// SeatLimit returns the number of users t may have, 0 for unlimited. The
// tenant's own MaxUsers wins over the plan default.
func SeatLimit(t *domain.Tenant) int {
	if t.MaxUsers > 0 {
		return t.MaxUsers
	}
	p, _ := PlanFor(t.Tier)
	return p.MaxUsers
}

// CheckSeat fails with ErrSeatLimit when a tenant with current users cannot
// take one more.
func CheckSeat(t *domain.Tenant, current int) error {
	limit := SeatLimit(t)
	if limit > 0 && current >= limit {
		return fmt.Errorf("%w (%d of %d in %s)", ErrSeatLimit, current, limit, t.Slug)
	}
	return nil
}
