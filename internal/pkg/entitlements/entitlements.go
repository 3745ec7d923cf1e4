package entitlements

import (
	"strings"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
)

// Monthly credit allowance per tier.
var tierCredits = map[int]int64{
	models.PlanTierT1: 100,
	models.PlanTierT2: 500,
	models.PlanTierT3: 1000,
	models.PlanTierT4: 2000,
}

// Seat limit per tier, main key included.
var tierMaxUsers = map[int]int{
	models.PlanTierT1: 1,
	models.PlanTierT2: 5,
	models.PlanTierT3: 10,
	models.PlanTierT4: 20,
}

// Number of sub-license seats created under a main key per tier. Tier 1 is
// a single-user plan with no seats.
var tierSeatCounts = map[int]int{
	models.PlanTierT1: 0,
	models.PlanTierT2: 5,
	models.PlanTierT3: 10,
	models.PlanTierT4: 20,
}

// TierCredits returns the credit allowance for a tier. Unknown tiers fall
// back to the tier 1 allowance.
func TierCredits(tier int) int64 {
	if credits, ok := tierCredits[tier]; ok {
		return credits
	}
	return tierCredits[models.PlanTierT1]
}

// TierMaxUsers returns the seat limit for a tier, main key included.
func TierMaxUsers(tier int) int {
	if max, ok := tierMaxUsers[tier]; ok {
		return max
	}
	return tierMaxUsers[models.PlanTierT1]
}

// TierSeatCount returns how many sub-license seats a main key of the given
// tier carries.
func TierSeatCount(tier int) int {
	if seats, ok := tierSeatCounts[tier]; ok {
		return seats
	}
	return 0
}

// TierFromKeyName infers the plan tier from a redeem key or campaign name.
// Matching is case-insensitive substring; anything unrecognized is tier 1.
func TierFromKeyName(key string) int {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "enterprise"):
		return models.PlanTierT4
	case strings.Contains(lower, "agency"):
		return models.PlanTierT3
	case strings.Contains(lower, "team"):
		return models.PlanTierT2
	default:
		return models.PlanTierT1
	}
}

// TierName returns a human-readable plan name for a tier.
func TierName(tier int) string {
	switch tier {
	case models.PlanTierT4:
		return "Enterprise"
	case models.PlanTierT3:
		return "Agency"
	case models.PlanTierT2:
		return "Team"
	default:
		return "Starter"
	}
}
