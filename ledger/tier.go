package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER ENGINE - Pure functions, no store access
// =============================================================================

type Tier string

const (
	TierMember      Tier = "Member"
	TierReseller    Tier = "Reseller"
	TierSubAgen     Tier = "Sub-Agen"
	TierAgen        Tier = "Agen"
	TierDistributor Tier = "Distributor"
)

// Tiers lists every tier in rank order, lowest first.
var Tiers = []Tier{TierMember, TierReseller, TierSubAgen, TierAgen, TierDistributor}

// tierThresholds are the minimum cumulative gross volumes (rupiah, base
// price) for each tier above Member, ascending.
var tierThresholds = []struct {
	min  decimal.Decimal
	tier Tier
}{
	{decimal.NewFromInt(500_000), TierReseller},
	{decimal.NewFromInt(5_000_000), TierSubAgen},
	{decimal.NewFromInt(25_000_000), TierAgen},
	{decimal.NewFromInt(100_000_000), TierDistributor},
}

var tierDiscounts = map[Tier]decimal.Decimal{
	TierMember:      decimal.Zero,
	TierReseller:    decimal.RequireFromString("0.15"),
	TierSubAgen:     decimal.RequireFromString("0.25"),
	TierAgen:        decimal.RequireFromString("0.35"),
	TierDistributor: decimal.RequireFromString("0.45"),
}

// Rank orders tiers; unknown labels rank below Member.
func (t Tier) Rank() int {
	for i, known := range Tiers {
		if t == known {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool { return t.Rank() >= 0 }

// ParseTier validates a tier label. The empty string maps to Member.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return TierMember, nil
	}
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", ErrValidation, s)
	}
	return t, nil
}

// ComputeTier maps cumulative gross purchase volume to a tier. VIP partners
// never fall below Reseller.
func ComputeTier(volume decimal.Decimal, isVIP bool) Tier {
	tier := TierMember
	for _, th := range tierThresholds {
		if volume.GreaterThanOrEqual(th.min) {
			tier = th.tier
		}
	}
	if isVIP && tier == TierMember {
		tier = TierReseller
	}
	return tier
}

// AdvanceTier returns the higher-ranked of current and proposed. A tier
// never regresses through this path.
func AdvanceTier(current, proposed Tier) Tier {
	if proposed.Rank() > current.Rank() {
		return proposed
	}
	return current
}

// TierDiscountRate is the fraction taken off the base price for a tier.
func TierDiscountRate(t Tier) decimal.Decimal {
	if rate, ok := tierDiscounts[t]; ok {
		return rate
	}
	return decimal.Zero
}

// DiscountedUnitValue is price x (1 - discount(tier)).
func DiscountedUnitValue(price decimal.Decimal, t Tier) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(TierDiscountRate(t)))
}
