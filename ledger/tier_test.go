package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// TIER ENGINE TESTS
// =============================================================================

func TestComputeTier_Thresholds(t *testing.T) {
	cases := []struct {
		volume string
		vip    bool
		want   ledger.Tier
	}{
		{"0", false, ledger.TierMember},
		{"499999", false, ledger.TierMember},
		{"500000", false, ledger.TierReseller},
		{"4999999.99", false, ledger.TierReseller},
		{"5000000", false, ledger.TierSubAgen},
		{"25000000", false, ledger.TierAgen},
		{"99999999", false, ledger.TierAgen},
		{"100000000", false, ledger.TierDistributor},
		{"0", true, ledger.TierReseller},
		{"6000000", true, ledger.TierSubAgen},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ledger.ComputeTier(dec(tc.volume), tc.vip), "volume %s vip %v", tc.volume, tc.vip)
	}
}

func TestAdvanceTier_NeverRegresses(t *testing.T) {
	// GIVEN: every (current, proposed) pair of valid tiers
	// THEN: the result is never ranked below current, and equals the higher of the two
	for _, current := range ledger.Tiers {
		for _, proposed := range ledger.Tiers {
			got := ledger.AdvanceTier(current, proposed)
			assert.GreaterOrEqual(t, got.Rank(), current.Rank(), "%s -> %s", current, proposed)
			if proposed.Rank() > current.Rank() {
				assert.Equal(t, proposed, got)
			} else {
				assert.Equal(t, current, got)
			}
		}
	}
}

func TestTierDiscountRate(t *testing.T) {
	want := map[ledger.Tier]string{
		ledger.TierMember:      "0",
		ledger.TierReseller:    "0.15",
		ledger.TierSubAgen:     "0.25",
		ledger.TierAgen:        "0.35",
		ledger.TierDistributor: "0.45",
	}
	for tier, rate := range want {
		assert.True(t, dec(rate).Equal(ledger.TierDiscountRate(tier)), tier)
	}
	assert.True(t, ledger.TierDiscountRate("Platinum").IsZero())
	assert.True(t, dec("8500").Equal(ledger.DiscountedUnitValue(dec("10000"), ledger.TierReseller)))
}

func TestParseTier(t *testing.T) {
	tier, err := ledger.ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, ledger.TierMember, tier)

	tier, err = ledger.ParseTier("Sub-Agen")
	require.NoError(t, err)
	assert.Equal(t, ledger.TierSubAgen, tier)

	_, err = ledger.ParseTier("Gold")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestStatusFor_Tolerance(t *testing.T) {
	assert.Equal(t, ledger.StatusPaid, ledger.StatusFor(dec("0")))
	assert.Equal(t, ledger.StatusPaid, ledger.StatusFor(dec("1")))
	assert.Equal(t, ledger.StatusUnpaid, ledger.StatusFor(dec("1.01")))
}

func TestNewPeriod(t *testing.T) {
	p, err := ledger.NewPeriod(date(2025, 3, 1), date(2025, 3, 31))
	require.NoError(t, err)
	assert.True(t, p.Contains(date(2025, 3, 31).Add(23 * time.Hour)))
	assert.False(t, p.Contains(date(2025, 4, 1)))

	_, err = ledger.NewPeriod(date(2025, 3, 2), date(2025, 3, 1))
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}
