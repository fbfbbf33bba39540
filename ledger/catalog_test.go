package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestRestock_RaisesBothCounters(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 100)
		a := mustPartner(t, svc, "Lina", false)
		mustOrder(t, svc, a.ID, p.ID, 30, ledger.PaymentQRIS)

		got, err := svc.Restock(ctx, p.ID, 25)
		require.NoError(t, err)
		assert.Equal(t, int64(95), got.StockOnHand)
		assert.Equal(t, int64(125), got.InitialStock)
		assert.Equal(t, int64(30), got.UnitsOut())

		_, err = svc.Restock(ctx, p.ID, 0)
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
		_, err = svc.Restock(ctx, "missing", 5)
		assert.True(t, ledger.IsNotFound(err))
	})
}

func TestCreateProduct_Validation(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		_, err := svc.CreateProduct(ctx, ledger.NewProduct{Name: "  ", UnitPrice: dec("1")})
		assert.ErrorIs(t, err, ledger.ErrValidation)
		_, err = svc.CreateProduct(ctx, ledger.NewProduct{Name: "X", UnitPrice: dec("-1")})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		_, err = svc.CreateProduct(ctx, ledger.NewProduct{Name: "X", UnitPrice: dec("1"), InitialStock: -1})
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		products, err := svc.Products(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestProducts_SortedByName(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		mustProduct(t, svc, "Toner", "1", 1)
		mustProduct(t, svc, "Cleanser", "1", 1)
		mustProduct(t, svc, "Serum", "1", 1)

		products, err := svc.Products(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "Cleanser", products[0].Name)
		assert.Equal(t, "Serum", products[1].Name)
		assert.Equal(t, "Toner", products[2].Name)
	})
}

func TestDeleteProduct_HardThenSoft(t *testing.T) {
	// GIVEN: One product never ordered, one with an order
	// THEN: The first is deleted, the second only deactivated and no longer orderable
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		unused := mustProduct(t, svc, "Unused", "100", 10)
		used := mustProduct(t, svc, "Used", "100", 10)
		a := mustPartner(t, svc, "Maya", false)
		mustOrder(t, svc, a.ID, used.ID, 1, ledger.PaymentQRIS)

		outcome, err := svc.DeleteProduct(ctx, unused.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.DeletedHard, outcome)
		_, err = svc.Product(ctx, unused.ID)
		assert.True(t, ledger.IsNotFound(err))

		outcome, err = svc.DeleteProduct(ctx, used.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.DeletedSoft, outcome)
		assert.False(t, getProduct(t, svc, used.ID).Active)

		_, err = svc.PlaceOrder(ctx, ledger.PlaceOrderInput{
			PartnerID: a.ID, ProductID: used.ID, Quantity: 1, PaymentMethod: ledger.PaymentQRIS,
		})
		assert.ErrorIs(t, err, ledger.ErrProductInactive)

		_, err = svc.SetProductActive(ctx, used.ID, true)
		require.NoError(t, err)
		mustOrder(t, svc, a.ID, used.ID, 1, ledger.PaymentQRIS)
	})
}

// =============================================================================
// PARTNER DIRECTORY TESTS
// =============================================================================

func TestPartner_ManualTierOverride(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		a := mustPartner(t, svc, "Nina", false)

		up, err := svc.UpdatePartner(ctx, a.ID, ledger.PartnerInput{FullName: "Nina S", Tier: ledger.TierAgen})
		require.NoError(t, err)
		assert.Equal(t, ledger.TierAgen, up.Tier)

		down, err := svc.UpdatePartner(ctx, a.ID, ledger.PartnerInput{FullName: "Nina S", Tier: ledger.TierMember})
		require.NoError(t, err)
		assert.Equal(t, ledger.TierMember, down.Tier)

		vip, err := svc.UpdatePartner(ctx, a.ID, ledger.PartnerInput{FullName: "Nina S", IsVIP: true})
		require.NoError(t, err)
		assert.Equal(t, ledger.TierReseller, vip.Tier)

		_, err = svc.UpdatePartner(ctx, a.ID, ledger.PartnerInput{FullName: "Nina S", Tier: "Gold"})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestDeletePartner_RefusedWithHistory(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "100", 10)
		busy := mustPartner(t, svc, "Oki", false)
		idle := mustPartner(t, svc, "Putri", false)
		mustOrder(t, svc, busy.ID, p.ID, 1, ledger.PaymentQRIS)

		err := svc.DeletePartner(ctx, busy.ID)
		assert.ErrorIs(t, err, ledger.ErrPartnerHasHistory)

		require.NoError(t, svc.DeletePartner(ctx, idle.ID))
		_, err = svc.Partner(ctx, idle.ID)
		assert.True(t, ledger.IsNotFound(err))

		partners, err := svc.Partners(ctx)
		require.NoError(t, err)
		require.Len(t, partners, 1)
		assert.Equal(t, busy.ID, partners[0].ID)
	})
}

// =============================================================================
// SAMPLE TESTS
// =============================================================================

func TestPlaceSample_TakesStockWithoutValue(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 100)

		res, err := svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 5, Description: "Beauty fair"})
		require.NoError(t, err)

		assert.True(t, res.Order.IsSample)
		assert.Empty(t, res.Order.PartnerID)
		assert.Equal(t, ledger.PaymentSample, res.Order.PaymentMethod)
		assert.Equal(t, ledger.StatusPaid, res.Order.PaymentStatus)
		assert.True(t, res.Order.NetValue().IsZero())
		assert.Equal(t, int64(0), res.Batch.QuantityRemaining)
		assert.Equal(t, int64(95), getProduct(t, svc, p.ID).StockOnHand)

		order, batches := getOrder(t, svc, res.Order.ID)
		assert.True(t, order.IsSample)
		assert.Equal(t, "Beauty fair", order.Description)
		require.Len(t, batches, 1)
		assert.Equal(t, int64(5), batches[0].QuantityOriginal)

		_, err = svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 96, Description: "Too many"})
		assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
		_, err = svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 1})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestSample_NotCountedInTierVolume(t *testing.T) {
	// GIVEN: A large sample of a product
	// WHEN: A partner then orders a small quantity of it
	// THEN: The partner stays Member
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 200)
		_, err := svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 100, Description: "Launch"})
		require.NoError(t, err)

		a := mustPartner(t, svc, "Rani", false)
		res := mustOrder(t, svc, a.ID, p.ID, 1, ledger.PaymentQRIS)
		assert.Equal(t, ledger.TierMember, res.Tier)
	})
}

func TestUpdateSample_SwapsQuantity(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 100)
		q := mustProduct(t, svc, "Toner", "5000", 20)
		res, err := svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 10, Description: "Fair"})
		require.NoError(t, err)

		up, err := svc.UpdateSample(ctx, res.Order.ID, ledger.SampleInput{ProductID: q.ID, Quantity: 4, Description: "Fair, toner"})
		require.NoError(t, err)
		assert.Equal(t, res.Order.ID, up.Order.ID)
		assert.Equal(t, int64(100), getProduct(t, svc, p.ID).StockOnHand)
		assert.Equal(t, int64(16), getProduct(t, svc, q.ID).StockOnHand)

		// A failed update leaves the old sample in place.
		_, err = svc.UpdateSample(ctx, res.Order.ID, ledger.SampleInput{ProductID: q.ID, Quantity: 21, Description: "Fair"})
		assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
		assert.Equal(t, int64(16), getProduct(t, svc, q.ID).StockOnHand)
		_, batches := getOrder(t, svc, res.Order.ID)
		require.Len(t, batches, 1)
		assert.Equal(t, int64(4), batches[0].QuantityOriginal)

		_, err = svc.ReverseOrder(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(20), getProduct(t, svc, q.ID).StockOnHand)
	})
}

func TestUpdateSample_RejectsPartnerOrders(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		p := mustProduct(t, svc, "Serum", "10000", 100)
		a := mustPartner(t, svc, "Sari", false)
		res := mustOrder(t, svc, a.ID, p.ID, 1, ledger.PaymentQRIS)

		_, err := svc.UpdateSample(context.Background(), res.Order.ID, ledger.SampleInput{ProductID: p.ID, Quantity: 1, Description: "x"})
		var nf *ledger.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "sample", nf.Kind)
	})
}

func TestPlaceSample_RejectsInactiveProduct(t *testing.T) {
	// GIVEN: A deactivated product
	// WHEN: A sample of it is taken
	// THEN: It is refused like an order would be, and stock is untouched
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 100)
		_, err := svc.SetProductActive(ctx, p.ID, false)
		require.NoError(t, err)

		_, err = svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 5, Description: "Fair"})
		assert.ErrorIs(t, err, ledger.ErrProductInactive)
		assert.Equal(t, int64(100), getProduct(t, svc, p.ID).StockOnHand)
	})
}

func TestReverseSample(t *testing.T) {
	stores(t, func(t *testing.T, svc *ledger.Service) {
		ctx := context.Background()
		p := mustProduct(t, svc, "Serum", "10000", 100)
		a := mustPartner(t, svc, "Sari", false)
		order := mustOrder(t, svc, a.ID, p.ID, 10, ledger.PaymentQRIS)
		sample, err := svc.PlaceSample(ctx, ledger.SampleInput{ProductID: p.ID, Quantity: 5, Description: "Fair"})
		require.NoError(t, err)

		// A partner order is not a sample and stays in place.
		_, err = svc.ReverseSample(ctx, order.Order.ID)
		var nf *ledger.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "sample", nf.Kind)
		assert.Equal(t, int64(85), getProduct(t, svc, p.ID).StockOnHand)

		rev, err := svc.ReverseSample(ctx, sample.Order.ID)
		require.NoError(t, err)
		assert.True(t, rev.Order.IsSample)
		assert.Equal(t, int64(90), getProduct(t, svc, p.ID).StockOnHand)
	})
}
