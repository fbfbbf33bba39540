package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, name, unit_price, stock_on_hand, initial_stock, active, created_at`

func scanProduct(sc interface{ Scan(...any) error }) (ledger.Product, error) {
	var (
		p         ledger.Product
		createdAt string
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.StockOnHand, &p.InitialStock, &p.Active, &createdAt); err != nil {
		return p, err
	}
	var err error
	p.CreatedAt, err = parseTime(createdAt)
	return p, err
}

func (ts *txStore) GetProduct(ctx context.Context, id ledger.ProductID) (ledger.Product, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, &ledger.NotFoundError{Kind: "product", ID: string(id)}
	}
	if err != nil {
		return p, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (ts *txStore) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := ts.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ts *txStore) PutProduct(ctx context.Context, p ledger.Product) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unit_price = excluded.unit_price,
			stock_on_hand = excluded.stock_on_hand,
			initial_stock = excluded.initial_stock,
			active = excluded.active
	`, p.ID, p.Name, p.UnitPrice.String(), p.StockOnHand, p.InitialStock, p.Active, formatTime(p.CreatedAt))
	if err != nil {
		return writeErr("save product", err)
	}
	return nil
}

func (ts *txStore) DeleteProduct(ctx context.Context, id ledger.ProductID) error {
	return ts.deleteByID(ctx, "products", "product", string(id))
}

// =============================================================================
// PARTNERS
// =============================================================================

const partnerColumns = `id, full_name, tier, is_vip, created_at`

func scanPartner(sc interface{ Scan(...any) error }) (ledger.Partner, error) {
	var (
		p         ledger.Partner
		createdAt string
	)
	if err := sc.Scan(&p.ID, &p.FullName, &p.Tier, &p.IsVIP, &createdAt); err != nil {
		return p, err
	}
	var err error
	p.CreatedAt, err = parseTime(createdAt)
	return p, err
}

func (ts *txStore) GetPartner(ctx context.Context, id ledger.PartnerID) (ledger.Partner, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = ?`, id)
	p, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, &ledger.NotFoundError{Kind: "partner", ID: string(id)}
	}
	if err != nil {
		return p, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

func (ts *txStore) ListPartners(ctx context.Context) ([]ledger.Partner, error) {
	rows, err := ts.q.QueryContext(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var out []ledger.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ts *txStore) PutPartner(ctx context.Context, p ledger.Partner) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO partners (`+partnerColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			tier = excluded.tier,
			is_vip = excluded.is_vip
	`, p.ID, p.FullName, string(p.Tier), p.IsVIP, formatTime(p.CreatedAt))
	if err != nil {
		return writeErr("save partner", err)
	}
	return nil
}

func (ts *txStore) DeletePartner(ctx context.Context, id ledger.PartnerID) error {
	return ts.deleteByID(ctx, "partners", "partner", string(id))
}

// =============================================================================
// ORDERS
// =============================================================================

const orderColumns = `id, partner_id, total_receivable, total_collected, payment_status,
	payment_method, is_sample, description, created_at`

func scanOrder(sc interface{ Scan(...any) error }) (ledger.Order, error) {
	var (
		o           ledger.Order
		partnerID   sql.NullString
		description sql.NullString
		createdAt   string
	)
	if err := sc.Scan(&o.ID, &partnerID, &o.TotalReceivable, &o.TotalCollected, &o.PaymentStatus,
		&o.PaymentMethod, &o.IsSample, &description, &createdAt); err != nil {
		return o, err
	}
	o.PartnerID = ledger.PartnerID(partnerID.String)
	o.Description = description.String
	var err error
	o.CreatedAt, err = parseTime(createdAt)
	return o, err
}

func (ts *txStore) GetOrder(ctx context.Context, id ledger.OrderID) (ledger.Order, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return o, &ledger.NotFoundError{Kind: "order", ID: string(id)}
	}
	if err != nil {
		return o, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (ts *txStore) ListOrders(ctx context.Context, f ledger.OrderFilter) ([]ledger.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.PartnerID != "" {
		where = append(where, "partner_id = ?")
		args = append(args, f.PartnerID)
	}
	switch f.Kind {
	case ledger.OrdersPartner:
		where = append(where, "is_sample = 0")
	case ledger.OrdersSample:
		where = append(where, "is_sample = 1")
	}
	where, args = periodClause(where, args, "created_at", f.Period)

	rows, err := ts.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders`+whereSQL(where)+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []ledger.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (ts *txStore) InsertOrder(ctx context.Context, o ledger.Order) error {
	_, err := ts.q.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, nullString(string(o.PartnerID)), o.TotalReceivable.String(), o.TotalCollected.String(),
		string(o.PaymentStatus), string(o.PaymentMethod), o.IsSample, nullString(o.Description),
		formatTime(o.CreatedAt))
	if err != nil {
		return writeErr("insert order", err)
	}
	return nil
}

func (ts *txStore) UpdateOrder(ctx context.Context, o ledger.Order) error {
	res, err := ts.q.ExecContext(ctx, `
		UPDATE orders SET total_receivable = ?, total_collected = ?, payment_status = ?, description = ?
		WHERE id = ?
	`, o.TotalReceivable.String(), o.TotalCollected.String(), string(o.PaymentStatus), nullString(o.Description), o.ID)
	if err != nil {
		return writeErr("update order", err)
	}
	return expectRow(res, "order", string(o.ID))
}

// DeleteOrder relies on ON DELETE CASCADE for the batches.
func (ts *txStore) DeleteOrder(ctx context.Context, id ledger.OrderID) error {
	return ts.deleteByID(ctx, "orders", "order", string(id))
}

// =============================================================================
// BATCHES
// =============================================================================

const batchColumns = `seq, id, order_id, partner_id, product_id, quantity_original, quantity_remaining,
	unit_value_at_time, tier_at_order, payment_method, created_at`

func scanBatch(sc interface{ Scan(...any) error }) (ledger.OrderBatch, error) {
	var (
		b         ledger.OrderBatch
		partnerID sql.NullString
		tier      sql.NullString
		createdAt string
	)
	if err := sc.Scan(&b.Seq, &b.ID, &b.OrderID, &partnerID, &b.ProductID, &b.QuantityOriginal,
		&b.QuantityRemaining, &b.UnitValueAtTime, &tier, &b.PaymentMethod, &createdAt); err != nil {
		return b, err
	}
	b.PartnerID = ledger.PartnerID(partnerID.String)
	b.TierAtOrder = ledger.Tier(tier.String)
	var err error
	b.CreatedAt, err = parseTime(createdAt)
	return b, err
}

func (ts *txStore) GetBatch(ctx context.Context, id ledger.BatchID) (ledger.OrderBatch, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM order_batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, &ledger.NotFoundError{Kind: "batch", ID: string(id)}
	}
	if err != nil {
		return b, fmt.Errorf("failed to get batch: %w", err)
	}
	return b, nil
}

func (ts *txStore) ListBatches(ctx context.Context, f ledger.BatchFilter) ([]ledger.OrderBatch, error) {
	var (
		where []string
		args  []any
	)
	if f.OrderID != "" {
		where = append(where, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.PartnerID != "" {
		where = append(where, "partner_id = ?")
		args = append(args, f.PartnerID)
	}
	if f.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.OpenOnly {
		where = append(where, "quantity_remaining > 0")
	}

	rows, err := ts.q.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM order_batches`+whereSQL(where)+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var out []ledger.OrderBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (ts *txStore) InsertBatch(ctx context.Context, b ledger.OrderBatch) (ledger.OrderBatch, error) {
	res, err := ts.q.ExecContext(ctx, `
		INSERT INTO order_batches
		(id, order_id, partner_id, product_id, quantity_original, quantity_remaining,
		 unit_value_at_time, tier_at_order, payment_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.OrderID, nullString(string(b.PartnerID)), b.ProductID, b.QuantityOriginal, b.QuantityRemaining,
		b.UnitValueAtTime.String(), nullString(string(b.TierAtOrder)), string(b.PaymentMethod), formatTime(b.CreatedAt))
	if err != nil {
		return ledger.OrderBatch{}, writeErr("insert batch", err)
	}
	if b.Seq, err = res.LastInsertId(); err != nil {
		return ledger.OrderBatch{}, fmt.Errorf("failed to read batch seq: %w", err)
	}
	return b, nil
}

// UpdateBatch only moves the remaining quantity; everything else is fixed at intake.
func (ts *txStore) UpdateBatch(ctx context.Context, b ledger.OrderBatch) error {
	res, err := ts.q.ExecContext(ctx,
		`UPDATE order_batches SET quantity_remaining = ? WHERE id = ?`, b.QuantityRemaining, b.ID)
	if err != nil {
		return writeErr("update batch", err)
	}
	return expectRow(res, "batch", string(b.ID))
}

// =============================================================================
// RESALE REPORTS
// =============================================================================

const reportColumns = `id, partner_id, product_id, quantity_sold, total_sale_value, unit_cost_basis,
	commission_per_unit, base_price_at_time, commission_paid, created_at`

func scanReport(sc interface{ Scan(...any) error }) (ledger.ResaleReport, error) {
	var (
		r         ledger.ResaleReport
		createdAt string
	)
	if err := sc.Scan(&r.ID, &r.PartnerID, &r.ProductID, &r.QuantitySold, &r.TotalSaleValue, &r.UnitCostBasis,
		&r.CommissionPerUnit, &r.BasePriceAtTime, &r.CommissionPaid, &createdAt); err != nil {
		return r, err
	}
	var err error
	r.CreatedAt, err = parseTime(createdAt)
	return r, err
}

func (ts *txStore) GetResaleReport(ctx context.Context, id ledger.ReportID) (ledger.ResaleReport, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM resale_reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, &ledger.NotFoundError{Kind: "resale report", ID: string(id)}
	}
	if err != nil {
		return r, fmt.Errorf("failed to get resale report: %w", err)
	}
	return r, nil
}

func (ts *txStore) ListResaleReports(ctx context.Context, f ledger.ReportFilter) ([]ledger.ResaleReport, error) {
	var (
		where []string
		args  []any
	)
	if f.PartnerID != "" {
		where = append(where, "partner_id = ?")
		args = append(args, f.PartnerID)
	}
	if f.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, f.ProductID)
	}
	where, args = periodClause(where, args, "created_at", f.Period)

	rows, err := ts.q.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM resale_reports`+whereSQL(where)+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resale reports: %w", err)
	}
	defer rows.Close()

	var out []ledger.ResaleReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resale report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ts *txStore) ListConsumptions(ctx context.Context, f ledger.ConsumptionFilter) ([]ledger.Consumption, error) {
	var (
		where []string
		args  []any
	)
	if f.ReportID != "" {
		where = append(where, "c.report_id = ?")
		args = append(args, f.ReportID)
	}
	if f.BatchID != "" {
		where = append(where, "c.batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.OrderID != "" {
		where = append(where, "c.order_id = ?")
		args = append(args, f.OrderID)
	}

	rows, err := ts.q.QueryContext(ctx, `
		SELECT c.report_id, c.position, c.batch_id, c.order_id, c.quantity, c.unit_value, c.shifted
		FROM resale_consumptions c
		JOIN resale_reports r ON r.id = c.report_id`+whereSQL(where)+`
		ORDER BY r.created_at, r.id, c.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumptions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Consumption
	for rows.Next() {
		var c ledger.Consumption
		if err := rows.Scan(&c.ReportID, &c.Position, &c.BatchID, &c.OrderID, &c.Quantity, &c.UnitValue, &c.Shifted); err != nil {
			return nil, fmt.Errorf("failed to scan consumption: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (ts *txStore) InsertResaleReport(ctx context.Context, r ledger.ResaleReport, consumed []ledger.Consumption) error {
	_, err := ts.q.ExecContext(ctx, `INSERT INTO resale_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PartnerID, r.ProductID, r.QuantitySold, r.TotalSaleValue.String(), r.UnitCostBasis.String(),
		r.CommissionPerUnit.String(), r.BasePriceAtTime.String(), r.CommissionPaid, formatTime(r.CreatedAt))
	if err != nil {
		return writeErr("insert resale report", err)
	}
	for _, c := range consumed {
		_, err := ts.q.ExecContext(ctx, `
			INSERT INTO resale_consumptions
			(report_id, position, batch_id, order_id, quantity, unit_value, shifted)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, c.Position, c.BatchID, c.OrderID, c.Quantity, c.UnitValue.String(), c.Shifted.String())
		if err != nil {
			return writeErr("insert consumption", err)
		}
	}
	return nil
}

func (ts *txStore) UpdateResaleReport(ctx context.Context, r ledger.ResaleReport) error {
	res, err := ts.q.ExecContext(ctx,
		`UPDATE resale_reports SET commission_paid = ? WHERE id = ?`, r.CommissionPaid, r.ID)
	if err != nil {
		return writeErr("update resale report", err)
	}
	return expectRow(res, "resale report", string(r.ID))
}

// DeleteResaleReport relies on ON DELETE CASCADE for the consumptions.
func (ts *txStore) DeleteResaleReport(ctx context.Context, id ledger.ReportID) error {
	return ts.deleteByID(ctx, "resale_reports", "resale report", string(id))
}

// =============================================================================
// SHARED
// =============================================================================

func (ts *txStore) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := ts.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return writeErr("delete "+kind, err)
	}
	return expectRow(res, kind, id)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
