package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
)

// ErrStaleStatus is returned when an order is no longer in the status the
// caller based its decision on.
const ErrStaleStatus = errors.ConstError("order status changed concurrently")

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `
  id, buyer_id, total_amount, platform_amount, seller_amount, status,
  payment_method, payment_status, transaction_id, paid_amount, payment_date,
  shipping_json, tracking_number, created_at, updated_at`

// CreateWithCommissions writes the order header, its lines, one commission
// record per line and the stock decrements as a single transaction. Either
// all of it is visible afterwards or none of it is.
func (r *OrderRepo) CreateWithCommissions(ctx context.Context, o domain.Order, cs []domain.Commission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO orders
	    (id, buyer_id, total_amount, platform_amount, seller_amount, status, created_at, updated_at)
	  VALUES
	    (?,  ?,        ?,            ?,               ?,             ?,      ?,          ?)
	`, o.ID, o.BuyerID, o.TotalAmount, o.Platform, o.Seller, o.Status, o.CreatedAt, o.UpdatedAt); err != nil {
		return errors.Annotate(err, "insert order")
	}

	for i, it := range o.Items {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO order_items
		    (order_id, line_no, product_id, seller_id, seller_name, name, image_url,
		     unit_price, quantity, options_json, platform_amount, seller_amount)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, o.ID, i+1, it.ProductID, it.SellerID, it.SellerName, it.Name, it.ImageURL,
			it.Price, it.Quantity, it.Options, it.Platform, it.Seller); err != nil {
			return errors.Annotatef(err, "insert order line %d", i+1)
		}
	}

	for _, c := range cs {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO commissions
		    (id, order_id, seller_id, product_id, total_amount, platform_amount, seller_amount, status, created_at)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.OrderID, c.SellerID, c.ProductID, c.TotalAmount, c.PlatformAmount, c.SellerAmount, c.Status, c.CreatedAt); err != nil {
			return errors.Annotate(err, "insert commission")
		}
	}

	for _, it := range o.Items {
		if err := takeStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}

	return errors.Trace(tx.Commit())
}

// Get returns the order with its lines.
func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, errors.NotFoundf("order %q", id)
	}
	if err != nil {
		return domain.Order{}, errors.Trace(err)
	}
	if err := r.db.SelectContext(ctx, &o.Items, `
		SELECT order_id, line_no, product_id, seller_id, seller_name, name, image_url,
		       unit_price, quantity, options_json, platform_amount, seller_amount
		FROM order_items
		WHERE order_id = ?
		ORDER BY line_no
	`, id); err != nil {
		return domain.Order{}, errors.Trace(err)
	}
	return o, nil
}

func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = ? ORDER BY created_at DESC`, buyerID)
}

// ListContainingSeller returns every order with at least one line sold by
// sellerID. Orders keep all their lines; callers filter per seller.
func (r *OrderRepo) ListContainingSeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id IN (SELECT order_id FROM order_items WHERE seller_id = ?)
		ORDER BY created_at DESC
	`, sellerID)
}

// List returns all orders, optionally only those in status.
func (r *OrderRepo) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY created_at DESC`, status)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	out := []domain.Order{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.Trace(err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, o := range out {
		ids[i] = o.ID
	}
	q, qargs, err := sqlx.In(`
		SELECT order_id, line_no, product_id, seller_id, seller_name, name, image_url,
		       unit_price, quantity, options_json, platform_amount, seller_amount
		FROM order_items
		WHERE order_id IN (?)
		ORDER BY order_id, line_no
	`, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var items []domain.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(q), qargs...); err != nil {
		return nil, errors.Trace(err)
	}
	byOrder := map[string][]domain.OrderItem{}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range out {
		out[i].Items = byOrder[out[i].ID]
	}
	return out, nil
}

// UpdateStatus moves an order from one status to another. Moving to
// cancelled puts the reserved units back in stock in the same transaction.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, now(), id, from)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Annotatef(ErrStaleStatus, "order %s", id)
	}

	if to == domain.OrderCancelled {
		if err := releaseLines(ctx, tx, id); err != nil {
			return err
		}
	}
	return errors.Trace(tx.Commit())
}

// releaseLines puts every unit of the order's lines back in stock.
func releaseLines(ctx context.Context, tx *sqlx.Tx, id string) error {
	var lines []struct {
		ProductID string `db:"product_id"`
		Quantity  int    `db:"quantity"`
	}
	if err := tx.SelectContext(ctx, &lines, `SELECT product_id, quantity FROM order_items WHERE order_id = ?`, id); err != nil {
		return errors.Trace(err)
	}
	for _, l := range lines {
		if err := returnStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// MarkShipped moves an order to shipped and records its tracking number.
func (r *OrderRepo) MarkShipped(ctx context.Context, id string, from domain.OrderStatus, tracking string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, tracking_number = ?, updated_at = ? WHERE id = ? AND status = ?
	`, domain.OrderShipped, tracking, now(), id, from)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Annotatef(ErrStaleStatus, "order %s", id)
	}
	return nil
}

// Payment is what a successful mobile-money payment records on an order.
type Payment struct {
	Method        domain.PaymentMethod
	TransactionID string
	PaidAmount    decimal.Decimal
	Shipping      domain.ShippingAddress
}

// ConfirmPayment marks a pending order confirmed and paid, and marks all of
// its commission records paid, atomically.
func (r *OrderRepo) ConfirmPayment(ctx context.Context, id string, p Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_method = ?, payment_status = 'paid', transaction_id = ?,
		    paid_amount = ?, payment_date = ?, shipping_json = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, domain.OrderConfirmed, p.Method, p.TransactionID, p.PaidAmount, ts, p.Shipping, ts, id, domain.OrderPending)
	if err != nil {
		return errors.Annotate(err, "update order payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Annotatef(ErrStaleStatus, "order %s", id)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE commissions SET status = ?, paid_at = ? WHERE order_id = ?
	`, domain.CommissionPaid, ts, id); err != nil {
		return errors.Annotate(err, "mark commissions paid")
	}
	return errors.Trace(tx.Commit())
}

// Delete removes an order with its lines, commissions and payment state.
// Units an unshipped order still holds go back in stock.
func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.OrderStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NotFoundf("order %q", id)
	}
	if err != nil {
		return errors.Trace(err)
	}
	if status.HoldsStock() {
		if err := releaseLines(ctx, tx, id); err != nil {
			return err
		}
	}

	for _, q := range []string{
		`DELETE FROM commissions WHERE order_id = ?`,
		`DELETE FROM payments WHERE order_id = ?`,
		`DELETE FROM order_items WHERE order_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return errors.Trace(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

type CommissionRepo struct{ db *sqlx.DB }

func NewCommissionRepo(db *sqlx.DB) *CommissionRepo { return &CommissionRepo{db: db} }

const commissionColumns = `id, order_id, seller_id, product_id, total_amount, platform_amount, seller_amount, status, created_at, paid_at`

func (r *CommissionRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Commission, error) {
	out := []domain.Commission{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+commissionColumns+` FROM commissions WHERE order_id = ? ORDER BY created_at, id`, orderID)
	return out, errors.Trace(err)
}

func (r *CommissionRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Commission, error) {
	out := []domain.Commission{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+commissionColumns+` FROM commissions WHERE seller_id = ? ORDER BY created_at DESC, id`, sellerID)
	return out, errors.Trace(err)
}

// List returns all commission records, optionally only those in status.
func (r *CommissionRepo) List(ctx context.Context, status domain.CommissionStatus) ([]domain.Commission, error) {
	out := []domain.Commission{}
	if status == "" {
		err := r.db.SelectContext(ctx, &out, `SELECT `+commissionColumns+` FROM commissions ORDER BY created_at DESC, id`)
		return out, errors.Trace(err)
	}
	err := r.db.SelectContext(ctx, &out, `SELECT `+commissionColumns+` FROM commissions WHERE status = ? ORDER BY created_at DESC, id`, status)
	return out, errors.Trace(err)
}
