package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
)

// ErrInsufficientStock is returned when a conditional decrement finds fewer
// units than requested.
const ErrInsufficientStock = errors.ConstError("insufficient stock")

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Stock returns the live stock of a product.
func (r *InventoryRepo) Stock(ctx context.Context, productID string) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, `SELECT stock FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.NotFoundf("product %q", productID)
	}
	return qty, errors.Trace(err)
}

// SetStock overwrites the stock of a product.
func (r *InventoryRepo) SetStock(ctx context.Context, productID string, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`, qty, now(), productID)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundf("product %q", productID)
	}
	return nil
}

// takeStock subtracts qty units only if enough stock exists and counts them
// as sold.
func takeStock(ctx context.Context, ex sqlx.ExecerContext, productID string, qty int) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, sold_count = sold_count + ?, updated_at = ?
		WHERE id = ? AND stock >= ?
	`, qty, qty, now(), productID, qty)
	if err != nil {
		return errors.Trace(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.Annotatef(ErrInsufficientStock, "product %s", productID)
	}
	return nil
}

// returnStock undoes takeStock for a cancelled order line.
func returnStock(ctx context.Context, ex sqlx.ExecerContext, productID string, qty int) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, sold_count = MAX(sold_count - ?, 0), updated_at = ?
		WHERE id = ?
	`, qty, qty, now(), productID)
	return errors.Trace(err)
}
