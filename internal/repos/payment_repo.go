package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
)

// PaymentAttempt is the checkout state of one order while the buyer is
// paying. It disappears on cancel and stays behind, in its final state,
// once the order is paid.
type PaymentAttempt struct {
	OrderID   string `db:"order_id"`
	BuyerID   string `db:"buyer_id"`
	State     string `db:"state"`
	Method    string `db:"method"`
	Phone     string `db:"phone"`
	Attempts  int    `db:"attempts"`
	LastError string `db:"last_error"`
	UpdatedAt string `db:"updated_at"`
}

type PaymentRepo struct{ db *sqlx.DB }

func NewPaymentRepo(db *sqlx.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Get returns the attempt for orderID, or false when none was started.
func (r *PaymentRepo) Get(ctx context.Context, orderID string) (PaymentAttempt, bool, error) {
	var p PaymentAttempt
	err := r.db.GetContext(ctx, &p, `
		SELECT order_id, buyer_id, state, method, phone, attempts, last_error, updated_at
		FROM payments WHERE order_id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentAttempt{}, false, nil
	}
	if err != nil {
		return PaymentAttempt{}, false, errors.Trace(err)
	}
	return p, true, nil
}

func (r *PaymentRepo) Save(ctx context.Context, p PaymentAttempt) error {
	p.UpdatedAt = now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments(order_id, buyer_id, state, method, phone, attempts, last_error, updated_at)
		VALUES(:order_id, :buyer_id, :state, :method, :phone, :attempts, :last_error, :updated_at)
		ON CONFLICT(order_id) DO UPDATE SET
		  state = excluded.state, method = excluded.method, phone = excluded.phone,
		  attempts = excluded.attempts, last_error = excluded.last_error, updated_at = excluded.updated_at
	`, p)
	return errors.Trace(err)
}

func (r *PaymentRepo) Delete(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE order_id = ?`, orderID)
	return errors.Trace(err)
}
