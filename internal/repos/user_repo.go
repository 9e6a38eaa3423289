package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `
  id, email, first_name, last_name, phone, password_hash, role, active,
  shop_name, shop_description, shop_rating, total_products, total_sales,
  created_at, last_activity`

func (r *UserRepo) getOne(ctx context.Context, what, query string, args ...any) (domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, errors.NotFoundf("user %s", what)
	}
	return u, errors.Trace(err)
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, email, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email)
}

func (r *UserRepo) ByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// Create inserts u. An email already in use is reported as AlreadyExists.
func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)`, u.Email); err != nil {
		return errors.Trace(err)
	}
	if n > 0 {
		return errors.AlreadyExistsf("account for %s", u.Email)
	}
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO users(id,email,first_name,last_name,phone,password_hash,role,active,
		  shop_name,shop_description,shop_rating,total_products,total_sales,created_at,last_activity)
		VALUES(:id,:email,:first_name,:last_name,:phone,:password_hash,:role,:active,
		  :shop_name,:shop_description,:shop_rating,:total_products,:total_sales,:created_at,:last_activity)
	`, u)
	return errors.Annotate(err, "insert user")
}

func (r *UserRepo) Touch(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET last_activity = ? WHERE id = ?`, now(), id)
	return errors.Trace(err)
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string, remember bool) error {
	ts := now()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions(id, user_id, remember, created_at, last_seen)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, remember = excluded.remember, last_seen = excluded.last_seen
	`, sid, userID, remember, ts, ts)
	return errors.Trace(err)
}

// SessionUser resolves the identity bound to a session cookie.
func (r *UserRepo) SessionUser(ctx context.Context, sid string) (domain.User, error) {
	u, err := r.getOne(ctx, "for session", `
		SELECT `+prefixed("u.", userColumns)+`
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`, sid)
	if err != nil {
		return domain.User{}, err
	}
	_, _ = r.DB.ExecContext(ctx, `UPDATE sessions SET last_seen = ? WHERE id = ?`, now(), sid)
	return u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sid)
	return errors.Trace(err)
}

// UserFilter narrows the admin user listing. Zero values match all.
type UserFilter struct {
	Role  domain.Role
	Query string
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]domain.User, error) {
	where := `1 = 1`
	args := []any{}
	if f.Role != "" {
		where += ` AND role = ?`
		args = append(args, f.Role)
	}
	if f.Query != "" {
		where += ` AND (LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name || ' ' || last_name) LIKE ? ESCAPE '\'
		  OR LOWER(shop_name) LIKE ? ESCAPE '\')`
		q := "%" + likeEscaper.Replace(strings.ToLower(f.Query)) + "%"
		args = append(args, q, q, q)
	}
	out := []domain.User{}
	err := r.DB.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	return out, errors.Trace(err)
}

// ToggleActive flips the account flag and returns the new value. Sessions
// of a deactivated account are dropped.
func (r *UserRepo) ToggleActive(ctx context.Context, id string) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users SET active = 1 - active, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return false, errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, errors.NotFoundf("user %s", id)
	}
	var active bool
	if err := tx.GetContext(ctx, &active, `SELECT active FROM users WHERE id = ?`, id); err != nil {
		return false, errors.Trace(err)
	}
	if !active {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id); err != nil {
			return false, errors.Trace(err)
		}
	}
	return active, errors.Trace(tx.Commit())
}

// Profile holds the user-editable fields. Shop fields only apply to sellers.
type Profile struct {
	FirstName       string
	LastName        string
	Phone           string
	ShopName        string
	ShopDescription string
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p Profile) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET first_name = COALESCE(NULLIF(?, ''), first_name),
		    last_name = COALESCE(NULLIF(?, ''), last_name),
		    phone = ?, shop_name = ?, shop_description = ?, updated_at = ?
		WHERE id = ?
	`, p.FirstName, p.LastName, p.Phone, p.ShopName, p.ShopDescription, now(), id)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundf("user %s", id)
	}
	// Listings carry the shop name as a snapshot.
	if p.ShopName != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE products SET seller_name = ? WHERE seller_id = ?`, p.ShopName, id); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(tx.Commit())
}

// DeleteUserCascade removes an account. Pending orders of the user are
// cancelled with their stock returned, a seller's listings are removed and
// sessions and saved state are dropped. Order rows stay for audit.
func (r *UserRepo) DeleteUserCascade(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	var pending []string
	if err := tx.SelectContext(ctx, &pending, `SELECT id FROM orders WHERE buyer_id = ? AND status = ?`, userID, domain.OrderPending); err != nil {
		return errors.Trace(err)
	}
	for _, id := range pending {
		if err := releaseLines(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, domain.OrderCancelled, now(), id); err != nil {
			return errors.Trace(err)
		}
	}

	if err := dropState(ctx, tx, userID); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM sessions WHERE user_id = ?`,
		`DELETE FROM products WHERE seller_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return errors.Trace(err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundf("user %s", userID)
	}
	return errors.Trace(tx.Commit())
}

func prefixed(p, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
