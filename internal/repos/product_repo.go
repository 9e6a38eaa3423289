package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `
    id, seller_id, seller_name, name, description, category, price, stock,
    image_url, images_json, active, rating, review_count, view_count, sold_count,
    created_at, updated_at`

// Get returns a product by id, active or not.
func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, errors.NotFoundf("product %q", id)
	}
	return p, errors.Trace(err)
}

// ListActive returns the newest active products.
func (r *ProductRepo) ListActive(ctx context.Context, limit int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
  SELECT `+productColumns+`
  FROM products
  WHERE active = 1
  ORDER BY created_at DESC, id DESC
  LIMIT ?
`, limit)
	return out, errors.Trace(err)
}

// ListActiveAfter returns the page of active products that follows cur.
func (r *ProductRepo) ListActiveAfter(ctx context.Context, cur domain.Cursor, limit int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
  SELECT `+productColumns+`
  FROM products
  WHERE active = 1
    AND (created_at < ? OR (created_at = ? AND id < ?))
  ORDER BY created_at DESC, id DESC
  LIMIT ?
`, cur.CreatedAt, cur.CreatedAt, cur.ID, limit)
	return out, errors.Trace(err)
}

func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
  SELECT `+productColumns+`
  FROM products
  WHERE seller_id = ?
  ORDER BY created_at DESC, id DESC
`, sellerID)
	return out, errors.Trace(err)
}

// likeEscaper makes LIKE wildcards in user text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductFilter narrows the admin product listing. Zero values match all.
type ProductFilter struct {
	Active *bool
	Query  string
}

func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	where := `1 = 1`
	args := []any{}
	if f.Active != nil {
		where += ` AND active = ?`
		args = append(args, *f.Active)
	}
	if f.Query != "" {
		where += ` AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'
		  OR LOWER(seller_name) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`
		q := "%" + likeEscaper.Replace(strings.ToLower(f.Query)) + "%"
		args = append(args, q, q, q, q)
	}
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productColumns+` FROM products WHERE `+where+` ORDER BY created_at DESC, id DESC`, args...)
	return out, errors.Trace(err)
}

// Create inserts p and bumps the seller's product counter in one transaction.
func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO products(id,seller_id,seller_name,name,description,category,price,stock,
		  image_url,images_json,active,rating,review_count,view_count,sold_count,created_at,updated_at)
		VALUES(:id,:seller_id,:seller_name,:name,:description,:category,:price,:stock,
		  :image_url,:images_json,:active,:rating,:review_count,:view_count,:sold_count,:created_at,:updated_at)
	`, p); err != nil {
		return errors.Annotate(err, "insert product")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET total_products = total_products + 1, last_activity = ? WHERE id = ?
	`, now(), p.SellerID); err != nil {
		return errors.Annotate(err, "bump seller counters")
	}
	return errors.Trace(tx.Commit())
}

// ToggleActive flips the listing flag and returns the new value.
func (r *ProductRepo) ToggleActive(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET active = 1 - active, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return false, errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, errors.NotFoundf("product %q", id)
	}
	var active bool
	err = r.db.GetContext(ctx, &active, `SELECT active FROM products WHERE id = ?`, id)
	return active, errors.Trace(err)
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	var sellerID string
	if err := tx.GetContext(ctx, &sellerID, `SELECT seller_id FROM products WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundf("product %q", id)
		}
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET total_products = MAX(total_products - 1, 0) WHERE id = ?
	`, sellerID); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}
