package repos

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

const wishlistKey = "wishlist"

// WishlistRepo keeps a user's saved product ids next to the cart in
// local_state.
type WishlistRepo struct {
	db    *sqlx.DB
	state *LocalStateRepo
}

func NewWishlistRepo(db *sqlx.DB) *WishlistRepo {
	return &WishlistRepo{db: db, state: NewLocalStateRepo(db)}
}

func (r *WishlistRepo) ids(ctx context.Context, userID string) ([]string, error) {
	raw, ok, err := r.state.Get(ctx, userID, wishlistKey)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, errors.NewNotValid(err, "stored wishlist")
	}
	return ids, nil
}

func (r *WishlistRepo) put(ctx context.Context, userID string, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return errors.Trace(err)
	}
	return r.state.Put(ctx, userID, wishlistKey, string(b))
}

// Add saves productID once; saving it again is a no-op.
func (r *WishlistRepo) Add(ctx context.Context, userID, productID string) error {
	ids, err := r.ids(ctx, userID)
	if err != nil {
		return err
	}
	if slices.Contains(ids, productID) {
		return nil
	}
	return r.put(ctx, userID, append(ids, productID))
}

func (r *WishlistRepo) Remove(ctx context.Context, userID, productID string) error {
	ids, err := r.ids(ctx, userID)
	if err != nil {
		return err
	}
	return r.put(ctx, userID, slices.DeleteFunc(ids, func(id string) bool { return id == productID }))
}

// List returns the saved products that still exist, most recently saved
// first. Inactive listings are included so the buyer sees them go away.
func (r *WishlistRepo) List(ctx context.Context, userID string) ([]domain.Product, error) {
	ids, err := r.ids(ctx, userID)
	if err != nil || len(ids) == 0 {
		return []domain.Product{}, err
	}
	q, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var found []domain.Product
	if err := r.db.SelectContext(ctx, &found, r.db.Rebind(q), args...); err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]domain.Product, 0, len(found))
	for _, id := range slices.Backward(ids) {
		if i := slices.IndexFunc(found, func(p domain.Product) bool { return p.ID == id }); i >= 0 {
			out = append(out, found[i])
		}
	}
	return out, nil
}
