package repos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

// LocalStateRepo keeps small per-identity blobs, the server side stand-in
// for device local storage. Values are opaque and unversioned.
type LocalStateRepo struct{ db *sqlx.DB }

func NewLocalStateRepo(db *sqlx.DB) *LocalStateRepo { return &LocalStateRepo{db: db} }

// Get returns the stored value, or "" and false when nothing is stored.
func (r *LocalStateRepo) Get(ctx context.Context, ownerID, key string) (string, bool, error) {
	var v string
	err := r.db.GetContext(ctx, &v, `SELECT value FROM local_state WHERE owner_id = ? AND key = ?`, ownerID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Trace(err)
	}
	return v, true, nil
}

func (r *LocalStateRepo) Put(ctx context.Context, ownerID, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_state(owner_id, key, value, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(owner_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, ownerID, key, value, now())
	return errors.Trace(err)
}

func (r *LocalStateRepo) Delete(ctx context.Context, ownerID, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM local_state WHERE owner_id = ? AND key = ?`, ownerID, key)
	return errors.Trace(err)
}

// dropState removes everything stored for ownerID.
func dropState(ctx context.Context, ex sqlx.ExecerContext, ownerID string) error {
	_, err := ex.ExecContext(ctx, `DELETE FROM local_state WHERE owner_id = ?`, ownerID)
	return errors.Trace(err)
}

const cartKey = "cart"

// CartRepo persists a user's full cart as one JSON blob.
type CartRepo struct{ state *LocalStateRepo }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{state: NewLocalStateRepo(db)} }

// Load returns the saved lines. A blob that does not decode is reported as
// NotValid so the caller can start over with an empty cart.
func (r *CartRepo) Load(ctx context.Context, userID string) ([]domain.CartLine, bool, error) {
	raw, ok, err := r.state.Get(ctx, userID, cartKey)
	if err != nil || !ok {
		return nil, false, err
	}
	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, false, errors.NewNotValid(err, "stored cart")
	}
	return lines, true, nil
}

func (r *CartRepo) Save(ctx context.Context, userID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return errors.Trace(err)
	}
	return r.state.Put(ctx, userID, cartKey, string(b))
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	return r.state.Delete(ctx, userID, cartKey)
}
