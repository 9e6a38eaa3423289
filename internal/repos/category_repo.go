package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
)

// CategoryCount is the number of active listings in one category.
type CategoryCount struct {
	Category domain.Category `db:"category" json:"category"`
	Count    int             `db:"n" json:"count"`
}

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// Counts returns every known category, including empty ones, in the fixed
// category order.
func (r *CategoryRepo) Counts(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT category, COUNT(*) AS n
	  FROM products
	  WHERE active = 1
	  GROUP BY category
	`); err != nil {
		return nil, errors.Trace(err)
	}
	byCat := make(map[domain.Category]int, len(rows))
	for _, row := range rows {
		byCat[row.Category] = row.Count
	}
	out := make([]CategoryCount, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, CategoryCount{Category: c, Count: byCat[c]})
	}
	return out, nil
}
