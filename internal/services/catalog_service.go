package services

import (
	"context"
	"slices"

	"github.com/juju/errors"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/repos"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
)

// ErrCatalogUnavailable is the generic load failure shown to shoppers.
const ErrCatalogUnavailable = errors.ConstError("catalog unavailable")

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

// Page is one slice of the catalog. Next is nil once the catalog is
// exhausted.
type Page struct {
	Products []domain.Product `json:"products"`
	Next     *domain.Cursor   `json:"next"`
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}

func pageOf(ps []domain.Product, limit int) Page {
	p := Page{Products: ps}
	if len(ps) == limit {
		last := ps[len(ps)-1]
		p.Next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return p
}

// Get returns the newest active products.
func (s *CatalogService) Get(ctx context.Context, limit int) (Page, error) {
	limit = pageSize(limit)
	ps, err := s.Prods.ListActive(ctx, limit)
	if err != nil {
		return Page{}, errors.WithType(err, ErrCatalogUnavailable)
	}
	return pageOf(ps, limit), nil
}

// GetMore returns the page after cur. An empty page means there is nothing
// more to load.
func (s *CatalogService) GetMore(ctx context.Context, cur domain.Cursor, limit int) (Page, error) {
	if cur.CreatedAt == "" || cur.ID == "" {
		return Page{}, errors.NotValidf("cursor")
	}
	limit = pageSize(limit)
	ps, err := s.Prods.ListActiveAfter(ctx, cur, limit)
	if err != nil {
		return Page{}, errors.WithType(err, ErrCatalogUnavailable)
	}
	return pageOf(ps, limit), nil
}

// Product returns an active product. Inactive listings are reported as
// missing.
func (s *CatalogService) Product(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.Active {
		return domain.Product{}, errors.NotFoundf("product %q", id)
	}
	return p, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]repos.CategoryCount, error) {
	return s.Cats.Counts(ctx)
}

// Search matches active products on name, description, shop or category
// text. A non-empty cat narrows the result to that category.
func (s *CatalogService) Search(ctx context.Context, q string, cat domain.Category, limit int) ([]domain.Product, error) {
	active := true
	ps, err := s.Prods.List(ctx, repos.ProductFilter{Active: &active, Query: q})
	if err != nil {
		return nil, errors.WithType(err, ErrCatalogUnavailable)
	}
	if cat != "" {
		ps = slices.DeleteFunc(ps, func(p domain.Product) bool { return p.Category != cat })
	}
	if limit = pageSize(limit); len(ps) > limit {
		ps = ps[:limit]
	}
	return ps, nil
}
