package services

import (
	"context"

	"github.com/juju/errors"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/repos"
)

type WishlistService struct {
	Repo  *repos.WishlistRepo
	Prods *repos.ProductRepo
}

func NewWishlistService(r *repos.WishlistRepo, prods *repos.ProductRepo) *WishlistService {
	return &WishlistService{Repo: r, Prods: prods}
}

// Save adds an active product to the user's wishlist.
func (s *WishlistService) Save(ctx context.Context, userID, productID string) error {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return errors.NotFoundf("product %q", productID)
	}
	return s.Repo.Add(ctx, userID, productID)
}

func (s *WishlistService) Unsave(ctx context.Context, userID, productID string) error {
	return s.Repo.Remove(ctx, userID, productID)
}

func (s *WishlistService) List(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.Repo.List(ctx, userID)
}
