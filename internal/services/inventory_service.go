package services

import (
	"context"
	"strconv"

	"github.com/juju/errors"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/validate"
)

// LowStockThreshold is the stock below which a listing shows "low stock".
const LowStockThreshold = 5

// Availability is the stock badge of a product page.
type Availability struct {
	ProductID string `json:"productId"`
	Status    string `json:"status"`
	Qty       int    `json:"qty"`
}

type InventoryService struct {
	Inv   *repos.InventoryRepo
	Prods *repos.ProductRepo
}

func NewInventoryService(inv *repos.InventoryRepo, prods *repos.ProductRepo) *InventoryService {
	return &InventoryService{Inv: inv, Prods: prods}
}

func availabilityOf(productID string, qty int) Availability {
	status := "OUT_OF_STOCK"
	switch {
	case qty >= LowStockThreshold:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return Availability{ProductID: productID, Status: status, Qty: qty}
}

// CheckAvailability reads the live stock of an active product.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (Availability, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	if !p.Active {
		return Availability{}, errors.NotFoundf("product %q", productID)
	}
	qty, err := s.Inv.Stock(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	return availabilityOf(productID, qty), nil
}

// Restock sets the stock of one of the seller's own listings.
func (s *InventoryService) Restock(ctx context.Context, seller domain.User, productID string, qty int) (Availability, error) {
	if err := requireSeller(seller); err != nil {
		return Availability{}, err
	}
	if _, ok := validate.Stock(strconv.Itoa(qty)); !ok {
		return Availability{}, errors.NotValidf("stock (0 to %d units)", validate.MaxStock)
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	if p.SellerID != seller.ID {
		return Availability{}, errors.Forbiddenf("product %s", productID)
	}
	if err := s.Inv.SetStock(ctx, productID, qty); err != nil {
		return Availability{}, err
	}
	return availabilityOf(productID, qty), nil
}
