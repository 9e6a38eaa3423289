package services

import (
	"context"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/storage"
)

type AdminService struct {
	Users       *repos.UserRepo
	Prods       *repos.ProductRepo
	Orders      *OrderService
	OrderRepo   *repos.OrderRepo
	Commissions *repos.CommissionRepo
	Blobs       storage.Store
}

type AdminStats struct {
	TotalUsers          int             `json:"totalUsers"`
	TotalSellers        int             `json:"totalSellers"`
	TotalProducts       int             `json:"totalProducts"`
	TotalOrders         int             `json:"totalOrders"`
	TotalRevenue        decimal.Decimal `json:"totalRevenue"`
	TotalCommissions    decimal.Decimal `json:"totalCommissions"`
	TotalSellerEarnings decimal.Decimal `json:"totalSellerEarnings"`
	TotalSalesVolume    decimal.Decimal `json:"totalSalesVolume"`
}

// SellerPerformance is one row of the sellers table.
type SellerPerformance struct {
	SellerID string          `json:"sellerId"`
	Name     string          `json:"name"`
	ShopName string          `json:"shopName"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone"`
	Products int             `json:"products"`
	Orders   int             `json:"orders"`
	Rating   float64         `json:"rating"`
	Earnings decimal.Decimal `json:"earnings"`
}

type AdminDashboard struct {
	Stats   AdminStats          `json:"stats"`
	Sellers []SellerPerformance `json:"sellers"`
}

func requireAdmin(u domain.User) error {
	if u.Role != domain.RoleAdmin || !u.Active {
		return errors.Forbiddenf("admin area")
	}
	return nil
}

func (s *AdminService) Dashboard(ctx context.Context, admin domain.User) (AdminDashboard, error) {
	if err := requireAdmin(admin); err != nil {
		return AdminDashboard{}, err
	}
	users, err := s.Users.List(ctx, repos.UserFilter{})
	if err != nil {
		return AdminDashboard{}, err
	}
	products, err := s.Prods.List(ctx, repos.ProductFilter{})
	if err != nil {
		return AdminDashboard{}, err
	}
	orders, err := s.OrderRepo.List(ctx, "")
	if err != nil {
		return AdminDashboard{}, err
	}
	commissions, err := s.Commissions.List(ctx, "")
	if err != nil {
		return AdminDashboard{}, err
	}

	st := AdminStats{
		TotalUsers:          len(users),
		TotalProducts:       len(products),
		TotalOrders:         len(orders),
		TotalRevenue:        decimal.Zero,
		TotalCommissions:    decimal.Zero,
		TotalSellerEarnings: decimal.Zero,
		TotalSalesVolume:    decimal.Zero,
	}
	for _, o := range orders {
		st.TotalRevenue = st.TotalRevenue.Add(o.TotalAmount)
	}
	for _, c := range commissions {
		st.TotalCommissions = st.TotalCommissions.Add(c.PlatformAmount)
		st.TotalSellerEarnings = st.TotalSellerEarnings.Add(c.SellerAmount)
		st.TotalSalesVolume = st.TotalSalesVolume.Add(c.TotalAmount)
	}

	productsBy := map[string]int{}
	for _, p := range products {
		productsBy[p.SellerID]++
	}
	ordersBy := map[string]int{}
	for _, o := range orders {
		seen := map[string]bool{}
		for _, it := range o.Items {
			if !seen[it.SellerID] {
				seen[it.SellerID] = true
				ordersBy[it.SellerID]++
			}
		}
	}
	earningsBy := map[string]decimal.Decimal{}
	for _, c := range commissions {
		earningsBy[c.SellerID] = earningsBy[c.SellerID].Add(c.SellerAmount)
	}

	var sellers []SellerPerformance
	for _, u := range users {
		if u.Role != domain.RoleSeller {
			continue
		}
		st.TotalSellers++
		sellers = append(sellers, SellerPerformance{
			SellerID: u.ID,
			Name:     u.FirstName + " " + u.LastName,
			ShopName: u.ShopName,
			Email:    u.Email,
			Phone:    u.Phone,
			Products: productsBy[u.ID],
			Orders:   ordersBy[u.ID],
			Rating:   u.ShopRating,
			Earnings: earningsBy[u.ID],
		})
	}
	if sellers == nil {
		sellers = []SellerPerformance{}
	}
	return AdminDashboard{Stats: st, Sellers: sellers}, nil
}

func (s *AdminService) ListUsers(ctx context.Context, admin domain.User, f repos.UserFilter) ([]domain.User, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, errors.NotValidf("role %q", f.Role)
	}
	return s.Users.List(ctx, f)
}

func (s *AdminService) ListProducts(ctx context.Context, admin domain.User, f repos.ProductFilter) ([]domain.Product, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return s.Prods.List(ctx, f)
}

func (s *AdminService) ListOrders(ctx context.Context, admin domain.User, status domain.OrderStatus) ([]domain.Order, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, errors.NotValidf("order status %q", status)
	}
	return s.OrderRepo.List(ctx, status)
}

// ListCommissions returns the per-line commission records, newest first.
func (s *AdminService) ListCommissions(ctx context.Context, admin domain.User, status domain.CommissionStatus) ([]domain.Commission, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, errors.NotValidf("commission status %q", status)
	}
	return s.Commissions.List(ctx, status)
}

// ToggleUser activates or suspends an account. Admins cannot suspend
// themselves.
func (s *AdminService) ToggleUser(ctx context.Context, admin domain.User, id string) (bool, error) {
	if err := requireAdmin(admin); err != nil {
		return false, err
	}
	if id == admin.ID {
		return false, errors.NotValidf("toggling your own account")
	}
	return s.Users.ToggleActive(ctx, id)
}

// DeleteUser removes an account with its listings and saved cart. Pending
// orders it placed are cancelled first.
func (s *AdminService) DeleteUser(ctx context.Context, admin domain.User, id string) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	if id == admin.ID {
		return errors.NotValidf("deleting your own account")
	}
	listings, err := s.Prods.ListBySeller(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Users.DeleteUserCascade(ctx, id); err != nil {
		return err
	}
	for _, p := range listings {
		if key, ok := s.Blobs.KeyFor(p.ImageURL); ok {
			if err := s.Blobs.Delete(ctx, key); err != nil {
				log.Error(nil, "product.image.delete", err, map[string]any{"product_id": p.ID})
			}
		}
	}
	return nil
}

func (s *AdminService) ToggleProduct(ctx context.Context, admin domain.User, id string) (bool, error) {
	if err := requireAdmin(admin); err != nil {
		return false, err
	}
	return s.Prods.ToggleActive(ctx, id)
}

func (s *AdminService) DeleteProduct(ctx context.Context, admin domain.User, id string) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return err
	}
	return deleteProduct(ctx, s.Prods, s.Blobs, p)
}

func (s *AdminService) SetOrderStatus(ctx context.Context, admin domain.User, id string, next domain.OrderStatus) (domain.Order, error) {
	if err := requireAdmin(admin); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.SetStatus(ctx, id, next)
}

func (s *AdminService) DeleteOrder(ctx context.Context, admin domain.User, id string) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	return s.Orders.Delete(ctx, id)
}
