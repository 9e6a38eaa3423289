package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
)

func nowStamp() string { return time.Now().UTC().Format(repos.TimeFormat) }

type OrderService struct {
	Cart        *CartService
	Prods       *repos.ProductRepo
	Orders      *repos.OrderRepo
	Commissions *repos.CommissionRepo
}

func NewOrderService(cart *CartService, prods *repos.ProductRepo, orders *repos.OrderRepo, commissions *repos.CommissionRepo) *OrderService {
	return &OrderService{Cart: cart, Prods: prods, Orders: orders, Commissions: commissions}
}

// Checkout turns the buyer's cart into a pending order with one pending
// commission record per line, then empties the cart.
//
// Every line is checked against live stock first, in cart order, and the
// first short line is named in the error. The write itself decrements
// stock conditionally, so a buyer racing for the same units loses with
// ErrOutOfStock and nothing is written.
func (s *OrderService) Checkout(ctx context.Context, o Owner) (domain.Order, error) {
	if !o.Authenticated() {
		return domain.Order{}, errors.Unauthorizedf("sign in to check out")
	}
	lines, err := s.Cart.Lines(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 {
		return domain.Order{}, ErrCartEmpty
	}

	for _, l := range lines {
		p, err := s.Prods.Get(ctx, l.ProductID)
		if errors.Is(err, errors.NotFound) || (err == nil && (!p.Active || p.Stock < l.Quantity)) {
			return domain.Order{}, errors.Annotatef(ErrOutOfStock, "%s", l.Name)
		}
		if err != nil {
			return domain.Order{}, errors.Annotatef(err, "check stock of %s", l.ProductID)
		}
	}

	calc := Calculate(lines)
	ts := nowStamp()
	order := domain.Order{
		ID:          uuid.NewString(),
		BuyerID:     o.UserID,
		TotalAmount: calc.Total,
		Platform:    calc.Split.Platform,
		Seller:      calc.Split.Seller,
		Status:      domain.OrderPending,
		CreatedAt:   ts,
		UpdatedAt:   ts,
		Items:       calc.Items,
	}
	commissions := make([]domain.Commission, 0, len(calc.Items))
	for _, it := range calc.Items {
		commissions = append(commissions, domain.Commission{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			SellerID:       it.SellerID,
			ProductID:      it.ProductID,
			TotalAmount:    it.Total(),
			PlatformAmount: it.Platform,
			SellerAmount:   it.Seller,
			Status:         domain.CommissionPending,
			CreatedAt:      ts,
		})
	}

	if err := s.Orders.CreateWithCommissions(ctx, order, commissions); err != nil {
		if errors.Is(err, repos.ErrInsufficientStock) {
			return domain.Order{}, errors.WithType(err, ErrOutOfStock)
		}
		return domain.Order{}, errors.Annotate(err, "create order")
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	// The order exists now; a cart that fails to clear is only logged.
	if err := s.Cart.Clear(ctx, o); err != nil {
		log.Error(nil, "cart.clear", err, map[string]any{"order_id": order.ID})
	}
	return order, nil
}

// Get returns an order the viewer may see. Buyers see their own orders,
// admins see all of them, and sellers see orders holding their lines with
// only those lines included.
func (s *OrderService) Get(ctx context.Context, viewer domain.User, id string) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	switch {
	case viewer.Role == domain.RoleAdmin, o.BuyerID == viewer.ID:
		return o, nil
	case viewer.Role == domain.RoleSeller:
		if mine := o.ItemsForSeller(viewer.ID); len(mine) > 0 {
			o.Items = mine
			return o, nil
		}
	}
	return domain.Order{}, errors.Forbiddenf("order %s", id)
}

// History lists the buyer's orders, newest first.
func (s *OrderService) History(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return s.Orders.ListByBuyer(ctx, buyerID)
}

// SetStatus moves an order along the status table. Cancelling returns the
// reserved stock and shipping stamps a tracking number.
func (s *OrderService) SetStatus(ctx context.Context, id string, next domain.OrderStatus) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, errors.NotValidf("order status %q", next)
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.CanTransition(next) {
		return domain.Order{}, errors.Annotatef(ErrInvalidTransition, "%s -> %s", o.Status, next)
	}
	if next == domain.OrderShipped {
		err = s.Orders.MarkShipped(ctx, id, o.Status, trackingNumber())
	} else {
		err = s.Orders.UpdateStatus(ctx, id, o.Status, next)
	}
	if err != nil {
		if errors.Is(err, repos.ErrStaleStatus) {
			return domain.Order{}, errors.WithType(err, ErrInvalidTransition)
		}
		return domain.Order{}, err
	}
	return s.Orders.Get(ctx, id)
}

func trackingNumber() string {
	return "TG" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	return s.Orders.Delete(ctx, id)
}

// CommissionRecords returns the commission records written for an order.
func (s *OrderService) CommissionRecords(ctx context.Context, orderID string) ([]domain.Commission, error) {
	return s.Commissions.ListByOrder(ctx, orderID)
}
