package services

import (
	"context"
	"slices"
	"sync"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
)

// Owner identifies whose cart is addressed. A cart with a UserID is
// persisted; an anonymous one lives in memory for the session only.
type Owner struct {
	SessionID string
	UserID    string
}

func (o Owner) Authenticated() bool { return o.UserID != "" }

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo

	mu   sync.Mutex
	anon map[string][]domain.CartLine
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods, anon: map[string][]domain.CartLine{}}
}

type CartView struct {
	Items []domain.CartLine `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"itemCount"`
}

// Total is the sum of line totals at snapshot prices.
func Total(lines []domain.CartLine) decimal.Decimal {
	t := decimal.Zero
	for _, l := range lines {
		t = t.Add(l.Total())
	}
	return t
}

// ItemCount is the number of units in the cart, not the number of lines.
func ItemCount(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func viewOf(lines []domain.CartLine) CartView {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartView{Items: lines, Total: Total(lines), Count: ItemCount(lines)}
}

// load must be called with s.mu held.
func (s *CartService) load(ctx context.Context, o Owner) ([]domain.CartLine, error) {
	if !o.Authenticated() {
		return slices.Clone(s.anon[o.SessionID]), nil
	}
	lines, _, err := s.Carts.Load(ctx, o.UserID)
	if errors.Is(err, errors.NotValid) {
		log.Error(nil, "cart.decode", err, map[string]any{"user_id": o.UserID})
		return nil, nil
	}
	return lines, errors.Trace(err)
}

// save must be called with s.mu held.
func (s *CartService) save(ctx context.Context, o Owner, lines []domain.CartLine) error {
	if !o.Authenticated() {
		if len(lines) == 0 {
			delete(s.anon, o.SessionID)
		} else {
			s.anon[o.SessionID] = lines
		}
		return nil
	}
	return s.Carts.Save(ctx, o.UserID, lines)
}

func (s *CartService) View(ctx context.Context, o Owner) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(ctx, o)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(lines), nil
}

// Lines returns a copy of the current cart lines.
func (s *CartService) Lines(ctx context.Context, o Owner) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, o)
}

// Add puts qty units of a product in the cart. Lines merge when product
// and options are equal. The price is snapshotted on the first add.
func (s *CartService) Add(ctx context.Context, o Owner, productID string, qty int, opts domain.Options) (CartView, error) {
	if qty < 1 {
		return CartView{}, errors.NotValidf("quantity %d", qty)
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if !p.Active {
		return CartView{}, errors.NotFoundf("product %q", productID)
	}
	if p.Stock <= 0 {
		return CartView{}, errors.Annotatef(ErrOutOfStock, "%s", p.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(ctx, o)
	if err != nil {
		return CartView{}, err
	}

	i := slices.IndexFunc(lines, func(l domain.CartLine) bool { return l.Matches(productID, opts) })
	have := 0
	if i >= 0 {
		have = lines[i].Quantity
	}
	if have+qty > p.Stock {
		return CartView{}, errors.Annotatef(ErrOutOfStock, "%s (requested %d, available %d)", p.Name, have+qty, p.Stock)
	}
	if i >= 0 {
		lines[i].Quantity += qty
	} else {
		if opts == nil {
			opts = domain.Options{}
		}
		lines = append(lines, domain.CartLine{
			ProductID:  p.ID,
			Name:       p.Name,
			Price:      p.Price,
			ImageURL:   p.ImageURL,
			SellerID:   p.SellerID,
			SellerName: p.SellerName,
			Quantity:   qty,
			Options:    opts,
			AddedAt:    nowStamp(),
		})
	}
	if err := s.save(ctx, o, lines); err != nil {
		return CartView{}, err
	}
	return viewOf(lines), nil
}

// Remove drops the line matching product and options. Removing a line
// that is not there is not an error.
func (s *CartService) Remove(ctx context.Context, o Owner, productID string, opts domain.Options) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(ctx, o)
	if err != nil {
		return CartView{}, err
	}
	lines = slices.DeleteFunc(lines, func(l domain.CartLine) bool { return l.Matches(productID, opts) })
	if err := s.save(ctx, o, lines); err != nil {
		return CartView{}, err
	}
	return viewOf(lines), nil
}

// UpdateQuantity changes a line by delta. A result of zero or less removes
// the line; an increase is checked against live stock.
func (s *CartService) UpdateQuantity(ctx context.Context, o Owner, productID string, delta int, opts domain.Options) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(ctx, o)
	if err != nil {
		return CartView{}, err
	}
	i := slices.IndexFunc(lines, func(l domain.CartLine) bool { return l.Matches(productID, opts) })
	if i < 0 {
		return CartView{}, errors.NotFoundf("cart line for %q", productID)
	}

	next := lines[i].Quantity + delta
	switch {
	case next <= 0:
		lines = slices.Delete(lines, i, i+1)
	case delta > 0:
		stock, err := s.stockOf(ctx, productID)
		if err != nil {
			return CartView{}, err
		}
		if next > stock {
			return CartView{}, errors.Annotatef(ErrOutOfStock, "%s (requested %d, available %d)", lines[i].Name, next, stock)
		}
		lines[i].Quantity = next
	default:
		lines[i].Quantity = next
	}
	if err := s.save(ctx, o, lines); err != nil {
		return CartView{}, err
	}
	return viewOf(lines), nil
}

func (s *CartService) Clear(ctx context.Context, o Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !o.Authenticated() {
		delete(s.anon, o.SessionID)
		return nil
	}
	return s.Carts.Clear(ctx, o.UserID)
}

// MergeOnLogin moves the anonymous session cart into the user's saved cart.
// Quantities of matching lines add up, capped at live stock.
func (s *CartService) MergeOnLogin(ctx context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	anon := s.anon[sessionID]
	delete(s.anon, sessionID)
	if len(anon) == 0 {
		return nil
	}
	owner := Owner{SessionID: sessionID, UserID: userID}
	lines, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	for _, a := range anon {
		i := slices.IndexFunc(lines, func(l domain.CartLine) bool { return l.Matches(a.ProductID, a.Options) })
		if i < 0 {
			lines = append(lines, a)
			continue
		}
		lines[i].Quantity += a.Quantity
		if stock, err := s.stockOf(ctx, a.ProductID); err == nil && lines[i].Quantity > stock {
			lines[i].Quantity = max(stock, 1)
		}
	}
	return s.save(ctx, owner, lines)
}

func (s *CartService) stockOf(ctx context.Context, productID string) (int, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}
