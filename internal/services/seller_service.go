package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/storage"
	"marketplacetg/internal/validate"
)

// PlaceholderImage is shown for listings created without a photo.
const PlaceholderImage = domain.PlaceholderImage

type SellerService struct {
	Users       *repos.UserRepo
	Prods       *repos.ProductRepo
	Orders      *repos.OrderRepo
	Commissions *repos.CommissionRepo
	Blobs       storage.Store
}

// NewProduct is the listing form. Price and Stock are kept as submitted
// text and parsed here.
type NewProduct struct {
	Name        string
	Category    string
	Price       string
	Stock       string
	Description string
	Image       []byte
}

func requireSeller(u domain.User) error {
	if u.Role != domain.RoleSeller {
		return errors.Forbiddenf("seller area")
	}
	if !u.Active {
		return errors.Forbiddenf("account disabled")
	}
	return nil
}

// CreateProduct validates and lists a new product for seller. The photo is
// scaled down and stored in blob storage before the row is written.
func (s *SellerService) CreateProduct(ctx context.Context, seller domain.User, in NewProduct) (domain.Product, error) {
	if err := requireSeller(seller); err != nil {
		return domain.Product{}, err
	}
	name, ok := validate.ProductName(in.Name)
	if !ok {
		return domain.Product{}, errors.NotValidf("product name (3 to 100 characters)")
	}
	cat, ok := validate.Category(in.Category)
	if !ok {
		return domain.Product{}, errors.NotValidf("category %q", in.Category)
	}
	price, ok := validate.Price(in.Price)
	if !ok {
		return domain.Product{}, errors.NotValidf("price (between 0 and %d)", validate.MaxPrice)
	}
	stock, ok := validate.Stock(in.Stock)
	if !ok {
		return domain.Product{}, errors.NotValidf("stock (0 to %d units)", validate.MaxStock)
	}
	desc, ok := validate.Description(in.Description)
	if !ok {
		return domain.Product{}, errors.NotValidf("description (10 to 2000 characters)")
	}
	if len(in.Image) > validate.MaxImageBytes {
		return domain.Product{}, errors.NotValidf("image larger than 5MB")
	}

	id := uuid.NewString()
	imageURL := PlaceholderImage
	if len(in.Image) > 0 {
		jpg, err := storage.PrepareProductImage(in.Image)
		if err != nil {
			return domain.Product{}, err
		}
		if imageURL, err = s.Blobs.Put(ctx, "products/"+id+".jpg", "image/jpeg", jpg); err != nil {
			return domain.Product{}, errors.Annotate(err, "upload product image")
		}
	}

	ts := nowStamp()
	p := domain.Product{
		ID:          id,
		SellerID:    seller.ID,
		SellerName:  seller.DisplayName(),
		Name:        name,
		Description: desc,
		Category:    cat,
		Price:       price,
		Stock:       stock,
		ImageURL:    imageURL,
		Images:      domain.StringList{imageURL},
		Active:      true,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.Prods.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *SellerService) ownProduct(ctx context.Context, seller domain.User, id string) (domain.Product, error) {
	if err := requireSeller(seller); err != nil {
		return domain.Product{}, err
	}
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if p.SellerID != seller.ID {
		return domain.Product{}, errors.Forbiddenf("product %s", id)
	}
	return p, nil
}

func (s *SellerService) ToggleProduct(ctx context.Context, seller domain.User, id string) (bool, error) {
	if _, err := s.ownProduct(ctx, seller, id); err != nil {
		return false, err
	}
	return s.Prods.ToggleActive(ctx, id)
}

func (s *SellerService) DeleteProduct(ctx context.Context, seller domain.User, id string) error {
	p, err := s.ownProduct(ctx, seller, id)
	if err != nil {
		return err
	}
	return deleteProduct(ctx, s.Prods, s.Blobs, p)
}

// deleteProduct removes the row, then its photo. A photo that cannot be
// removed is only logged.
func deleteProduct(ctx context.Context, prods *repos.ProductRepo, blobs storage.Store, p domain.Product) error {
	if err := prods.Delete(ctx, p.ID); err != nil {
		return err
	}
	if blobs == nil {
		return nil
	}
	if key, ok := blobs.KeyFor(p.ImageURL); ok {
		if err := blobs.Delete(ctx, key); err != nil {
			log.Error(nil, "product.image.delete", err, map[string]any{"product_id": p.ID})
		}
	}
	return nil
}

// ProfileUpdate is the seller profile form.
type ProfileUpdate struct {
	FirstName       string
	LastName        string
	Phone           string
	ShopName        string
	ShopDescription string
}

func (s *SellerService) UpdateProfile(ctx context.Context, seller domain.User, in ProfileUpdate) (domain.User, error) {
	if err := requireSeller(seller); err != nil {
		return domain.User{}, err
	}
	var ok bool
	p := repos.Profile{}
	if strings.TrimSpace(in.FirstName) != "" {
		if p.FirstName, ok = validate.Name(in.FirstName); !ok {
			return domain.User{}, errors.NotValidf("first name")
		}
	}
	if strings.TrimSpace(in.LastName) != "" {
		if p.LastName, ok = validate.Name(in.LastName); !ok {
			return domain.User{}, errors.NotValidf("last name")
		}
	}
	if strings.TrimSpace(in.Phone) != "" {
		if p.Phone, ok = validate.Phone(in.Phone); !ok {
			return domain.User{}, errors.NotValidf("phone number (+228 followed by 8 digits)")
		}
	}
	if p.ShopName, ok = validate.ShopName(in.ShopName); !ok {
		return domain.User{}, errors.NotValidf("shop name")
	}
	if p.ShopDescription, ok = validate.ShopDescription(in.ShopDescription); !ok {
		return domain.User{}, errors.NotValidf("shop description")
	}
	if err := s.Users.UpdateProfile(ctx, seller.ID, p); err != nil {
		return domain.User{}, err
	}
	return s.Users.ByID(ctx, seller.ID)
}

// SellerOrder is an order as a seller sees it: only their own lines.
type SellerOrder struct {
	Order    domain.Order    `json:"order"`
	Subtotal decimal.Decimal `json:"sellerSubtotal"`
}

type SellerStats struct {
	TotalProducts      int             `json:"totalProducts"`
	TotalOrders        int             `json:"totalOrders"`
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	GrossSales         decimal.Decimal `json:"grossSales"`
	PlatformCommission decimal.Decimal `json:"platformCommission"`
}

type SellerDashboard struct {
	Seller   domain.User         `json:"seller"`
	Products []domain.Product    `json:"products"`
	Orders   []SellerOrder       `json:"orders"`
	Sales    []domain.Commission `json:"sales"`
	Stats    SellerStats         `json:"stats"`
}

func (s *SellerService) Dashboard(ctx context.Context, seller domain.User) (SellerDashboard, error) {
	if err := requireSeller(seller); err != nil {
		return SellerDashboard{}, err
	}
	products, err := s.Prods.ListBySeller(ctx, seller.ID)
	if err != nil {
		return SellerDashboard{}, err
	}
	orders, err := s.Orders.ListContainingSeller(ctx, seller.ID)
	if err != nil {
		return SellerDashboard{}, err
	}
	sales, err := s.Commissions.ListBySeller(ctx, seller.ID)
	if err != nil {
		return SellerDashboard{}, err
	}

	d := SellerDashboard{Seller: seller, Products: products, Sales: sales, Orders: make([]SellerOrder, 0, len(orders))}
	for _, o := range orders {
		so := SellerOrder{Order: o, Subtotal: decimal.Zero}
		so.Order.Items = o.ItemsForSeller(seller.ID)
		for _, it := range so.Order.Items {
			so.Subtotal = so.Subtotal.Add(it.Total())
		}
		d.Orders = append(d.Orders, so)
	}
	d.Stats = SellerStats{
		TotalProducts:      len(products),
		TotalOrders:        len(orders),
		TotalRevenue:       decimal.Zero,
		GrossSales:         decimal.Zero,
		PlatformCommission: decimal.Zero,
	}
	for _, c := range sales {
		d.Stats.TotalRevenue = d.Stats.TotalRevenue.Add(c.SellerAmount)
		d.Stats.GrossSales = d.Stats.GrossSales.Add(c.TotalAmount)
		d.Stats.PlatformCommission = d.Stats.PlatformCommission.Add(c.PlatformAmount)
	}
	return d, nil
}
