package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed product categories of the marketplace.
type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryAccessories Category = "accessories"
	CategoryShoes       Category = "shoes"
	CategoryElectronics Category = "electronics"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategoryFood        Category = "food"
	CategoryServices    Category = "services"
)

var Categories = []Category{
	CategoryClothing, CategoryAccessories, CategoryShoes, CategoryElectronics,
	CategoryHome, CategoryBeauty, CategoryFood, CategoryServices,
}

func (c Category) Valid() bool { return slices.Contains(Categories, c) }

// PlaceholderImage is shown for listings that have no photo of their own.
const PlaceholderImage = "/static/placeholder-product.svg"

type Product struct {
	ID          string          `db:"id" json:"id"`
	SellerID    string          `db:"seller_id" json:"sellerId"`
	SellerName  string          `db:"seller_name" json:"sellerName"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    Category        `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	ImageURL    string          `db:"image_url" json:"imageUrl"`
	Images      StringList      `db:"images_json" json:"images"`
	Active      bool            `db:"active" json:"isActive"`
	Rating      float64         `db:"rating" json:"rating"`
	ReviewCount int             `db:"review_count" json:"reviewCount"`
	ViewCount   int             `db:"view_count" json:"viewCount"`
	SoldCount   int             `db:"sold_count" json:"soldCount"`
	CreatedAt   string          `db:"created_at" json:"createdAt"`
	UpdatedAt   string          `db:"updated_at" json:"updatedAt"`
}

// Cursor marks the last product of a catalog page.
type Cursor struct {
	CreatedAt string `json:"createdAt"`
	ID        string `json:"id"`
}

// Options are the buyer's chosen variants (size, color, material).
// Two options sets are the same line only when they are exactly equal.
type Options map[string]string

func (o Options) Equal(other Options) bool {
	if len(o) == 0 && len(other) == 0 {
		return true
	}
	return maps.Equal(o, other)
}

func (o Options) Value() (driver.Value, error) {
	if len(o) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(o))
	return string(b), err
}

func (o *Options) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	m := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("decode options: %w", err)
		}
	}
	*o = m
	return nil
}

// StringList is a JSON encoded list column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *StringList) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	var out []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
	}
	*l = out
	return nil
}

func textOf(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}

// CartLine is one product entry in a cart. Price and seller are snapshots
// taken when the line was first added.
type CartLine struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	SellerID   string          `json:"sellerId"`
	SellerName string          `json:"sellerName,omitempty"`
	Quantity   int             `json:"quantity"`
	Options    Options         `json:"options"`
	AddedAt    string          `json:"addedAt"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) Matches(productID string, opts Options) bool {
	return l.ProductID == productID && l.Options.Equal(opts)
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions are the moves made by hand. Pending orders only become
// confirmed through a successful payment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderShipped, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// HoldsStock reports whether the order's units are still reserved from
// stock and not yet shipped.
func (s OrderStatus) HoldsStock() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderProcessing
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool { return s == OrderDelivered || s == OrderCancelled }

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

type PaymentMethod string

const (
	PaymentFlooz       PaymentMethod = "flooz"
	PaymentTMoney      PaymentMethod = "tmoney"
	PaymentOrangeMoney PaymentMethod = "orange_money"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentFlooz || m == PaymentTMoney || m == PaymentOrangeMoney
}

// Split is a platform/seller division of an amount.
type Split struct {
	Platform decimal.Decimal `json:"platform"`
	Seller   decimal.Decimal `json:"seller"`
}

type OrderItem struct {
	OrderID    string          `db:"order_id" json:"-"`
	LineNo     int             `db:"line_no" json:"-"`
	ProductID  string          `db:"product_id" json:"productId"`
	SellerID   string          `db:"seller_id" json:"sellerId"`
	SellerName string          `db:"seller_name" json:"sellerName"`
	Name       string          `db:"name" json:"name"`
	ImageURL   string          `db:"image_url" json:"imageUrl"`
	Price      decimal.Decimal `db:"unit_price" json:"price"`
	Quantity   int             `db:"quantity" json:"quantity"`
	Options    Options         `db:"options_json" json:"options"`
	Platform   decimal.Decimal `db:"platform_amount" json:"-"`
	Seller     decimal.Decimal `db:"seller_amount" json:"-"`
}

func (it OrderItem) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it OrderItem) Commission() Split { return Split{Platform: it.Platform, Seller: it.Seller} }

// MarshalJSON exposes the per-line commission as a nested object.
func (it OrderItem) MarshalJSON() ([]byte, error) {
	type plain OrderItem
	return json.Marshal(struct {
		plain
		Commission Split `json:"commission"`
	}{plain(it), it.Commission()})
}

type Order struct {
	ID             string           `db:"id" json:"id"`
	BuyerID        string           `db:"buyer_id" json:"userId"`
	TotalAmount    decimal.Decimal  `db:"total_amount" json:"totalAmount"`
	Platform       decimal.Decimal  `db:"platform_amount" json:"-"`
	Seller         decimal.Decimal  `db:"seller_amount" json:"-"`
	Status         OrderStatus      `db:"status" json:"status"`
	PaymentMethod  *PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	PaymentStatus  string           `db:"payment_status" json:"paymentStatus,omitempty"`
	TransactionID  string           `db:"transaction_id" json:"transactionId,omitempty"`
	PaidAmount     *decimal.Decimal `db:"paid_amount" json:"paidAmount,omitempty"`
	PaymentDate    string           `db:"payment_date" json:"paymentDate,omitempty"`
	Shipping       *ShippingAddress `db:"shipping_json" json:"shippingAddress"`
	TrackingNumber string           `db:"tracking_number" json:"trackingNumber,omitempty"`
	CreatedAt      string           `db:"created_at" json:"createdAt"`
	UpdatedAt      string           `db:"updated_at" json:"updatedAt"`
	Items          []OrderItem      `db:"-" json:"items"`
}

func (o Order) Commission() Split { return Split{Platform: o.Platform, Seller: o.Seller} }

func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Commission Split `json:"commission"`
	}{plain(o), o.Commission()})
}

// ItemsForSeller returns only the lines sold by sellerID.
func (o Order) ItemsForSeller(sellerID string) []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			out = append(out, it)
		}
	}
	return out
}

type ShippingAddress struct {
	FullName      string `json:"fullName"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode,omitempty"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	return string(b), err
}

func (a *ShippingAddress) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("decode shipping address: %w", err)
	}
	return nil
}

type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

func (s CommissionStatus) Valid() bool { return s == CommissionPending || s == CommissionPaid }

type Commission struct {
	ID             string           `db:"id" json:"id"`
	OrderID        string           `db:"order_id" json:"orderId"`
	SellerID       string           `db:"seller_id" json:"sellerId"`
	ProductID      string           `db:"product_id" json:"productId"`
	TotalAmount    decimal.Decimal  `db:"total_amount" json:"totalAmount"`
	PlatformAmount decimal.Decimal  `db:"platform_amount" json:"platformAmount"`
	SellerAmount   decimal.Decimal  `db:"seller_amount" json:"sellerAmount"`
	Status         CommissionStatus `db:"status" json:"status"`
	CreatedAt      string           `db:"created_at" json:"createdAt"`
	PaidAt         string           `db:"paid_at" json:"paidAt,omitempty"`
}
