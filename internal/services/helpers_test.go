package services_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/fitting"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/services"
	"marketplacetg/internal/storage"
)

const testOTP = "123456"

// env is the full service graph over a seeded in-memory database.
type env struct {
	DB    *sqlx.DB
	Blobs *storage.DiskStore

	Users    *repos.UserRepo
	Prods    *repos.ProductRepo
	Orders   *repos.OrderRepo
	Comms    *repos.CommissionRepo
	Payments *repos.PaymentRepo

	Catalog   *services.CatalogService
	Cart      *services.CartService
	Checkout  *services.OrderService
	Pay       *services.PaymentService
	Auth      *services.AuthService
	Seller    *services.SellerService
	Admin     *services.AdminService
	Inventory *services.InventoryService
	Wishlist  *services.WishlistService
	Fitting   *services.FittingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := storage.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	e := &env{
		DB:       db,
		Blobs:    blobs,
		Users:    repos.NewUserRepo(db),
		Prods:    repos.NewProductRepo(db),
		Orders:   repos.NewOrderRepo(db),
		Comms:    repos.NewCommissionRepo(db),
		Payments: repos.NewPaymentRepo(db),
	}
	e.Catalog = services.NewCatalogService(repos.NewCategoryRepo(db), e.Prods)
	e.Cart = services.NewCartService(repos.NewCartRepo(db), e.Prods)
	e.Checkout = services.NewOrderService(e.Cart, e.Prods, e.Orders, e.Comms)
	e.Pay = services.NewPaymentService(e.Orders, e.Payments, testOTP)
	e.Auth = &services.AuthService{Users: e.Users, Cart: e.Cart}
	e.Seller = &services.SellerService{Users: e.Users, Prods: e.Prods, Orders: e.Orders, Commissions: e.Comms, Blobs: blobs}
	e.Admin = &services.AdminService{Users: e.Users, Prods: e.Prods, Orders: e.Checkout, OrderRepo: e.Orders, Commissions: e.Comms, Blobs: blobs}
	e.Inventory = services.NewInventoryService(repos.NewInventoryRepo(db), e.Prods)
	e.Wishlist = services.NewWishlistService(repos.NewWishlistRepo(db), e.Prods)
	e.Fitting = &services.FittingService{Prods: e.Prods, Blobs: blobs, Room: fitting.NewRoom(nil)}
	return e
}

func (e *env) user(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := e.Users.ByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *env) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.Prods.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func buyer(id string) services.Owner {
	return services.Owner{SessionID: "sess-" + id, UserID: id}
}

func anonymous(sid string) services.Owner {
	return services.Owner{SessionID: sid}
}

// placeOrder fills the buyer's cart with the given product quantities and
// checks out.
func (e *env) placeOrder(t *testing.T, buyerID string, lines map[string]int) domain.Order {
	t.Helper()
	ctx := context.Background()
	o := buyer(buyerID)
	for id, qty := range lines {
		_, err := e.Cart.Add(ctx, o, id, qty, nil)
		require.NoError(t, err)
	}
	order, err := e.Checkout.Checkout(ctx, o)
	require.NoError(t, err)
	return order
}

// payOrder takes the buyer through the mobile-money flow until the order is
// confirmed.
func (e *env) payOrder(t *testing.T, buyerID, orderID string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.Pay.SelectMethod(ctx, buyerID, orderID, domain.PaymentTMoney)
	require.NoError(t, err)
	_, err = e.Pay.RequestOTP(ctx, buyerID, orderID, "+22890000001", "+22890000001")
	require.NoError(t, err)
	_, err = e.Pay.Confirm(ctx, buyerID, orderID, testOTP, lomeAddress)
	require.NoError(t, err)
}
