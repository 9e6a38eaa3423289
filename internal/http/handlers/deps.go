package handlers

import (
	"github.com/jmoiron/sqlx"

	"marketplacetg/internal/config"
	"marketplacetg/internal/fitting"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/services"
	"marketplacetg/internal/storage"
)

type Deps struct {
	Sessions *Sessions

	AuthHandler      *AuthHandler
	ProductHandler   *ProductHandler
	CategoryHandler  *CategoryHandler
	SearchHandler    *SearchHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	PaymentHandler   *PaymentHandler
	SellerHandler    *SellerHandler
	AdminHandler     *AdminHandler
	FittingHandler   *FittingHandler
	WishlistHandler  *WishlistHandler
	MediaHandler     *MediaHandler
}

// NewDeps builds repositories, services and handlers over db and blobs. A
// nil assistant uses fitting.NoAssistant.
func NewDeps(db *sqlx.DB, cfg config.Config, blobs storage.Store, assistant fitting.Assistant) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	commRepo := repos.NewCommissionRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	wishRepo := repos.NewWishlistRepo(db)
	payRepo := repos.NewPaymentRepo(db)

	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	invSvc := services.NewInventoryService(invRepo, prodRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	orderSvc := services.NewOrderService(cartSvc, prodRepo, orderRepo, commRepo)
	paySvc := services.NewPaymentService(orderRepo, payRepo, cfg.OTPCode)
	authSvc := &services.AuthService{Users: userRepo, Cart: cartSvc}
	sellerSvc := &services.SellerService{Users: userRepo, Prods: prodRepo, Orders: orderRepo, Commissions: commRepo, Blobs: blobs}
	adminSvc := &services.AdminService{Users: userRepo, Prods: prodRepo, Orders: orderSvc, OrderRepo: orderRepo, Commissions: commRepo, Blobs: blobs}
	wishSvc := services.NewWishlistService(wishRepo, prodRepo)
	fittingSvc := &services.FittingService{Prods: prodRepo, Blobs: blobs, Room: fitting.NewRoom(assistant)}

	sessions := &Sessions{Auth: authSvc, Secure: cfg.CookieSecure}
	return &Deps{
		Sessions:         sessions,
		AuthHandler:      &AuthHandler{Auth: authSvc, Sessions: sessions},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Orders: orderSvc},
		PaymentHandler:   &PaymentHandler{Payments: paySvc},
		SellerHandler:    &SellerHandler{Seller: sellerSvc},
		AdminHandler:     &AdminHandler{Admin: adminSvc},
		FittingHandler:   &FittingHandler{Fitting: fittingSvc},
		WishlistHandler:  &WishlistHandler{Wish: wishSvc},
		MediaHandler:     &MediaHandler{Blobs: blobs},
	}
}
