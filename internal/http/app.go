// Package http assembles the fiber application: middleware, routes and the
// error page.
package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/http/handlers"
	applog "marketplacetg/internal/log"
	"marketplacetg/web"
)

// MaxBodyBytes leaves room for a 5MB image plus the rest of the form.
const MaxBodyBytes = 6 << 20

// Limits are the request budgets per client IP.
type Limits struct {
	PerMinute    int // all routes except /static and /media
	Logins       int // login attempts per LoginWindow
	LoginWindow  time.Duration
	FittingCalls int // fitting renders per minute
}

var DefaultLimits = Limits{PerMinute: 60, Logins: 5, LoginWindow: 10 * time.Minute, FittingCalls: 10}

// Options configures New.
type Options struct {
	Deps         *handlers.Deps
	Limits       Limits
	CookieSecure bool
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// ErrorHandler logs err and answers with JSON under /api and with the
// friendly error page elsewhere. Internals are never sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code, msg := handlers.Classify(err)
	c.Status(status)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"error": msg, "code": code})
	}
	if rerr := c.Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.SendString(msg)
	}
	return nil
}

func limitReached(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon", "code": "rate_limited"})
	}
}

// New builds the application with every route of the marketplace.
func New(opts Options) *fiber.App {
	d := opts.Deps
	lim := opts.Limits
	if lim.PerMinute == 0 {
		lim = DefaultLimits
	}

	app := fiber.New(fiber.Config{
		Views:        web.Engine(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    MaxBodyBytes,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "same-site"}))
	app.Use(d.Sessions.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        lim.PerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
		LimitReached: limitReached("rate.global.hit"),
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:" + csrf.HeaderName,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   opts.CookieSecure,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			c.Status(fiber.StatusForbidden)
			if isAPI(c) {
				return c.JSON(fiber.Map{"error": "Security check failed. Please refresh and try again.", "code": "csrf"})
			}
			return c.Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))

	// ---------- Static assets ----------
	app.Use("/static", filesystem.New(filesystem.Config{Root: web.Static(), MaxAge: 3600}))
	app.Get("/media/*", d.MediaHandler.Serve)

	// ---------- API ----------
	api := app.Group("/api/v1")

	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/more", d.ProductHandler.More)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/products/:id/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: limitReached("rate.availability.hit"),
	}), d.InventoryHandler.Check)
	api.Get("/categories", d.CategoryHandler.List)
	api.Get("/search", d.SearchHandler.Search)

	api.Get("/cart", d.CartHandler.View)
	api.Post("/cart/items", d.CartHandler.Add)
	api.Patch("/cart/items", d.CartHandler.Update)
	api.Delete("/cart/items", d.CartHandler.Remove)
	api.Delete("/cart", d.CartHandler.Clear)

	auth := api.Group("/auth")
	auth.Post("/register", d.AuthHandler.Register)
	auth.Post("/login", limiter.New(limiter.Config{
		Max:          lim.Logins,
		Expiration:   lim.LoginWindow,
		LimitReached: limitReached("rate.login.hit"),
	}), d.AuthHandler.Login)
	auth.Post("/logout", d.AuthHandler.Logout)
	auth.Get("/me", d.AuthHandler.Me)

	signedIn := handlers.RequireUser()
	api.Post("/checkout", signedIn, d.OrderHandler.Checkout)
	api.Get("/orders", signedIn, d.OrderHandler.History)
	api.Get("/orders/:id", signedIn, d.OrderHandler.Detail)

	api.Get("/wishlist", signedIn, d.WishlistHandler.List)
	api.Post("/wishlist", signedIn, d.WishlistHandler.Save)
	api.Delete("/wishlist/:productId", signedIn, d.WishlistHandler.Unsave)

	pay := api.Group("/payments/:orderId", signedIn)
	pay.Get("/", d.PaymentHandler.Status)
	pay.Get("/quote", d.PaymentHandler.Quote)
	pay.Post("/method", d.PaymentHandler.SelectMethod)
	pay.Post("/otp", d.PaymentHandler.RequestOTP)
	pay.Post("/confirm", d.PaymentHandler.Confirm)
	pay.Post("/cancel", d.PaymentHandler.Cancel)

	seller := api.Group("/seller", handlers.RequireRole(domain.RoleSeller))
	seller.Get("/dashboard", d.SellerHandler.Dashboard)
	seller.Post("/products", d.SellerHandler.CreateProduct)
	seller.Post("/products/:id/toggle", d.SellerHandler.ToggleProduct)
	seller.Post("/products/:id/stock", d.InventoryHandler.Restock)
	seller.Delete("/products/:id", d.SellerHandler.DeleteProduct)
	seller.Put("/profile", d.SellerHandler.UpdateProfile)

	admin := api.Group("/admin", handlers.RequireRole(domain.RoleAdmin))
	admin.Get("/dashboard", d.AdminHandler.Dashboard)
	admin.Get("/users", d.AdminHandler.Users)
	admin.Get("/products", d.AdminHandler.Products)
	admin.Get("/orders", d.AdminHandler.Orders)
	admin.Get("/commissions", d.AdminHandler.Commissions)
	admin.Post("/users/:id/toggle", d.AdminHandler.ToggleUser)
	admin.Delete("/users/:id", d.AdminHandler.DeleteUser)
	admin.Post("/products/:id/toggle", d.AdminHandler.ToggleProduct)
	admin.Delete("/products/:id", d.AdminHandler.DeleteProduct)
	admin.Post("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.Delete("/orders/:id", d.AdminHandler.DeleteOrder)

	fittingLimiter := limiter.New(limiter.Config{
		Max:        lim.FittingCalls,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|fitting"
		},
		LimitReached: limitReached("rate.fitting.hit"),
	})
	api.Post("/fitting/analyze", fittingLimiter, d.FittingHandler.Analyze)
	api.Post("/fitting/:productId", fittingLimiter, d.FittingHandler.TryOn)

	// ---------- Pages ----------
	app.Get("/orders/:id/receipt", d.OrderHandler.Receipt)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found", "code": "not_found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app
}
