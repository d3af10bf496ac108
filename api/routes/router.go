package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-session/api/controllers"
	"github.com/angelmondragon/storefront-session/api/middleware"
	"github.com/angelmondragon/storefront-session/internal/cart"
	"github.com/angelmondragon/storefront-session/internal/checkout"
	"github.com/angelmondragon/storefront-session/internal/customers"
	"github.com/angelmondragon/storefront-session/internal/recent"
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/internal/wishlist"
	"github.com/angelmondragon/storefront-session/pkg/config"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/redis"
)

// Params carries everything the router mounts. Redis is optional; without it
// idempotency replay and rate limiting are off.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	Sessions  *session.Manager
	Redis     *redis.Client
	Readiness map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer

	Cart      cart.Service
	Checkout  checkout.Service
	Customers customers.Service
	Wishlist  wishlist.Service
	Recent    recent.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	guestPolicy := middleware.NewRateLimitPolicy(
		"guest",
		cfg.RateLimit.GuestWindow,
		cfg.RateLimit.GuestIPLimit,
		cfg.RateLimit.GuestContactLimit,
	)
	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginContactLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, p.Sessions, logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}
		rateLimit := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
			if p.Redis == nil {
				return func(next http.Handler) http.Handler { return next }
			}
			return middleware.RateLimit(policy, p.Redis, logg)
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Post("/items/batch-remove", controllers.CartBatchRemove(p.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartSetQuantity(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(p.Cart, logg))
			r.Post("/selection/toggle-all", controllers.CartToggleAll(p.Cart, logg))
			r.Post("/selection/{productId}/toggle", controllers.CartToggleOne(p.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/prepare", controllers.CheckoutPrepare(p.Checkout, logg))
			r.Post("/handoff/consume", controllers.CheckoutConsume(p.Checkout, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.With(rateLimit(guestPolicy)).Post("/guest", controllers.CustomerContinueAsGuest(p.Customers, logg))
			r.With(rateLimit(loginPolicy)).Post("/login", controllers.CustomerLogin(p.Customers, logg))
			r.Post("/logout", controllers.CustomerLogout(p.Customers, logg))
			r.Get("/me", controllers.CustomerMe(p.Customers, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(p.Wishlist, logg))
			r.Post("/", controllers.WishlistAdd(p.Wishlist, logg))
			r.Delete("/{productId}", controllers.WishlistRemove(p.Wishlist, logg))
		})

		r.Route("/recently-viewed", func(r chi.Router) {
			r.Get("/", controllers.RecentlyViewedList(p.Recent, logg))
			r.Post("/", controllers.RecentlyViewedRecord(p.Recent, logg))
		})
	})

	return r
}
