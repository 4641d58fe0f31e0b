package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/views"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

const (
	pathLogin = "/login"
	pathHome  = "/products"
)

// SessionManager is everything the router needs from the session store.
type SessionManager interface {
	controllers.SessionStore
	Load(ctx context.Context, sid string) (string, error)
}

// LiveProducts is the product feed as the HTTP layer sees it.
type LiveProducts interface {
	controllers.ProductsNotifier
	controllers.ProductSnapshot
}

// Deps carries the wired services. Nil optional members disable the routes
// or middleware that need them.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Pingers  map[string]controllers.Pinger
	Limiter  middleware.WindowCounter
	Sessions SessionManager
	Auth     auth.Service
	OAuth    auth.OAuthProvider
	Products product.Service
	Carts    cart.Service
	Feed     LiveProducts
	Hub      controllers.Subscriber
	Chat     controllers.ChatRoom
	Uploads  storage.Store
	Renderer *views.Renderer

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	loginPolicy := middleware.RateLimitPolicy{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:     "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
		PerEmail: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Pingers, logg))
	})

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	if cfg.Uploads.Backend == config.UploadBackendDisk && cfg.Uploads.Dir != "" {
		prefix := cfg.Uploads.PublicPath + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Uploads.Dir))))
	}

	uploads := controllers.UploadOptions{
		MaxBytes: cfg.Uploads.MaxUploadBytes(),
		MaxFiles: cfg.Uploads.MaxFiles,
	}
	sessionDeps := controllers.SessionDeps{
		Auth:     d.Auth,
		Sessions: d.Sessions,
		Cookies:  session.NewCookies(cfg.Session),
		Logger:   logg,
	}

	var feed controllers.ProductsNotifier
	if d.Feed != nil {
		feed = d.Feed
	}
	var patcher controllers.EventPatcher
	if d.Renderer != nil {
		patcher = d.Renderer
	}

	r.Group(func(r chi.Router) {
		if d.Sessions != nil && d.Auth != nil {
			r.Use(middleware.Session(d.Sessions, d.Auth, sessionDeps.Cookies, logg))
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.CORS(cfg.App))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductsList(d.Products, logg))
				r.Post("/", controllers.ProductsCreate(d.Products, d.Uploads, feed, uploads, logg))
				r.Get("/{productId}", controllers.ProductsGet(d.Products, logg))
				r.Put("/{productId}", controllers.ProductsUpdate(d.Products, feed, logg))
				r.Delete("/{productId}", controllers.ProductsDelete(d.Products, feed, logg))
			})

			r.Route("/carts", func(r chi.Router) {
				r.Post("/", controllers.CartsCreate(d.Carts, logg))
				r.Get("/{cartId}", controllers.CartsGet(d.Carts, logg))
				r.Put("/{cartId}", controllers.CartsAddMany(d.Carts, logg))
				r.Delete("/{cartId}", controllers.CartsEmpty(d.Carts, logg))
				r.Post("/{cartId}/products/{productId}", controllers.CartsAddProduct(d.Carts, logg))
				r.Put("/{cartId}/products/{productId}", controllers.CartsSetQuantity(d.Carts, logg))
				r.Delete("/{cartId}/products/{productId}", controllers.CartsRemoveProduct(d.Carts, logg))
			})

			r.Route("/sessions", func(r chi.Router) {
				r.With(middleware.RateLimit(registerPolicy, d.Limiter, logg)).Post("/register", controllers.SessionsRegister(sessionDeps))
				r.With(middleware.RateLimit(loginPolicy, d.Limiter, logg)).Post("/login", controllers.SessionsLogin(sessionDeps))
				r.Post("/resetpassword", controllers.SessionsResetPassword(sessionDeps))
				r.Post("/logout", controllers.SessionsLogout(sessionDeps))
				r.Get("/authFailureRegister", controllers.SessionsAuthFailure(sessionDeps))
				r.Get("/authFailureLogin", controllers.SessionsAuthFailure(sessionDeps))
				r.Get("/authFailureReset", controllers.SessionsAuthFailure(sessionDeps))
				r.Get("/current", controllers.SessionsCurrent(logg))
				r.Get("/github", controllers.SessionsGitHub(d.OAuth, cfg.JWT, logg))
				r.Get("/githubcallback", controllers.SessionsGitHubCallback(sessionDeps, d.OAuth, cfg.JWT))
				r.Get("/githubFailure", controllers.SessionsGitHubFailure(logg))
			})
		})

		r.Route("/realtime", func(r chi.Router) {
			r.Get("/stream", controllers.RealtimeStream(d.Hub, patcher, logg))
			r.Post("/chat/authenticated", controllers.RealtimeChatAuthenticated(d.Chat, logg))
			r.Post("/chat/messages", controllers.RealtimeChatMessages(d.Chat, logg))
		})

		if d.Renderer == nil {
			return
		}
		rnd := d.Renderer

		r.Group(func(r chi.Router) {
			r.Use(middleware.PublicOnly(pathHome))
			r.Get("/register", controllers.ViewStatic(rnd, views.PageRegister, "Welcome, new customer", logg))
			r.Get("/login", controllers.ViewStatic(rnd, views.PageLogin, "Hello, customer", logg))
			r.Get("/resetpassword", controllers.ViewStatic(rnd, views.PageResetPassword, "Reset password", logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal(pathLogin))
			r.Get("/", controllers.ViewStatic(rnd, views.PageProfile, "My profile", logg))
			r.Get("/products", controllers.ViewProducts(rnd, d.Products, logg))
			r.Get("/carts/{cartId}", controllers.ViewCart(rnd, d.Carts, logg))
			if d.Feed != nil {
				r.Get("/staticProducts", controllers.ViewStaticProducts(rnd, d.Feed, logg))
				r.Get("/realtimeproducts", controllers.ViewRealtimeProducts(rnd, d.Feed, logg))
			}
		})

		r.Get("/webchat", controllers.ViewStatic(rnd, views.PageWebchat, "Our chat box", logg))
	})

	return r
}
