package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"bazaar/internal/config"
	"bazaar/internal/domain"
	"bazaar/internal/security"
	"bazaar/internal/service"
	"bazaar/internal/ws"
)

// Server bundles the services behind the HTTP API.
type Server struct {
	auth     *service.AuthService
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	messages *service.MessageService
	orders   domain.OrderRepository
	users    domain.UserRepository
	tokens   *security.TokenService
	registry *ws.Registry
	cfg      *config.Config
	log      *zap.Logger
}

type Deps struct {
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Messages *service.MessageService
	Orders   domain.OrderRepository
	Users    domain.UserRepository
	Tokens   *security.TokenService
	Registry *ws.Registry
	Config   *config.Config
	Log      *zap.Logger
}

func New(d Deps) *Server {
	return &Server{
		auth:     d.Auth,
		catalog:  d.Catalog,
		cart:     d.Cart,
		checkout: d.Checkout,
		messages: d.Messages,
		orders:   d.Orders,
		users:    d.Users,
		tokens:   d.Tokens,
		registry: d.Registry,
		cfg:      d.Config,
		log:      d.Log,
	}
}

// Router assembles the full route tree, REST and WebSocket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := AuthMiddleware(s.tokens, s.users)

	r.Route("/api", func(r chi.Router) {
		// Request/response endpoints get a deadline. The WebSocket routes
		// stay outside this group: their sessions are long-lived and must
		// not inherit a request timeout.
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/auth/register", s.handleRegister())
		r.Post("/auth/login", s.handleLogin())

		r.Get("/products", s.handleListProducts())
		r.Get("/products/{id}", s.handleGetProduct())
		r.Get("/categories", s.handleListCategories())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", s.handleMe())

			r.Post("/products", s.handleCreateProduct())
			r.Put("/products/{id}", s.handleUpdateProduct())
			r.Patch("/products/{id}", s.handleUpdateProduct())
			r.Delete("/products/{id}", s.handleArchiveProduct())
			r.Post("/products/{id}/archive", s.handleArchiveProduct())
			r.Post("/products/{id}/restore", s.handleRestoreProduct())
			r.Get("/products/archived", s.handleListArchivedProducts())

			r.Post("/categories", s.handleCreateCategory())

			r.Get("/cart", s.handleListCart())
			r.Post("/cart", s.handleAddCartItem())
			r.Patch("/cart/{id}", s.handleUpdateCartItem())
			r.Delete("/cart/{id}", s.handleDeleteCartItem())
			r.Post("/cart/checkout", s.handleCheckout())

			r.Get("/orders", s.handleListOrders())
			r.Get("/orders/{id}", s.handleGetOrder())

			r.Get("/messages", s.handleMessageHistory())
			r.Post("/messages", s.handleSendMessage())
			r.Get("/messages/unread/count", s.handleUnreadCount())
		})
	})

	chat := ws.ChatHandler(s.registry, s.tokens, s.users, s.messages, s.cfg.CORSOrigins, s.log)
	r.Get("/ws/chat/{partnerID}", chat)
	r.Get("/ws/chat/{partnerID}/{productID}", chat)
	r.Get("/ws/notifications", ws.NotificationsHandler(s.registry, s.tokens, s.users, s.messages, s.cfg.CORSOrigins, s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
