package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/internal/customers"
	httpmiddleware "github.com/vendazap/platform/internal/http/middleware"
	"github.com/vendazap/platform/internal/orders"
	"github.com/vendazap/platform/internal/payments"
	"github.com/vendazap/platform/internal/products"
	"github.com/vendazap/platform/internal/whatsapp"
	"github.com/vendazap/platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	AuthHandler      *auth.Handler
	ProductsHandler  *products.Handler
	CustomersHandler *customers.Handler
	OrdersHandler    *orders.Handler
	WhatsAppHandler  *whatsapp.Handler
	PaymentsHandler  *payments.Handler
	MetricsHandler   http.Handler

	// Authenticate guards the private API surface.
	Authenticate func(http.Handler) http.Handler

	CORSAllowedOrigins []string

	// LoginRatePerSecond throttles credential endpoints per IP. Zero
	// disables throttling.
	LoginRatePerSecond float64
	LoginBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: webhooks, health, metrics, auth.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WhatsAppHandler != nil {
			public.Get("/whatsapp/webhook", cfg.WhatsAppHandler.Verify)
			public.Post("/whatsapp/webhook", cfg.WhatsAppHandler.Webhook)
		}
		if cfg.PaymentsHandler != nil {
			public.Post("/payments/webhook", cfg.PaymentsHandler.Webhook)
			public.Get("/payments/success", cfg.PaymentsHandler.Success)
			public.Get("/payments/failure", cfg.PaymentsHandler.Failure)
		}
		if cfg.AuthHandler != nil {
			credential := public
			if cfg.LoginRatePerSecond > 0 {
				credential = public.With(httpmiddleware.CredentialThrottle(cfg.LoginRatePerSecond, cfg.LoginBurst))
			}
			credential.Post("/auth/signup", cfg.AuthHandler.Signup)
			credential.Post("/auth/login", cfg.AuthHandler.Login)
		}
	})

	// Private endpoints: everything behind bearer auth.
	r.Group(func(private chi.Router) {
		if cfg.Authenticate != nil {
			private.Use(cfg.Authenticate)
		}
		if cfg.AuthHandler != nil {
			private.Get("/auth/me", cfg.AuthHandler.Me)
		}
		if cfg.ProductsHandler != nil {
			private.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.ProductsHandler.List)
				r.Post("/", cfg.ProductsHandler.Create)
				r.Route("/{productID}", func(r chi.Router) {
					r.Get("/", cfg.ProductsHandler.Get)
					r.Put("/", cfg.ProductsHandler.Update)
					r.Delete("/", cfg.ProductsHandler.Delete)
				})
			})
		}
		if cfg.CustomersHandler != nil {
			private.Route("/customers", func(r chi.Router) {
				r.Get("/", cfg.CustomersHandler.List)
				r.Post("/", cfg.CustomersHandler.Create)
				r.Get("/active", cfg.CustomersHandler.ListActive)
				r.Route("/{customerID}", func(r chi.Router) {
					r.Get("/", cfg.CustomersHandler.Get)
					r.Put("/", cfg.CustomersHandler.Update)
					r.Post("/send-message", cfg.CustomersHandler.SendMessage)
				})
			})
		}
		if cfg.OrdersHandler != nil {
			private.Route("/orders", func(r chi.Router) {
				r.Get("/", cfg.OrdersHandler.List)
				r.Post("/", cfg.OrdersHandler.Create)
				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/", cfg.OrdersHandler.Get)
					r.Put("/status", cfg.OrdersHandler.UpdateStatus)
				})
			})
		}
		if cfg.WhatsAppHandler != nil {
			private.Post("/whatsapp/send-template", cfg.WhatsAppHandler.SendTemplate)
			private.Get("/whatsapp/templates", cfg.WhatsAppHandler.Templates)
		}
		if cfg.PaymentsHandler != nil {
			private.Post("/payments/create", cfg.PaymentsHandler.Create)
			private.Get("/payments/status/{paymentID}", cfg.PaymentsHandler.Status)
			private.Post("/payments/refund/{paymentID}", cfg.PaymentsHandler.Refund)
			private.Get("/payments/methods", cfg.PaymentsHandler.Methods)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
