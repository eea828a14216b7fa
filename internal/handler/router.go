package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/grocerymart/internal/middleware"
	"github.com/mmeshcher/grocerymart/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	backOffice := custommiddleware.RequireRoles(model.RoleAdmin, model.RoleStaff)

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/webhook", h.Webhook)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/featured", h.ListFeaturedProducts)
			r.Get("/{id}", h.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.With(backOffice).Get("/near-expiry", h.ListNearExpiryProducts)
				r.With(backOffice).Post("/", h.CreateProduct)
				r.With(backOffice).Put("/{id}", h.UpdateProduct)
				r.With(custommiddleware.RequireRoles(model.RoleAdmin)).Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/add", h.AddToCart)
				r.Put("/update", h.UpdateCartItem)
				r.Delete("/items/{productId}", h.RemoveFromCart)
				r.Delete("/", h.ClearCart)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.CreateOrder)
				r.Get("/", h.ListOrders)
				r.Get("/{id}", h.GetOrder)
				r.Post("/{id}/upi/confirm", h.ConfirmUPI)

				r.With(backOffice).Put("/{id}/status", h.UpdateOrderStatus)
				r.With(backOffice).Put("/{id}/payment-status", h.SetPaymentStatus)
			})

			r.Post("/payments/gateway/verify", h.VerifyGatewayPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
