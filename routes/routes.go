package routes

import (
	"quickbite-api/handlers"
	"quickbite-api/middleware"
	"quickbite-api/models"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router needs
type Handlers struct {
	Auth     *middleware.Auth
	Account  *handlers.AuthHandler
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
}

func SetupRoutes(r *gin.Engine, h Handlers) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Account.Register)
		public.POST("/auth/login", h.Account.Login)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", handlers.GetStateMachineInfo)

		// Gateway-facing endpoints; the gateway cannot carry a JWT
		public.POST("/payments/webhook", h.Payments.Webhook)
		public.GET("/payments/callback", h.Payments.Callback)
		public.GET("/payments/status/:orderId", h.Payments.Status)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(h.Auth.Required())
	{
		auth.GET("/profile", h.Account.Profile)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(h.Auth.Required(), h.Auth.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.Orders.PlaceOrder)
		customer.GET("/orders", h.Orders.ListOrders)
		customer.GET("/orders/:id", h.Orders.GetOrder)
		customer.PUT("/orders/:id/cancel", h.Orders.CancelOrder)
		customer.POST("/orders/:id/payment-link", h.Orders.CreatePaymentLink)
	}
}
