package routes

import (
	"github.com/gin-gonic/gin"

	"paypal-checkout-service/controllers"
	"paypal-checkout-service/middleware"
)

// RegisterRoutes wires the widget-facing checkout surface and the
// operator-facing payment surface.
func RegisterRoutes(
	r *gin.Engine,
	checkout *controllers.CheckoutController,
	payments *controllers.PaymentController,
) {
	// Widget routes are anonymous: the browser widget calls them before any
	// customer session exists on this service.
	checkoutGroup := r.Group("/checkout")
	{
		checkoutGroup.POST("/:order_id/create", checkout.CreateOrder)
		checkoutGroup.POST("/:order_id/approve", checkout.Approve)
		checkoutGroup.GET("/:order_id/config", checkout.WidgetConfig)
		checkoutGroup.POST("/:order_id/payment-method", checkout.CreatePaymentMethod)
		checkoutGroup.POST("/:order_id/complete", checkout.Complete)
	}

	paymentGroup := r.Group("/payments")
	paymentGroup.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		paymentGroup.POST("/:payment_id/capture", payments.Capture)
		paymentGroup.POST("/:payment_id/void", payments.Void)
		paymentGroup.POST("/:payment_id/refund", payments.Refund)
	}

	r.GET("/healthz", payments.Health)
	r.GET("/healthz/paypal", payments.PayPalHealth)
}
