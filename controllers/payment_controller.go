package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"paypal-checkout-service/models"
	"paypal-checkout-service/paypal"
	"paypal-checkout-service/repository"
	"paypal-checkout-service/services"
)

// PaymentController serves the operator surface: capture, void and refund of
// existing payments, plus health probes.
type PaymentController struct {
	Service  services.CheckoutService
	Client   paypal.CheckoutAPI
	Payments repository.PaymentRepository
	Logger   *zap.Logger
}

func NewPaymentController(
	service services.CheckoutService,
	client paypal.CheckoutAPI,
	payments repository.PaymentRepository,
	logger *zap.Logger,
) *PaymentController {
	return &PaymentController{
		Service:  service,
		Client:   client,
		Payments: payments,
		Logger:   logger,
	}
}

// amountRequest is the optional partial-amount body for capture and refund.
// An empty body means the full (or remaining) payment amount.
type amountRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (pc *PaymentController) loadPayment(c *gin.Context) (*models.Payment, bool) {
	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return nil, false
	}
	payment, err := pc.Payments.GetPaymentByID(c.Request.Context(), paymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return nil, false
	}
	return payment, true
}

func (pc *PaymentController) bindAmount(c *gin.Context) (*models.Price, bool) {
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return nil, false
	}
	if req.Amount == "" {
		return nil, true
	}
	price, err := models.NewPrice(req.Amount, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return nil, false
	}
	return &price, true
}

func (pc *PaymentController) respond(c *gin.Context, payment *models.Payment) {
	c.JSON(http.StatusOK, gin.H{
		"id":             payment.ID,
		"state":          payment.State,
		"amount":         payment.AmountPrice().Format(),
		"refundedAmount": payment.RefundedPrice().Format(),
		"currency":       payment.CurrencyCode,
	})
}

// Capture captures an authorized payment, fully or partially.
func (pc *PaymentController) Capture(c *gin.Context) {
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	amount, ok := pc.bindAmount(c)
	if !ok {
		return
	}
	if err := pc.Service.CapturePayment(c.Request.Context(), payment, amount); err != nil {
		status, message := paymentErrorResponse(err)
		pc.Logger.Error("capture failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	pc.respond(c, payment)
}

// Void cancels an authorized payment.
func (pc *PaymentController) Void(c *gin.Context) {
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	if err := pc.Service.VoidPayment(c.Request.Context(), payment); err != nil {
		status, message := paymentErrorResponse(err)
		pc.Logger.Error("void failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	pc.respond(c, payment)
}

// Refund refunds a captured payment, defaulting to the remaining amount.
func (pc *PaymentController) Refund(c *gin.Context) {
	payment, ok := pc.loadPayment(c)
	if !ok {
		return
	}
	amount, ok := pc.bindAmount(c)
	if !ok {
		return
	}
	if err := pc.Service.RefundPayment(c.Request.Context(), payment, amount); err != nil {
		status, message := paymentErrorResponse(err)
		pc.Logger.Error("refund failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	pc.respond(c, payment)
}

// Health is the liveness probe.
func (pc *PaymentController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PayPalHealth verifies the configured PayPal credentials by dropping any
// cached token and fetching a fresh one.
func (pc *PaymentController) PayPalHealth(c *gin.Context) {
	if err := pc.Client.CheckAccess(c.Request.Context()); err != nil {
		pc.Logger.Error("paypal connectivity check failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
