package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"paypal-checkout-service/models"
	"paypal-checkout-service/paypal"
	"paypal-checkout-service/repository"
	"paypal-checkout-service/services"
)

// CheckoutController serves the browser widget: order creation, approval
// callbacks, widget bootstrap and checkout completion.
type CheckoutController struct {
	Service  services.CheckoutService
	Client   paypal.CheckoutAPI
	Orders   repository.OrderRepository
	Payments repository.PaymentRepository
	Config   paypal.Config
	Solution paypal.SolutionVariant
	Logger   *zap.Logger
}

func NewCheckoutController(
	service services.CheckoutService,
	client paypal.CheckoutAPI,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	cfg paypal.Config,
	solution paypal.SolutionVariant,
	logger *zap.Logger,
) *CheckoutController {
	return &CheckoutController{
		Service:  service,
		Client:   client,
		Orders:   orders,
		Payments: payments,
		Config:   cfg,
		Solution: solution,
		Logger:   logger,
	}
}

func (cc *CheckoutController) loadOrder(c *gin.Context) (*models.Order, bool) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return nil, false
	}
	order, err := cc.Orders.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return nil, false
	}
	return order, true
}

// CreateOrder pushes the order to PayPal and returns the remote order id for
// the widget's createOrder callback.
func (cc *CheckoutController) CreateOrder(c *gin.Context) {
	order, ok := cc.loadOrder(c)
	if !ok {
		return
	}
	remoteID, err := cc.Service.CreateRemoteOrder(c.Request.Context(), order)
	if err != nil {
		cc.Logger.Error("create remote order failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not create the PayPal order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": remoteID})
}

type approveRequest struct {
	ID string `json:"id" binding:"required"`
}

// Approve handles the widget's onApprove callback. The remote order is
// fetched server side; the browser only names its id.
func (cc *CheckoutController) Approve(c *gin.Context) {
	order, ok := cc.loadOrder(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	remote, err := cc.Client.GetOrder(c.Request.Context(), req.ID)
	if err != nil {
		cc.Logger.Error("fetch remote order failed", zap.String("remote_id", req.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not retrieve the PayPal order"})
		return
	}

	redirectURI, err := cc.Service.OnApprove(c.Request.Context(), order, remote)
	if err != nil {
		var consistencyErr *services.ConsistencyError
		if errors.As(err, &consistencyErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": consistencyErr.Message})
			return
		}
		cc.Logger.Error("approval failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approval failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirectUri": redirectURI})
}

// WidgetConfig returns the widget bootstrap: the JS SDK script URL, the
// endpoints the widget should call, and a client token for hosted fields.
func (cc *CheckoutController) WidgetConfig(c *gin.Context) {
	order, ok := cc.loadOrder(c)
	if !ok {
		return
	}

	commit := order.HasPayPalPaymentMethod()
	out := gin.H{
		"flow":       cc.Config.Intent,
		"jsSdkUrl":   cc.Solution.JSSDKURL(cc.Config, order.CurrencyCode, commit),
		"createUrl":  "/checkout/" + order.ID.String() + "/create",
		"approveUrl": "/checkout/" + order.ID.String() + "/approve",
	}
	if cc.Solution.NeedsClientToken() {
		token, err := cc.Client.GetClientToken(c.Request.Context())
		if err != nil {
			cc.Logger.Error("client token fetch failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch a client token"})
			return
		}
		out["clientToken"] = token.ClientToken
	}
	c.JSON(http.StatusOK, out)
}

// CreatePaymentMethod creates the mark-flow payment method when the payment
// step is submitted, before any PayPal interaction.
func (cc *CheckoutController) CreatePaymentMethod(c *gin.Context) {
	order, ok := cc.loadOrder(c)
	if !ok {
		return
	}
	method, err := cc.Service.CreateMarkPaymentMethod(c.Request.Context(), order)
	if err != nil {
		cc.Logger.Error("payment method creation failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create the payment method"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": method.ID})
}

// Complete places the order: the approved remote order is updated to the
// latest totals and then captured or authorized per the configured intent.
func (cc *CheckoutController) Complete(c *gin.Context) {
	order, ok := cc.loadOrder(c)
	if !ok {
		return
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		PaymentMethodID: order.PaymentMethodID,
		PaymentMethod:   order.PaymentMethod,
		CurrencyCode:    order.CurrencyCode,
		State:           models.PaymentStateNew,
	}
	if err := cc.Service.CreatePayment(c.Request.Context(), order, payment); err != nil {
		status, message := paymentErrorResponse(err)
		cc.Logger.Error("checkout completion failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       payment.ID,
		"state":    payment.State,
		"amount":   payment.AmountPrice().Format(),
		"currency": payment.CurrencyCode,
	})
}

// paymentErrorResponse maps the reconciler error taxonomy to HTTP.
func paymentErrorResponse(err error) (int, string) {
	var (
		hardDecline *services.HardDeclineError
		unmapped    *services.UnmappedStateError
		transition  *services.InvalidTransitionError
		consistency *services.ConsistencyError
		gateway     *services.GatewayError
	)
	switch {
	case errors.Is(err, services.ErrRefundExceedsAmount):
		return http.StatusBadRequest, "refund amount exceeds the refundable amount"
	case errors.As(err, &hardDecline):
		return http.StatusPaymentRequired, "the payment was declined"
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error()
	case errors.As(err, &consistency):
		return http.StatusBadRequest, consistency.Message
	case errors.As(err, &unmapped):
		return http.StatusInternalServerError, "unexpected payment state returned by PayPal"
	case errors.As(err, &gateway):
		return http.StatusBadGateway, gateway.Message
	default:
		return http.StatusInternalServerError, "payment operation failed"
	}
}
