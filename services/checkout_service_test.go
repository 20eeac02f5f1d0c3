package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"paypal-checkout-service/models"
	"paypal-checkout-service/paypal"
)

// --- Mock PayPal client ---

type MockCheckoutAPI struct {
	mock.Mock
}

func (m *MockCheckoutAPI) CreateOrder(ctx context.Context, req *paypal.OrderRequest) (*paypal.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockCheckoutAPI) GetOrder(ctx context.Context, remoteID string) (*paypal.Order, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockCheckoutAPI) UpdateOrder(ctx context.Context, remoteID string, req *paypal.OrderRequest) error {
	args := m.Called(ctx, remoteID, req)
	return args.Error(0)
}

func (m *MockCheckoutAPI) AuthorizeOrder(ctx context.Context, remoteID string) (*paypal.Order, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockCheckoutAPI) CaptureOrder(ctx context.Context, remoteID string) (*paypal.Order, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockCheckoutAPI) CapturePayment(ctx context.Context, authorizationID string, req *paypal.CaptureRequest) (*paypal.Capture, error) {
	args := m.Called(ctx, authorizationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Capture), args.Error(1)
}

func (m *MockCheckoutAPI) ReauthorizePayment(ctx context.Context, authorizationID string, req *paypal.ReauthorizeRequest) (*paypal.Authorization, error) {
	args := m.Called(ctx, authorizationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Authorization), args.Error(1)
}

func (m *MockCheckoutAPI) RefundPayment(ctx context.Context, captureID string, req *paypal.RefundRequest) (*paypal.Refund, error) {
	args := m.Called(ctx, captureID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Refund), args.Error(1)
}

func (m *MockCheckoutAPI) VoidPayment(ctx context.Context, authorizationID string) error {
	args := m.Called(ctx, authorizationID)
	return args.Error(0)
}

func (m *MockCheckoutAPI) GetClientToken(ctx context.Context) (*paypal.ClientTokenResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.ClientTokenResponse), args.Error(1)
}

func (m *MockCheckoutAPI) CheckAccess(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock repositories ---

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SavePayment(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) CreatePaymentMethod(ctx context.Context, method *models.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

func (m *MockPaymentRepository) SavePaymentMethod(ctx context.Context, method *models.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) SendPaymentEvent(event models.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// --- Fixtures ---

type serviceFixture struct {
	client   *MockCheckoutAPI
	payments *MockPaymentRepository
	orders   *MockOrderRepository
	events   *MockPublisher
	service  *checkoutService
}

func newFixture(t *testing.T, cfg paypal.Config) *serviceFixture {
	t.Helper()
	client := new(MockCheckoutAPI)
	payments := new(MockPaymentRepository)
	orders := new(MockOrderRepository)
	events := new(MockPublisher)

	builder := paypal.NewRequestBuilder(cfg, true, nil)
	svc := NewCheckoutService(client, builder, cfg, true, payments, orders, events, zap.NewNop()).(*checkoutService)
	return &serviceFixture{
		client:   client,
		payments: payments,
		orders:   orders,
		events:   events,
		service:  svc,
	}
}

func captureConfig() paypal.Config {
	return paypal.Config{
		ClientID:              "client-id",
		Secret:                "secret",
		Mode:                  "test",
		Intent:                "capture",
		ShippingPreference:    "get_from_file",
		UpdateBillingProfile:  true,
		UpdateShippingProfile: true,
	}
}

func authorizeConfig() paypal.Config {
	cfg := captureConfig()
	cfg.Intent = "authorize"
	return cfg
}

func fixtureOrder() *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		CurrencyCode: "USD",
		TotalPrice:   decimal.RequireFromString("19.99"),
		Items: []models.OrderItem{
			{
				Title:              "Widget",
				Quantity:           1,
				CurrencyCode:       "USD",
				UnitPrice:          decimal.RequireFromString("19.99"),
				AdjustedUnitPrice:  decimal.RequireFromString("19.99"),
				TotalPrice:         decimal.RequireFromString("19.99"),
				AdjustedTotalPrice: decimal.RequireFromString("19.99"),
			},
		},
	}
}

func orderWithMethod(remoteID string) *models.Order {
	order := fixtureOrder()
	methodID := uuid.New()
	order.PaymentMethodID = &methodID
	order.PaymentMethod = &models.PaymentMethod{
		ID:       methodID,
		Type:     models.PaymentMethodTypePayPalCheckout,
		Flow:     models.PaymentMethodFlowMark,
		RemoteID: remoteID,
	}
	return order
}

func remoteOrder(status, intent, value string) *paypal.Order {
	return &paypal.Order{
		ID:     "REMOTE-1",
		Status: status,
		Intent: intent,
		PurchaseUnits: []paypal.PurchaseUnit{
			{
				ReferenceID: "default",
				Amount:      paypal.Amount{CurrencyCode: "USD", Value: value},
			},
		},
	}
}

// --- CreatePayment ---

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("capture intent completes the payment", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		captured := remoteOrder(paypal.OrderStatusCompleted, paypal.IntentCapture, "19.99")
		captured.PurchaseUnits[0].Payments = &paypal.PurchaseUnitPayments{
			Captures: []paypal.Capture{{
				ID:     "CAP-1",
				Status: "COMPLETED",
				Amount: paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
			}},
		}

		f.client.On("UpdateOrder", ctx, "REMOTE-1", mock.Anything).Return(nil).Once()
		f.client.On("GetOrder", ctx, "REMOTE-1").
			Return(remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99"), nil).Once()
		f.client.On("CaptureOrder", ctx, "REMOTE-1").Return(captured, nil).Once()
		f.payments.On("CreatePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.MatchedBy(func(e models.PaymentEvent) bool {
			return e.Type == models.PaymentEventCompleted && e.Amount == "19.99"
		})).Return(nil).Once()

		err := f.service.CreatePayment(ctx, order, payment)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateCompleted, payment.State)
		assert.Equal(t, "CAP-1", payment.RemoteID)
		assert.Equal(t, "completed", payment.RemoteState)
		assert.Equal(t, "19.99", payment.AmountPrice().Format())
		f.client.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("authorize intent records authorization and expiry", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		order := orderWithMethod("REMOTE-1")
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		authorized := remoteOrder(paypal.OrderStatusCompleted, paypal.IntentAuthorize, "19.99")
		authorized.PurchaseUnits[0].Payments = &paypal.PurchaseUnitPayments{
			Authorizations: []paypal.Authorization{{
				ID:             "AUTH-1",
				Status:         "CREATED",
				Amount:         paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
				ExpirationTime: "2026-10-01T00:00:00Z",
			}},
		}

		f.client.On("UpdateOrder", ctx, "REMOTE-1", mock.Anything).Return(nil).Once()
		f.client.On("GetOrder", ctx, "REMOTE-1").
			Return(remoteOrder(paypal.OrderStatusApproved, paypal.IntentAuthorize, "19.99"), nil).Once()
		f.client.On("AuthorizeOrder", ctx, "REMOTE-1").Return(authorized, nil).Once()
		f.payments.On("CreatePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.MatchedBy(func(e models.PaymentEvent) bool {
			return e.Type == models.PaymentEventAuthorized
		})).Return(nil).Once()

		err := f.service.CreatePayment(ctx, order, payment)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateAuthorization, payment.State)
		assert.Equal(t, "AUTH-1", payment.RemoteID)
		assert.NotNil(t, payment.AuthorizedAt)
		if assert.NotNil(t, payment.ExpiresAt) {
			assert.Equal(t, 2026, payment.ExpiresAt.Year())
		}
		f.client.AssertExpectations(t)
	})

	t.Run("hard decline aborts before any write", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		declined := remoteOrder(paypal.OrderStatusCompleted, paypal.IntentCapture, "19.99")
		declined.PurchaseUnits[0].Payments = &paypal.PurchaseUnitPayments{
			Captures: []paypal.Capture{{
				ID:     "CAP-1",
				Status: "DENIED",
				Amount: paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
			}},
		}

		f.client.On("UpdateOrder", ctx, "REMOTE-1", mock.Anything).Return(nil).Once()
		f.client.On("GetOrder", ctx, "REMOTE-1").
			Return(remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99"), nil).Once()
		f.client.On("CaptureOrder", ctx, "REMOTE-1").Return(declined, nil).Once()

		err := f.service.CreatePayment(ctx, order, payment)
		var hardDecline *HardDeclineError
		assert.ErrorAs(t, err, &hardDecline)
		assert.Equal(t, models.PaymentStateNew, payment.State)
		f.payments.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
		f.payments.AssertNotCalled(t, "SavePayment", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "SendPaymentEvent", mock.Anything)
	})

	t.Run("unmapped remote status is an error", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		pending := remoteOrder(paypal.OrderStatusCompleted, paypal.IntentCapture, "19.99")
		pending.PurchaseUnits[0].Payments = &paypal.PurchaseUnitPayments{
			Captures: []paypal.Capture{{
				ID:     "CAP-1",
				Status: "PENDING",
				Amount: paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
			}},
		}

		f.client.On("UpdateOrder", ctx, "REMOTE-1", mock.Anything).Return(nil).Once()
		f.client.On("GetOrder", ctx, "REMOTE-1").
			Return(remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99"), nil).Once()
		f.client.On("CaptureOrder", ctx, "REMOTE-1").Return(pending, nil).Once()

		err := f.service.CreatePayment(ctx, order, payment)
		var unmapped *UnmappedStateError
		assert.ErrorAs(t, err, &unmapped)
		f.payments.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("wrong remote order status stops before capture", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		f.client.On("UpdateOrder", ctx, "REMOTE-1", mock.Anything).Return(nil).Once()
		f.client.On("GetOrder", ctx, "REMOTE-1").
			Return(remoteOrder(paypal.OrderStatusCreated, paypal.IntentCapture, "19.99"), nil).Once()

		err := f.service.CreatePayment(ctx, order, payment)
		var gateway *GatewayError
		assert.ErrorAs(t, err, &gateway)
		f.client.AssertNotCalled(t, "CaptureOrder", mock.Anything, mock.Anything)
	})

	t.Run("missing remote id fails without remote calls", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()
		payment := &models.Payment{OrderID: order.ID, CurrencyCode: "USD", State: models.PaymentStateNew}

		err := f.service.CreatePayment(ctx, order, payment)
		var gateway *GatewayError
		assert.ErrorAs(t, err, &gateway)
		f.client.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

// --- CapturePayment ---

func authorizedPayment(authorizedAt time.Time) *models.Payment {
	expires := authorizedAt.Add(29 * 24 * time.Hour)
	return &models.Payment{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		CurrencyCode: "USD",
		Amount:       decimal.RequireFromString("19.99"),
		State:        models.PaymentStateAuthorization,
		RemoteID:     "AUTH-1",
		RemoteState:  "created",
		AuthorizedAt: &authorizedAt,
		ExpiresAt:    &expires,
	}
}

func TestCapturePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an authorized payment", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		payment := authorizedPayment(time.Now())
		payment.State = models.PaymentStateCompleted

		err := f.service.CapturePayment(ctx, payment, nil)
		var transition *InvalidTransitionError
		assert.ErrorAs(t, err, &transition)
		f.client.AssertNotCalled(t, "CapturePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fresh authorization captures without reauthorizing", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		now := time.Now()
		f.service.now = func() time.Time { return now }
		payment := authorizedPayment(now.Add(-time.Hour))

		f.client.On("CapturePayment", ctx, "AUTH-1", mock.MatchedBy(func(req *paypal.CaptureRequest) bool {
			return req.FinalCapture && req.Amount.Value == "19.99"
		})).Return(&paypal.Capture{
			ID:     "CAP-1",
			Status: "COMPLETED",
			Amount: paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
		}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.Anything).Return(nil).Once()

		err := f.service.CapturePayment(ctx, payment, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateCompleted, payment.State)
		f.client.AssertNotCalled(t, "ReauthorizePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale authorization reauthorizes first", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		now := time.Now()
		f.service.now = func() time.Time { return now }
		payment := authorizedPayment(now.Add(-4 * 24 * time.Hour))

		f.client.On("ReauthorizePayment", ctx, "AUTH-1", mock.Anything).
			Return(&paypal.Authorization{ID: "AUTH-1", Status: "CREATED"}, nil).Once()
		f.client.On("CapturePayment", ctx, "AUTH-1", mock.Anything).Return(&paypal.Capture{
			ID:     "CAP-1",
			Status: "COMPLETED",
			Amount: paypal.Amount{CurrencyCode: "USD", Value: "19.99"},
		}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.Anything).Return(nil).Once()

		err := f.service.CapturePayment(ctx, payment, nil)
		assert.NoError(t, err)
		f.client.AssertExpectations(t)
	})

	t.Run("partial capture is not final", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		now := time.Now()
		f.service.now = func() time.Time { return now }
		payment := authorizedPayment(now.Add(-time.Hour))
		partial, _ := models.NewPrice("10.00", "USD")

		f.client.On("CapturePayment", ctx, "AUTH-1", mock.MatchedBy(func(req *paypal.CaptureRequest) bool {
			return !req.FinalCapture && req.Amount.Value == "10"
		})).Return(&paypal.Capture{
			ID:     "CAP-1",
			Status: "COMPLETED",
			Amount: paypal.Amount{CurrencyCode: "USD", Value: "10.00"},
		}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.Anything).Return(nil).Once()

		err := f.service.CapturePayment(ctx, payment, &partial)
		assert.NoError(t, err)
		assert.Equal(t, "10", payment.AmountPrice().Format())
	})

	t.Run("remote failure keeps the payment authorized", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		now := time.Now()
		f.service.now = func() time.Time { return now }
		payment := authorizedPayment(now.Add(-time.Hour))

		f.client.On("CapturePayment", ctx, "AUTH-1", mock.Anything).
			Return(nil, &paypal.APIError{StatusCode: 422, Body: "AUTHORIZATION_VOIDED"}).Once()

		err := f.service.CapturePayment(ctx, payment, nil)
		var gateway *GatewayError
		assert.ErrorAs(t, err, &gateway)
		assert.Equal(t, models.PaymentStateAuthorization, payment.State)
		f.payments.AssertNotCalled(t, "SavePayment", mock.Anything, mock.Anything)
	})
}

// --- VoidPayment ---

func TestVoidPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("voids an authorization", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		payment := authorizedPayment(time.Now())

		f.client.On("VoidPayment", ctx, "AUTH-1").Return(nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.MatchedBy(func(e models.PaymentEvent) bool {
			return e.Type == models.PaymentEventVoided
		})).Return(nil).Once()

		err := f.service.VoidPayment(ctx, payment)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateAuthVoided, payment.State)
	})

	t.Run("remote refusal keeps the authorization", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		payment := authorizedPayment(time.Now())

		f.client.On("VoidPayment", ctx, "AUTH-1").Return(errors.New("void payment: unexpected status 200")).Once()

		err := f.service.VoidPayment(ctx, payment)
		var gateway *GatewayError
		assert.ErrorAs(t, err, &gateway)
		assert.Equal(t, models.PaymentStateAuthorization, payment.State)
		f.payments.AssertNotCalled(t, "SavePayment", mock.Anything, mock.Anything)
	})

	t.Run("requires an authorized payment", func(t *testing.T) {
		f := newFixture(t, authorizeConfig())
		payment := authorizedPayment(time.Now())
		payment.State = models.PaymentStateCompleted

		err := f.service.VoidPayment(ctx, payment)
		var transition *InvalidTransitionError
		assert.ErrorAs(t, err, &transition)
		f.client.AssertNotCalled(t, "VoidPayment", mock.Anything, mock.Anything)
	})
}

// --- RefundPayment ---

func completedPayment() *models.Payment {
	return &models.Payment{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		CurrencyCode: "USD",
		Amount:       decimal.RequireFromString("19.99"),
		State:        models.PaymentStateCompleted,
		RemoteID:     "CAP-1",
		RemoteState:  "completed",
	}
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("default refunds the remaining amount", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		payment := completedPayment()

		f.client.On("RefundPayment", ctx, "CAP-1", mock.MatchedBy(func(req *paypal.RefundRequest) bool {
			return req.Amount.Value == "19.99"
		})).Return(&paypal.Refund{ID: "REF-1", Status: "COMPLETED"}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.MatchedBy(func(e models.PaymentEvent) bool {
			return e.Type == models.PaymentEventRefunded
		})).Return(nil).Once()

		err := f.service.RefundPayment(ctx, payment, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateRefunded, payment.State)
		assert.Equal(t, "19.99", payment.RefundedPrice().Format())
	})

	t.Run("partial refund accumulates", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		payment := completedPayment()
		first, _ := models.NewPrice("5.00", "USD")

		f.client.On("RefundPayment", ctx, "CAP-1", mock.Anything).
			Return(&paypal.Refund{ID: "REF-1", Status: "COMPLETED"}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.Anything).Return(nil).Once()

		err := f.service.RefundPayment(ctx, payment, &first)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatePartiallyRefunded, payment.State)
		assert.Equal(t, "5", payment.RefundedPrice().Format())

		// Second refund covers the remainder.
		f.client.On("RefundPayment", ctx, "CAP-1", mock.MatchedBy(func(req *paypal.RefundRequest) bool {
			return req.Amount.Value == "14.99"
		})).Return(&paypal.Refund{ID: "REF-2", Status: "COMPLETED"}, nil).Once()
		f.payments.On("SavePayment", ctx, payment).Return(nil).Once()
		f.events.On("SendPaymentEvent", mock.Anything).Return(nil).Once()

		err = f.service.RefundPayment(ctx, payment, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStateRefunded, payment.State)
		assert.Equal(t, "19.99", payment.RefundedPrice().Format())
	})

	t.Run("refund beyond the remainder fails without mutation", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		payment := completedPayment()
		payment.RefundedAmount = decimal.RequireFromString("15.00")
		payment.State = models.PaymentStatePartiallyRefunded
		tooMuch, _ := models.NewPrice("10.00", "USD")

		err := f.service.RefundPayment(ctx, payment, &tooMuch)
		assert.ErrorIs(t, err, ErrRefundExceedsAmount)
		assert.Equal(t, models.PaymentStatePartiallyRefunded, payment.State)
		assert.Equal(t, "15", payment.RefundedPrice().Format())
		f.client.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything, mock.Anything)
		f.payments.AssertNotCalled(t, "SavePayment", mock.Anything, mock.Anything)
	})

	t.Run("unexpected remote refund status is a consistency error", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		payment := completedPayment()

		f.client.On("RefundPayment", ctx, "CAP-1", mock.Anything).
			Return(&paypal.Refund{ID: "REF-1", Status: "PENDING"}, nil).Once()

		err := f.service.RefundPayment(ctx, payment, nil)
		var consistency *ConsistencyError
		assert.ErrorAs(t, err, &consistency)
		assert.Equal(t, models.PaymentStateCompleted, payment.State)
		f.payments.AssertNotCalled(t, "SavePayment", mock.Anything, mock.Anything)
	})

	t.Run("requires a captured payment", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		payment := completedPayment()
		payment.State = models.PaymentStateAuthorization

		err := f.service.RefundPayment(ctx, payment, nil)
		var transition *InvalidTransitionError
		assert.ErrorAs(t, err, &transition)
		f.client.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything, mock.Anything)
	})
}

// --- OnApprove ---

func TestOnApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("amount mismatch aborts with zero writes", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()
		// One minor unit off is already a mismatch.
		remote := remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "20.00")

		_, err := f.service.OnApprove(ctx, order, remote)
		var consistency *ConsistencyError
		assert.ErrorAs(t, err, &consistency)
		f.orders.AssertNotCalled(t, "SaveOrder", mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "SaveProfile", mock.Anything, mock.Anything)
		f.payments.AssertNotCalled(t, "CreatePaymentMethod", mock.Anything, mock.Anything)
	})

	t.Run("unapproved remote order aborts", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()
		remote := remoteOrder(paypal.OrderStatusCreated, paypal.IntentCapture, "19.99")

		_, err := f.service.OnApprove(ctx, order, remote)
		var consistency *ConsistencyError
		assert.ErrorAs(t, err, &consistency)
		f.orders.AssertNotCalled(t, "SaveOrder", mock.Anything, mock.Anything)
	})

	t.Run("shortcut flow creates the payment method", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()
		remote := remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99")
		remote.Payer = &paypal.Payer{
			EmailAddress: "payer@example.com",
			Address:      &paypal.Address{AddressLine1: "1 Main St", CountryCode: "US"},
		}

		f.orders.On("SaveProfile", ctx, mock.Anything).Return(nil)
		f.payments.On("CreatePaymentMethod", ctx, mock.MatchedBy(func(m *models.PaymentMethod) bool {
			return m.Flow == models.PaymentMethodFlowShortcut && m.RemoteID == "REMOTE-1" && !m.Reusable
		})).Return(nil).Once()
		f.orders.On("SaveOrder", ctx, order).Return(nil).Once()

		redirect, err := f.service.OnApprove(ctx, order, remote)
		assert.NoError(t, err)
		assert.Equal(t, "/checkout/"+order.ID.String(), redirect)
		assert.Equal(t, models.CheckoutFlowPayPal, order.CheckoutFlow)
		assert.Equal(t, models.PaymentMethodTypePayPalCheckout, order.PaymentGateway)
		assert.Equal(t, "payer@example.com", order.Email)
		f.payments.AssertExpectations(t)
	})

	t.Run("mark flow stores the remote id and advances checkout", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("")
		order.CheckoutStep = "payment"
		remote := remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99")

		f.payments.On("SavePaymentMethod", ctx, mock.MatchedBy(func(m *models.PaymentMethod) bool {
			return m.RemoteID == "REMOTE-1"
		})).Return(nil).Once()
		f.orders.On("SaveOrder", ctx, order).Return(nil).Once()

		redirect, err := f.service.OnApprove(ctx, order, remote)
		assert.NoError(t, err)
		assert.Equal(t, "/checkout/"+order.ID.String(), redirect)
		assert.Equal(t, "complete", order.CheckoutStep)
		f.payments.AssertExpectations(t)
	})

	t.Run("billing profile synced from the payer", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		remote := remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99")
		remote.Payer = &paypal.Payer{
			EmailAddress: "payer@example.com",
			Name:         &paypal.Name{GivenName: "Ada", Surname: "Lovelace"},
			Address: &paypal.Address{
				AddressLine1: "1 Analytical Way",
				AdminArea2:   "London",
				PostalCode:   "N1",
				CountryCode:  "GB",
			},
		}

		var savedProfile *models.Profile
		f.orders.On("SaveProfile", ctx, mock.Anything).Run(func(args mock.Arguments) {
			savedProfile = args.Get(1).(*models.Profile)
		}).Return(nil)
		f.orders.On("SaveOrder", ctx, order).Return(nil).Once()

		_, err := f.service.OnApprove(ctx, order, remote)
		assert.NoError(t, err)
		if assert.NotNil(t, savedProfile) {
			assert.Equal(t, "Ada", savedProfile.GivenName)
			assert.Equal(t, "London", savedProfile.Locality)
			assert.Equal(t, "GB", savedProfile.CountryCode)
		}
		assert.NotNil(t, order.BillingProfile)
	})

	t.Run("shipping sync creates a zero amount shipment", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := orderWithMethod("REMOTE-1")
		remote := remoteOrder(paypal.OrderStatusApproved, paypal.IntentCapture, "19.99")
		remote.PurchaseUnits[0].Shipping = &paypal.Shipping{
			Name: &paypal.Name{FullName: "Grace Brewster Hopper"},
			Address: &paypal.Address{
				AddressLine1: "10 Navy Yard",
				AdminArea2:   "Arlington",
				CountryCode:  "US",
			},
		}

		f.orders.On("SaveProfile", ctx, mock.Anything).Return(nil)
		f.orders.On("SaveShipment", ctx, mock.MatchedBy(func(s *models.Shipment) bool {
			return s.Amount.IsZero() && s.ShippingProfile != nil &&
				s.ShippingProfile.GivenName == "Grace" &&
				s.ShippingProfile.FamilyName == "Brewster Hopper"
		})).Return(nil).Once()
		f.orders.On("SaveOrder", ctx, order).Return(nil).Once()

		_, err := f.service.OnApprove(ctx, order, remote)
		assert.NoError(t, err)
		assert.Len(t, order.Shipments, 1)
		f.orders.AssertExpectations(t)
	})
}

// --- CreateRemoteOrder / CreateMarkPaymentMethod ---

func TestCreateRemoteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the remote id", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()

		f.client.On("CreateOrder", ctx, mock.MatchedBy(func(req *paypal.OrderRequest) bool {
			return req.Intent == paypal.IntentCapture && req.PurchaseUnits[0].Amount.Value == "19.99"
		})).Return(&paypal.Order{ID: "REMOTE-1", Status: paypal.OrderStatusCreated}, nil).Once()

		remoteID, err := f.service.CreateRemoteOrder(ctx, order)
		assert.NoError(t, err)
		assert.Equal(t, "REMOTE-1", remoteID)
	})

	t.Run("remote failure wraps into a gateway error", func(t *testing.T) {
		f := newFixture(t, captureConfig())
		order := fixtureOrder()

		f.client.On("CreateOrder", ctx, mock.Anything).
			Return(nil, &paypal.APIError{StatusCode: 500, Body: "boom"}).Once()

		_, err := f.service.CreateRemoteOrder(ctx, order)
		var gateway *GatewayError
		assert.ErrorAs(t, err, &gateway)
	})
}

func TestCreateMarkPaymentMethod(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, captureConfig())
	order := fixtureOrder()

	f.orders.On("SaveProfile", ctx, mock.Anything).Return(nil).Once()
	f.payments.On("CreatePaymentMethod", ctx, mock.MatchedBy(func(m *models.PaymentMethod) bool {
		return m.Flow == models.PaymentMethodFlowMark && m.RemoteID == "" && !m.Reusable
	})).Return(nil).Once()
	f.orders.On("SaveOrder", ctx, order).Return(nil).Once()

	method, err := f.service.CreateMarkPaymentMethod(ctx, order)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentMethodTypePayPalCheckout, method.Type)
	assert.Equal(t, order.PaymentMethodID, &method.ID)
}
