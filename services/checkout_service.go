package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paypal-checkout-service/models"
	"paypal-checkout-service/paypal"
	"paypal-checkout-service/repository"
)

// reauthorizeAfter is how old an authorization may grow before capture
// triggers a reauthorization first. PayPal honor periods end at 3 days.
const reauthorizeAfter = 3 * 24 * time.Hour

// EventPublisher publishes payment lifecycle events.
type EventPublisher interface {
	SendPaymentEvent(event models.PaymentEvent) error
}

// CheckoutService reconciles remote PayPal order/payment responses onto the
// local order and payment state machine.
type CheckoutService interface {
	CreateRemoteOrder(ctx context.Context, order *models.Order) (string, error)
	CreateMarkPaymentMethod(ctx context.Context, order *models.Order) (*models.PaymentMethod, error)
	OnApprove(ctx context.Context, order *models.Order, remote *paypal.Order) (string, error)
	CreatePayment(ctx context.Context, order *models.Order, payment *models.Payment) error
	CapturePayment(ctx context.Context, payment *models.Payment, amount *models.Price) error
	VoidPayment(ctx context.Context, payment *models.Payment) error
	RefundPayment(ctx context.Context, payment *models.Payment, amount *models.Price) error
}

type checkoutService struct {
	client          paypal.CheckoutAPI
	builder         *paypal.RequestBuilder
	cfg             paypal.Config
	shippingEnabled bool
	payments        repository.PaymentRepository
	orders          repository.OrderRepository
	events          EventPublisher
	logger          *zap.Logger
	now             func() time.Time

	// approveMu serializes OnApprove per order id: two concurrent approval
	// callbacks for the same order must not race on the payment method.
	approveMu    sync.Mutex
	approveLocks map[uuid.UUID]*sync.Mutex
}

// NewCheckoutService creates the reconciler.
func NewCheckoutService(
	client paypal.CheckoutAPI,
	builder *paypal.RequestBuilder,
	cfg paypal.Config,
	shippingEnabled bool,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	events EventPublisher,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		client:          client,
		builder:         builder,
		cfg:             cfg,
		shippingEnabled: shippingEnabled,
		payments:        payments,
		orders:          orders,
		events:          events,
		logger:          logger,
		now:             time.Now,
		approveLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *checkoutService) orderLock(orderID uuid.UUID) *sync.Mutex {
	s.approveMu.Lock()
	defer s.approveMu.Unlock()
	lock, ok := s.approveLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.approveLocks[orderID] = lock
	}
	return lock
}

// CreateRemoteOrder pushes the order to PayPal and returns the remote id.
// No local mutation happens here.
func (s *checkoutService) CreateRemoteOrder(ctx context.Context, order *models.Order) (string, error) {
	request, err := s.builder.BuildOrderRequest(order)
	if err != nil {
		return "", err
	}
	remote, err := s.client.CreateOrder(ctx, request)
	if err != nil {
		s.logger.Error("failed to create remote order", zap.String("order_id", order.ID.String()), zap.Error(err))
		return "", &GatewayError{Message: "Could not create the order in PayPal.", Err: err}
	}
	return remote.ID, nil
}

// CreateMarkPaymentMethod creates the payment method at payment-step
// submission time. The remote id stays empty until approval; an empty billing
// profile is attached so downstream panes have one to render.
func (s *checkoutService) CreateMarkPaymentMethod(ctx context.Context, order *models.Order) (*models.PaymentMethod, error) {
	profile := &models.Profile{CustomerID: order.CustomerID}
	if err := s.orders.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	method := &models.PaymentMethod{
		Type:             models.PaymentMethodTypePayPalCheckout,
		Flow:             models.PaymentMethodFlowMark,
		Reusable:         false,
		PaymentGateway:   models.PaymentMethodTypePayPalCheckout,
		BillingProfileID: &profile.ID,
	}
	if err := s.payments.CreatePaymentMethod(ctx, method); err != nil {
		return nil, err
	}
	order.PaymentMethodID = &method.ID
	order.PaymentMethod = method
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	return method, nil
}

// OnApprove handles the browser approval callback. The consistency gate runs
// before any write; a mismatch aborts with zero side effects.
func (s *checkoutService) OnApprove(ctx context.Context, order *models.Order, remote *paypal.Order) (string, error) {
	lock := s.orderLock(order.ID)
	lock.Lock()
	defer lock.Unlock()

	if len(remote.PurchaseUnits) == 0 {
		return "", &ConsistencyError{Message: "remote order has no purchase units"}
	}
	remoteTotal, err := models.NewPrice(remote.PurchaseUnits[0].Amount.Value, remote.PurchaseUnits[0].Amount.CurrencyCode)
	if err != nil {
		return "", &ConsistencyError{Message: "remote order amount is malformed"}
	}
	if !remoteTotal.Equals(order.Total()) {
		s.logger.Warn("approval amount mismatch",
			zap.String("order_id", order.ID.String()),
			zap.String("local", order.Total().String()),
			zap.String("remote", remoteTotal.String()),
		)
		return "", &ConsistencyError{Message: "remote order total does not match the order total"}
	}
	if remote.Status != paypal.OrderStatusApproved && remote.Status != paypal.OrderStatusCompleted {
		return "", &ConsistencyError{Message: "remote order is not approved"}
	}

	if order.Email == "" && remote.Payer != nil {
		order.Email = remote.Payer.EmailAddress
	}

	if s.cfg.UpdateBillingProfile {
		if err := s.updateBillingProfile(ctx, order, remote); err != nil {
			return "", err
		}
	}
	if s.cfg.UpdateShippingProfile && s.shippingEnabled {
		if err := s.updateShippingProfile(ctx, order, remote); err != nil {
			return "", err
		}
	}

	if order.HasPayPalPaymentMethod() {
		// Mark flow: the method exists since the payment step; only its
		// remote id was unknown until now.
		method := order.PaymentMethod
		if method.RemoteID != remote.ID {
			method.RemoteID = remote.ID
			if err := s.payments.SavePaymentMethod(ctx, method); err != nil {
				return "", err
			}
		}
		order.PaymentGateway = models.PaymentMethodTypePayPalCheckout
		order.CheckoutStep = nextCheckoutStep(order.CheckoutStep)
		if err := s.orders.SaveOrder(ctx, order); err != nil {
			return "", err
		}
	} else {
		// Shortcut flow: no payment method yet, create it now and force the
		// dedicated checkout flow.
		method := &models.PaymentMethod{
			Type:           models.PaymentMethodTypePayPalCheckout,
			Flow:           models.PaymentMethodFlowShortcut,
			Reusable:       false,
			RemoteID:       remote.ID,
			PaymentGateway: models.PaymentMethodTypePayPalCheckout,
		}
		if err := s.payments.CreatePaymentMethod(ctx, method); err != nil {
			return "", err
		}
		order.CheckoutFlow = models.CheckoutFlowPayPal
		order.PaymentGateway = models.PaymentMethodTypePayPalCheckout
		order.PaymentMethodID = &method.ID
		order.PaymentMethod = method
		if err := s.orders.SaveOrder(ctx, order); err != nil {
			return "", err
		}
	}

	return "/checkout/" + order.ID.String(), nil
}

// CreatePayment pushes the latest order snapshot to the approved remote
// order, then captures or authorizes it depending on the configured intent.
func (s *checkoutService) CreatePayment(ctx context.Context, order *models.Order, payment *models.Payment) error {
	method := payment.PaymentMethod
	if method == nil {
		method = order.PaymentMethod
	}
	if method == nil || method.RemoteID == "" {
		return &GatewayError{Message: "The order has no PayPal payment method."}
	}
	remoteOrderID := method.RemoteID

	request, err := s.builder.BuildOrderRequest(order)
	if err != nil {
		return err
	}
	if err := s.client.UpdateOrder(ctx, remoteOrderID, request); err != nil {
		s.logger.Error("failed to update remote order", zap.String("remote_id", remoteOrderID), zap.Error(err))
		return &GatewayError{Message: "Could not retrieve the order in PayPal.", Err: err}
	}
	remote, err := s.client.GetOrder(ctx, remoteOrderID)
	if err != nil {
		s.logger.Error("failed to fetch remote order", zap.String("remote_id", remoteOrderID), zap.Error(err))
		return &GatewayError{Message: "Could not retrieve the order in PayPal.", Err: err}
	}
	if remote.Status != paypal.OrderStatusApproved && remote.Status != paypal.OrderStatusSaved {
		// Not retryable: the customer must go through approval again.
		return &GatewayError{Message: "Wrong remote order status."}
	}

	intent := strings.ToLower(remote.Intent)
	var (
		remoteID    string
		remoteState string
		amountValue paypal.Amount
	)
	switch intent {
	case "capture":
		captured, err := s.client.CaptureOrder(ctx, remoteOrderID)
		if err != nil {
			s.logger.Error("capture order failed", zap.String("remote_id", remoteOrderID), zap.Error(err))
			return &GatewayError{Message: "The provided payment method is no longer valid.", Err: err}
		}
		capture, err := firstCapture(captured)
		if err != nil {
			return err
		}
		remoteID = capture.ID
		remoteState = strings.ToLower(capture.Status)
		amountValue = capture.Amount
	case "authorize":
		authorized, err := s.client.AuthorizeOrder(ctx, remoteOrderID)
		if err != nil {
			s.logger.Error("authorize order failed", zap.String("remote_id", remoteOrderID), zap.Error(err))
			return &GatewayError{Message: "The provided payment method is no longer valid.", Err: err}
		}
		authorization, err := firstAuthorization(authorized)
		if err != nil {
			return err
		}
		remoteID = authorization.ID
		remoteState = strings.ToLower(authorization.Status)
		amountValue = authorization.Amount
		if authorization.ExpirationTime != "" {
			if expires, err := time.Parse(time.RFC3339, authorization.ExpirationTime); err == nil {
				payment.ExpiresAt = &expires
			}
		}
	default:
		return &GatewayError{Message: "Unknown remote order intent."}
	}

	if hardDeclineStates[remoteState] {
		return &HardDeclineError{Intent: intent, RemoteState: remoteState}
	}
	state, ok := mapPaymentState(intent, remoteState)
	if !ok {
		return &UnmappedStateError{Intent: intent, RemoteState: remoteState}
	}

	amount, err := models.NewPrice(amountValue.Value, amountValue.CurrencyCode)
	if err != nil {
		return &ConsistencyError{Message: "remote payment amount is malformed"}
	}
	payment.Amount = amount.Number
	payment.CurrencyCode = amount.CurrencyCode
	payment.State = state
	payment.RemoteID = remoteID
	payment.RemoteState = remoteState
	if state == models.PaymentStateAuthorization {
		authorizedAt := s.now()
		payment.AuthorizedAt = &authorizedAt
	}

	if payment.ID == uuid.Nil {
		err = s.payments.CreatePayment(ctx, payment)
	} else {
		err = s.payments.SavePayment(ctx, payment)
	}
	if err != nil {
		return err
	}
	if state == models.PaymentStateAuthorization {
		s.publishEvent(payment, models.PaymentEventAuthorized)
	} else {
		s.publishEvent(payment, models.PaymentEventCompleted)
	}
	return nil
}

// CapturePayment captures an authorized payment, reauthorizing first when
// the authorization is older than three days and not yet expired.
func (s *checkoutService) CapturePayment(ctx context.Context, payment *models.Payment, amount *models.Price) error {
	if payment.State != models.PaymentStateAuthorization {
		return &InvalidTransitionError{
			State:    payment.State,
			Required: []models.PaymentState{models.PaymentStateAuthorization},
		}
	}

	captureAmount := payment.AmountPrice()
	if amount != nil {
		if amount.CurrencyCode != payment.CurrencyCode {
			return &ConsistencyError{Message: "capture currency does not match the payment currency"}
		}
		captureAmount = *amount
	}

	request := &paypal.CaptureRequest{
		Amount: &paypal.Amount{
			CurrencyCode: captureAmount.CurrencyCode,
			Value:        captureAmount.Format(),
		},
	}
	if captureAmount.Equals(payment.AmountPrice()) {
		request.FinalCapture = true
	}

	now := s.now()
	if payment.AuthorizedAt != nil && !now.Before(payment.AuthorizedAt.Add(reauthorizeAfter)) && !payment.IsExpired(now) {
		if _, err := s.client.ReauthorizePayment(ctx, payment.RemoteID, &paypal.ReauthorizeRequest{Amount: request.Amount}); err != nil {
			s.logger.Error("reauthorize failed", zap.String("remote_id", payment.RemoteID), zap.Error(err))
			return &GatewayError{Message: "An error occurred while capturing the authorized payment.", Err: err}
		}
	}

	capture, err := s.client.CapturePayment(ctx, payment.RemoteID, request)
	if err != nil {
		s.logger.Error("capture failed", zap.String("remote_id", payment.RemoteID), zap.Error(err))
		return &GatewayError{Message: "An error occurred while capturing the authorized payment.", Err: err}
	}

	// A successful capture call always completes the payment; the remote
	// status is recorded verbatim but not mapped.
	payment.State = models.PaymentStateCompleted
	payment.Amount = captureAmount.Number
	payment.CurrencyCode = captureAmount.CurrencyCode
	payment.RemoteState = strings.ToLower(capture.Status)
	if err := s.payments.SavePayment(ctx, payment); err != nil {
		return err
	}
	s.publishEvent(payment, models.PaymentEventCompleted)
	return nil
}

// VoidPayment cancels an authorization. Anything but a clean void from
// PayPal is surfaced as an error and the payment keeps its state.
func (s *checkoutService) VoidPayment(ctx context.Context, payment *models.Payment) error {
	if payment.State != models.PaymentStateAuthorization {
		return &InvalidTransitionError{
			State:    payment.State,
			Required: []models.PaymentState{models.PaymentStateAuthorization},
		}
	}
	if err := s.client.VoidPayment(ctx, payment.RemoteID); err != nil {
		s.logger.Error("void failed", zap.String("remote_id", payment.RemoteID), zap.Error(err))
		return &GatewayError{Message: "An error occurred while voiding the payment.", Err: err}
	}
	payment.State = models.PaymentStateAuthVoided
	if err := s.payments.SavePayment(ctx, payment); err != nil {
		return err
	}
	s.publishEvent(payment, models.PaymentEventVoided)
	return nil
}

// RefundPayment refunds part or all of a captured payment. The cumulative
// refunded amount never decreases and never exceeds the payment amount.
func (s *checkoutService) RefundPayment(ctx context.Context, payment *models.Payment, amount *models.Price) error {
	if payment.State != models.PaymentStateCompleted && payment.State != models.PaymentStatePartiallyRefunded {
		return &InvalidTransitionError{
			State:    payment.State,
			Required: []models.PaymentState{models.PaymentStateCompleted, models.PaymentStatePartiallyRefunded},
		}
	}

	remaining, err := payment.AmountPrice().Sub(payment.RefundedPrice())
	if err != nil {
		return err
	}
	refundAmount := remaining
	if amount != nil {
		if amount.CurrencyCode != payment.CurrencyCode {
			return &ConsistencyError{Message: "refund currency does not match the payment currency"}
		}
		refundAmount = *amount
	}
	if refundAmount.GreaterThan(remaining) {
		return ErrRefundExceedsAmount
	}

	newRefunded, err := payment.RefundedPrice().Add(refundAmount)
	if err != nil {
		return err
	}
	newState := models.PaymentStateRefunded
	if newRefunded.LessThan(payment.AmountPrice()) {
		newState = models.PaymentStatePartiallyRefunded
	}

	refund, err := s.client.RefundPayment(ctx, payment.RemoteID, &paypal.RefundRequest{
		Amount: &paypal.Amount{
			CurrencyCode: refundAmount.CurrencyCode,
			Value:        refundAmount.Format(),
		},
	})
	if err != nil {
		s.logger.Error("refund failed", zap.String("remote_id", payment.RemoteID), zap.Error(err))
		return &GatewayError{Message: "An error occurred while refunding the payment.", Err: err}
	}
	if !strings.EqualFold(refund.Status, "completed") {
		return &ConsistencyError{
			Message: "invalid refund state returned by PayPal, expected COMPLETED, got " + refund.Status,
		}
	}

	payment.RefundedAmount = newRefunded.Number
	payment.State = newState
	if err := s.payments.SavePayment(ctx, payment); err != nil {
		return err
	}
	s.publishEvent(payment, models.PaymentEventRefunded)
	return nil
}

// updateBillingProfile syncs the billing profile from the payer block.
func (s *checkoutService) updateBillingProfile(ctx context.Context, order *models.Order, remote *paypal.Order) error {
	if remote.Payer == nil {
		return nil
	}
	profile := order.BillingProfile
	if profile == nil {
		profile = &models.Profile{CustomerID: order.CustomerID}
	}
	if remote.Payer.Name != nil {
		profile.GivenName = clampAddressField(remote.Payer.Name.GivenName)
		profile.FamilyName = clampAddressField(remote.Payer.Name.Surname)
	}
	if remote.Payer.Address != nil {
		populateProfile(profile, remote.Payer.Address)
	}
	if err := s.orders.SaveProfile(ctx, profile); err != nil {
		return err
	}
	order.BillingProfileID = &profile.ID
	order.BillingProfile = profile
	return nil
}

// updateShippingProfile syncs the first shipment's profile from the purchase
// unit shipping block, creating a zero-amount shipment when none exists.
func (s *checkoutService) updateShippingProfile(ctx context.Context, order *models.Order, remote *paypal.Order) error {
	shipping := remote.PurchaseUnits[0].Shipping
	if shipping == nil {
		return nil
	}

	if len(order.Shipments) == 0 {
		order.Shipments = append(order.Shipments, models.Shipment{
			OrderID:      order.ID,
			CurrencyCode: order.CurrencyCode,
		})
	}
	shipment := &order.Shipments[0]

	profile := shipment.ShippingProfile
	if profile == nil {
		profile = &models.Profile{CustomerID: order.CustomerID}
	}
	if shipping.Name != nil && shipping.Name.FullName != "" {
		// PayPal only sends a full name for shipping, so given and family
		// names have to be guessed around the first space.
		given, family := splitFullName(shipping.Name.FullName)
		profile.GivenName = clampAddressField(given)
		profile.FamilyName = clampAddressField(family)
	}
	if shipping.Address != nil {
		populateProfile(profile, shipping.Address)
	}
	if err := s.orders.SaveProfile(ctx, profile); err != nil {
		return err
	}
	shipment.ShippingProfileID = &profile.ID
	shipment.ShippingProfile = profile
	return s.orders.SaveShipment(ctx, shipment)
}

func (s *checkoutService) publishEvent(payment *models.Payment, eventType string) {
	event := models.PaymentEvent{
		Type:      eventType,
		OrderID:   payment.OrderID.String(),
		PaymentID: payment.ID.String(),
		State:     string(payment.State),
		Amount:    payment.AmountPrice().Format(),
		Currency:  payment.CurrencyCode,
		RemoteID:  payment.RemoteID,
		Timestamp: s.now().UTC(),
	}
	if err := s.events.SendPaymentEvent(event); err != nil {
		// Logging only; event delivery must not fail the payment operation.
		s.logger.Error("failed to publish payment event",
			zap.String("event_type", eventType),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

// firstCapture extracts the first capture record of the default purchase unit.
func firstCapture(remote *paypal.Order) (*paypal.Capture, error) {
	if len(remote.PurchaseUnits) == 0 || remote.PurchaseUnits[0].Payments == nil ||
		len(remote.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, &GatewayError{Message: "Remote order response carries no capture record."}
	}
	return &remote.PurchaseUnits[0].Payments.Captures[0], nil
}

// firstAuthorization extracts the first authorization record.
func firstAuthorization(remote *paypal.Order) (*paypal.Authorization, error) {
	if len(remote.PurchaseUnits) == 0 || remote.PurchaseUnits[0].Payments == nil ||
		len(remote.PurchaseUnits[0].Payments.Authorizations) == 0 {
		return nil, &GatewayError{Message: "Remote order response carries no authorization record."}
	}
	return &remote.PurchaseUnits[0].Payments.Authorizations[0], nil
}

// populateProfile maps a PayPal address onto a profile. PayPal fields allow
// longer strings than the local columns, so everything but the country code
// is clamped to 255 runes.
func populateProfile(profile *models.Profile, address *paypal.Address) {
	profile.AddressLine1 = clampAddressField(address.AddressLine1)
	profile.AddressLine2 = clampAddressField(address.AddressLine2)
	profile.AdministrativeArea = clampAddressField(address.AdminArea1)
	profile.Locality = clampAddressField(address.AdminArea2)
	profile.PostalCode = clampAddressField(address.PostalCode)
	profile.CountryCode = address.CountryCode
}

func clampAddressField(s string) string {
	runes := []rune(s)
	if len(runes) <= 255 {
		return s
	}
	return string(runes[:255])
}

func splitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// checkoutSteps is the local checkout flow progression used by the mark flow
// to advance past the payment step after approval.
var checkoutSteps = []string{"order_information", "review", "payment", "complete"}

func nextCheckoutStep(current string) string {
	for i, step := range checkoutSteps {
		if step == current && i+1 < len(checkoutSteps) {
			return checkoutSteps[i+1]
		}
	}
	return "review"
}
