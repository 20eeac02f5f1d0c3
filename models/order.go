package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Adjustment types understood by the order request builder.
const (
	AdjustmentTypeTax       = "tax"
	AdjustmentTypeShipping  = "shipping"
	AdjustmentTypeFee       = "fee"
	AdjustmentTypePromotion = "promotion"
)

// Checkout flow identifiers. The shortcut flow is forced when the customer
// starts checkout from the PayPal button instead of the payment step.
const (
	CheckoutFlowDefault = "default"
	CheckoutFlowPayPal  = "paypal_checkout"
)

// Profile holds a customer address, used for both billing and shipping.
type Profile struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         *uuid.UUID `gorm:"type:uuid;index"`
	GivenName          string     `gorm:"type:varchar(255)"`
	FamilyName         string     `gorm:"type:varchar(255)"`
	AddressLine1       string     `gorm:"type:varchar(255)"`
	AddressLine2       string     `gorm:"type:varchar(255)"`
	Locality           string     `gorm:"type:varchar(255)"`
	AdministrativeArea string     `gorm:"type:varchar(255)"`
	PostalCode         string     `gorm:"type:varchar(255)"`
	CountryCode        string     `gorm:"type:varchar(2)"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}

// OrderItem is a purchased line item with its promotion-adjusted prices.
type OrderItem struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID       `gorm:"type:uuid;index;not null"`
	Title              string          `gorm:"type:varchar(512);not null"`
	SKU                string          `gorm:"type:varchar(255)"`
	Quantity           int             `gorm:"not null"`
	CurrencyCode       string          `gorm:"type:varchar(3);not null"`
	UnitPrice          decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	AdjustedUnitPrice  decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	TotalPrice         decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	AdjustedTotalPrice decimal.Decimal `gorm:"type:numeric(19,6);not null"`
}

// Adjustment is a typed order-level price modification. Included adjustments
// are already folded into unit prices and are skipped by breakdown totals.
type Adjustment struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type         string          `gorm:"type:varchar(32);not null"`
	Label        string          `gorm:"type:varchar(255)"`
	CurrencyCode string          `gorm:"type:varchar(3);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	Included     bool            `gorm:"not null;default:false"`
}

// Shipment carries a shipping profile for part of an order.
type Shipment struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	CurrencyCode      string          `gorm:"type:varchar(3);not null"`
	Amount            decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	ShippingProfileID *uuid.UUID      `gorm:"type:uuid"`
	ShippingProfile   *Profile        `gorm:"foreignKey:ShippingProfileID"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime"`
}

// Order is the local checkout order.
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       *uuid.UUID      `gorm:"type:uuid;index"`
	Email            string          `gorm:"type:varchar(255)"`
	CurrencyCode     string          `gorm:"type:varchar(3);not null"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	CheckoutFlow     string          `gorm:"type:varchar(64);not null;default:default"`
	CheckoutStep     string          `gorm:"type:varchar(64)"`
	PaymentGateway   string          `gorm:"type:varchar(64)"`
	PaymentMethodID  *uuid.UUID      `gorm:"type:uuid"`
	PaymentMethod    *PaymentMethod  `gorm:"foreignKey:PaymentMethodID"`
	BillingProfileID *uuid.UUID      `gorm:"type:uuid"`
	BillingProfile   *Profile        `gorm:"foreignKey:BillingProfileID"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID"`
	Adjustments      []Adjustment    `gorm:"foreignKey:OrderID"`
	Shipments        []Shipment      `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"`
}

// Total returns the order total as a Price.
func (o *Order) Total() Price {
	return Price{Number: o.TotalPrice, CurrencyCode: o.CurrencyCode}
}

// HasPayPalPaymentMethod reports whether the order already references a
// paypal_checkout payment method (the mark flow).
func (o *Order) HasPayPalPaymentMethod() bool {
	return o.PaymentMethod != nil && o.PaymentMethod.Type == PaymentMethodTypePayPalCheckout
}

// ShippingAddress returns the first shipment's profile, if any.
func (o *Order) ShippingAddress() *Profile {
	if len(o.Shipments) == 0 {
		return nil
	}
	return o.Shipments[0].ShippingProfile
}
