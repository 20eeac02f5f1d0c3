package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentState is the local payment state machine:
//
//	new -> authorization -> {authorization_voided, authorization_expired, completed}
//	completed -> {partially_refunded, refunded}
//
// authorization_voided, authorization_expired and refunded are terminal.
type PaymentState string

const (
	PaymentStateNew               PaymentState = "new"
	PaymentStateAuthorization     PaymentState = "authorization"
	PaymentStateAuthVoided        PaymentState = "authorization_voided"
	PaymentStateAuthExpired       PaymentState = "authorization_expired"
	PaymentStateCompleted         PaymentState = "completed"
	PaymentStatePartiallyRefunded PaymentState = "partially_refunded"
	PaymentStateRefunded          PaymentState = "refunded"
)

// Payment method flow tags. "mark" methods are created when the payment step
// is submitted; "shortcut" methods only exist once PayPal approves the order.
const (
	PaymentMethodFlowMark     = "mark"
	PaymentMethodFlowShortcut = "shortcut"
)

// PaymentMethodTypePayPalCheckout is the only method type this service issues.
const PaymentMethodTypePayPalCheckout = "paypal_checkout"

// PaymentMethod references a PayPal order once its id is known.
type PaymentMethod struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type             string         `gorm:"type:varchar(64);not null"`
	Flow             string         `gorm:"type:varchar(16);not null"`
	RemoteID         string         `gorm:"type:varchar(64);index"`
	Reusable         bool           `gorm:"not null;default:false"`
	PaymentGateway   string         `gorm:"type:varchar(64)"`
	BillingProfileID *uuid.UUID     `gorm:"type:uuid"`
	BillingProfile   *Profile       `gorm:"foreignKey:BillingProfileID"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// Payment is a single charge or authorization against an order.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	PaymentMethodID *uuid.UUID      `gorm:"type:uuid"`
	PaymentMethod   *PaymentMethod  `gorm:"foreignKey:PaymentMethodID"`
	CurrencyCode    string          `gorm:"type:varchar(3);not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(19,6);not null"`
	RefundedAmount  decimal.Decimal `gorm:"type:numeric(19,6);not null;default:0"`
	State           PaymentState    `gorm:"type:varchar(32);not null;default:new"`
	RemoteID        string          `gorm:"type:varchar(64);index"`
	RemoteState     string          `gorm:"type:varchar(32)"`
	AuthorizedAt    *time.Time
	ExpiresAt       *time.Time
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// AmountPrice returns the payment amount as a Price.
func (p *Payment) AmountPrice() Price {
	return Price{Number: p.Amount, CurrencyCode: p.CurrencyCode}
}

// RefundedPrice returns the cumulative refunded amount as a Price.
func (p *Payment) RefundedPrice() Price {
	return Price{Number: p.RefundedAmount, CurrencyCode: p.CurrencyCode}
}

// IsExpired reports whether the authorization expiry has passed.
func (p *Payment) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
