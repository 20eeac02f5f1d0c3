package paypal

// Remote order statuses.
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusSaved     = "SAVED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusVoided    = "VOIDED"
)

// Order intents.
const (
	IntentCapture   = "CAPTURE"
	IntentAuthorize = "AUTHORIZE"
)

// Shipping preferences for the application context.
const (
	ShippingPreferenceNoShipping         = "NO_SHIPPING"
	ShippingPreferenceGetFromFile        = "GET_FROM_FILE"
	ShippingPreferenceSetProvidedAddress = "SET_PROVIDED_ADDRESS"
)

// Amount is a currency/value pair, optionally with a breakdown.
type Amount struct {
	CurrencyCode string     `json:"currency_code"`
	Value        string     `json:"value"`
	Breakdown    *Breakdown `json:"breakdown,omitempty"`
}

// Breakdown decomposes a purchase unit total. PayPal requires
// item_total + tax_total + shipping to equal the amount value.
type Breakdown struct {
	ItemTotal *Amount `json:"item_total,omitempty"`
	TaxTotal  *Amount `json:"tax_total,omitempty"`
	Shipping  *Amount `json:"shipping,omitempty"`
}

// Item is a purchase unit line item.
type Item struct {
	Name       string `json:"name"`
	SKU        string `json:"sku,omitempty"`
	UnitAmount Amount `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

// Name holds payer or shipping recipient names. The shipping name only
// carries FullName; the payer name is split.
type Name struct {
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

// Address is a PayPal-side postal address.
type Address struct {
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	AdminArea1   string `json:"admin_area_1,omitempty"`
	AdminArea2   string `json:"admin_area_2,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// Payer identifies the approving customer.
type Payer struct {
	EmailAddress string   `json:"email_address,omitempty"`
	Name         *Name    `json:"name,omitempty"`
	Address      *Address `json:"address,omitempty"`
}

// Shipping is the recipient block of a purchase unit.
type Shipping struct {
	Name    *Name    `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Capture is a captured payment record.
type Capture struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       Amount `json:"amount"`
	FinalCapture bool   `json:"final_capture,omitempty"`
}

// Authorization is an authorized payment record.
type Authorization struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         Amount `json:"amount"`
	ExpirationTime string `json:"expiration_time,omitempty"`
}

// Refund is a refund record.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
}

// PurchaseUnitPayments groups the payment records of a purchase unit.
type PurchaseUnitPayments struct {
	Captures       []Capture       `json:"captures,omitempty"`
	Authorizations []Authorization `json:"authorizations,omitempty"`
	Refunds        []Refund        `json:"refunds,omitempty"`
}

// PurchaseUnit groups amount, items and shipping for one merchant.
type PurchaseUnit struct {
	ReferenceID string                `json:"reference_id,omitempty"`
	CustomID    string                `json:"custom_id,omitempty"`
	InvoiceID   string                `json:"invoice_id,omitempty"`
	Amount      Amount                `json:"amount"`
	Items       []Item                `json:"items,omitempty"`
	Shipping    *Shipping             `json:"shipping,omitempty"`
	Payments    *PurchaseUnitPayments `json:"payments,omitempty"`
}

// ApplicationContext customizes the PayPal approval experience.
type ApplicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	ShippingPreference string `json:"shipping_preference,omitempty"`
}

// Order is the decoded remote order body. It is consumed once per call and
// never persisted verbatim.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         *Payer         `json:"payer,omitempty"`
}

// OrderRequest is the create/update order payload.
type OrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	Payer              *Payer              `json:"payer,omitempty"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// CaptureRequest is the capture-authorization payload.
type CaptureRequest struct {
	Amount       *Amount `json:"amount,omitempty"`
	FinalCapture bool    `json:"final_capture,omitempty"`
}

// ReauthorizeRequest is the reauthorize-authorization payload.
type ReauthorizeRequest struct {
	Amount *Amount `json:"amount,omitempty"`
}

// RefundRequest is the refund-capture payload.
type RefundRequest struct {
	Amount *Amount `json:"amount,omitempty"`
}

// AccessTokenResponse is the OAuth2 token endpoint body.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ClientTokenResponse is the identity generate-token body, needed by the
// hosted-fields widget.
type ClientTokenResponse struct {
	ClientToken string `json:"client_token"`
	ExpiresIn   int    `json:"expires_in"`
}
