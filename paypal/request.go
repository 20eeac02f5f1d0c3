package paypal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paypal-checkout-service/models"
)

// maxNameLength is PayPal's limit for item names, SKUs and brand names.
const maxNameLength = 127

// AdjustmentTransformer normalizes adjustments before summation, e.g.
// converting tax-inclusive amounts to exclusive ones. The identity
// transformer is used when none is supplied.
type AdjustmentTransformer func([]models.Adjustment) []models.Adjustment

// RequestBuilder converts local orders into remote order payloads.
type RequestBuilder struct {
	cfg             Config
	shippingEnabled bool
	transformer     AdjustmentTransformer
	now             func() time.Time
}

// NewRequestBuilder creates a builder for the given gateway configuration.
func NewRequestBuilder(cfg Config, shippingEnabled bool, transformer AdjustmentTransformer) *RequestBuilder {
	if transformer == nil {
		transformer = func(adjustments []models.Adjustment) []models.Adjustment { return adjustments }
	}
	return &RequestBuilder{
		cfg:             cfg,
		shippingEnabled: shippingEnabled,
		transformer:     transformer,
		now:             time.Now,
	}
}

// BuildOrderRequest prepares the create/update order payload for an order.
//
// Item totals use promotion-adjusted prices because PayPal's breakdown has no
// discount slot; PayPal rejects the order when
// item_total + tax_total + shipping does not equal the amount value.
func (b *RequestBuilder) BuildOrderRequest(order *models.Order) (*OrderRequest, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", order.ID)
	}

	items := make([]Item, 0, len(order.Items))
	itemTotal := decimal.Zero
	for _, orderItem := range order.Items {
		itemTotal = itemTotal.Add(orderItem.AdjustedTotalPrice)
		item := Item{
			Name: truncate(orderItem.Title, maxNameLength),
			UnitAmount: Amount{
				CurrencyCode: orderItem.CurrencyCode,
				Value:        trim(orderItem.AdjustedUnitPrice, orderItem.CurrencyCode),
			},
			Quantity: orderItem.Quantity,
		}
		if orderItem.SKU != "" {
			item.SKU = truncate(orderItem.SKU, maxNameLength)
		}
		items = append(items, item)
	}

	breakdown := &Breakdown{
		ItemTotal: &Amount{
			CurrencyCode: order.CurrencyCode,
			Value:        trim(itemTotal, order.CurrencyCode),
		},
	}
	if taxTotal := b.adjustmentsTotal(order, models.AdjustmentTypeTax); taxTotal != nil {
		breakdown.TaxTotal = &Amount{
			CurrencyCode: taxTotal.CurrencyCode,
			Value:        taxTotal.Format(),
		}
	}
	if shippingTotal := b.adjustmentsTotal(order, models.AdjustmentTypeShipping); shippingTotal != nil {
		breakdown.Shipping = &Amount{
			CurrencyCode: shippingTotal.CurrencyCode,
			Value:        shippingTotal.Format(),
		}
	}

	purchaseUnit := PurchaseUnit{
		ReferenceID: "default",
		CustomID:    order.ID.String(),
		InvoiceID:   order.ID.String() + "-" + strconv.FormatInt(b.now().Unix(), 10),
		Amount: Amount{
			CurrencyCode: order.CurrencyCode,
			Value:        trim(order.TotalPrice, order.CurrencyCode),
			Breakdown:    breakdown,
		},
		Items: items,
	}

	preference := b.resolveShippingPreference(order)
	if preference == ShippingPreferenceSetProvidedAddress {
		if address := order.ShippingAddress(); address != nil {
			purchaseUnit.Shipping = &Shipping{
				Name:    &Name{FullName: strings.TrimSpace(address.GivenName + " " + address.FamilyName)},
				Address: formatAddress(address),
			}
		}
	}

	request := &OrderRequest{
		Intent:        strings.ToUpper(b.cfg.Intent),
		PurchaseUnits: []PurchaseUnit{purchaseUnit},
		ApplicationContext: &ApplicationContext{
			BrandName:          truncate(b.cfg.BrandName, maxNameLength),
			ShippingPreference: preference,
		},
	}

	// PayPal rejects an empty payer object, so it is omitted entirely when
	// neither email nor address is known.
	payer := &Payer{}
	if order.Email != "" {
		payer.EmailAddress = order.Email
	}
	if order.BillingProfile != nil {
		payer.Name = &Name{
			GivenName: order.BillingProfile.GivenName,
			Surname:   order.BillingProfile.FamilyName,
		}
		payer.Address = formatAddress(order.BillingProfile)
	}
	if payer.EmailAddress != "" || payer.Address != nil {
		request.Payer = payer
	}

	return request, nil
}

// resolveShippingPreference applies the configured preference to the order.
// Deployments without shipping always force NO_SHIPPING; asking PayPal to use
// a provided address degrades to collecting one when the order has none yet.
func (b *RequestBuilder) resolveShippingPreference(order *models.Order) string {
	if !b.shippingEnabled {
		return ShippingPreferenceNoShipping
	}
	switch b.cfg.ShippingPreference {
	case "no_shipping":
		return ShippingPreferenceNoShipping
	case "set_provided_address":
		if order.ShippingAddress() == nil {
			return ShippingPreferenceGetFromFile
		}
		return ShippingPreferenceSetProvidedAddress
	default:
		return ShippingPreferenceGetFromFile
	}
}

// adjustmentsTotal sums the non-included adjustments of the given type after
// running them through the transformer. Returns nil when none match.
func (b *RequestBuilder) adjustmentsTotal(order *models.Order, adjustmentType string) *models.Price {
	var matching []models.Adjustment
	for _, adjustment := range order.Adjustments {
		if adjustment.Type != adjustmentType || adjustment.Included {
			continue
		}
		matching = append(matching, adjustment)
	}
	if len(matching) == 0 {
		return nil
	}

	total := decimal.Zero
	for _, adjustment := range b.transformer(matching) {
		total = total.Add(adjustment.Amount)
	}
	price := models.NewPriceFromDecimal(total, order.CurrencyCode)
	return &price
}

// formatAddress maps a local profile to PayPal address fields.
func formatAddress(profile *models.Profile) *Address {
	return &Address{
		AddressLine1: profile.AddressLine1,
		AddressLine2: profile.AddressLine2,
		AdminArea1:   profile.AdministrativeArea,
		AdminArea2:   profile.Locality,
		PostalCode:   profile.PostalCode,
		CountryCode:  profile.CountryCode,
	}
}

// trim renders a decimal in the currency's canonical minor-unit form.
func trim(d decimal.Decimal, currencyCode string) string {
	return models.NewPriceFromDecimal(d, currencyCode).Format()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
