package paypal

import "net/url"

const jsSDKBaseURL = "https://www.paypal.com/sdk/js"

// SolutionVariant selects how the browser widget is rendered. The variant is
// resolved once at configuration time, not per request.
type SolutionVariant string

const (
	SolutionSmartButtons SolutionVariant = "smart_buttons"
	SolutionHostedFields SolutionVariant = "hosted_fields"
	SolutionRedirect     SolutionVariant = "redirect"
)

// ParseSolutionVariant maps a configured string to a variant, defaulting to
// smart buttons.
func ParseSolutionVariant(s string) SolutionVariant {
	switch SolutionVariant(s) {
	case SolutionHostedFields:
		return SolutionHostedFields
	case SolutionRedirect:
		return SolutionRedirect
	default:
		return SolutionSmartButtons
	}
}

// NeedsClientToken reports whether the variant requires a client token from
// the identity API (only hosted fields do).
func (v SolutionVariant) NeedsClientToken() bool {
	return v == SolutionHostedFields
}

// JSSDKURL builds the PayPal JS SDK script URL for the variant.
func (v SolutionVariant) JSSDKURL(cfg Config, currencyCode string, commit bool) string {
	query := url.Values{}
	query.Set("client-id", cfg.ClientID)
	query.Set("intent", cfg.Intent)
	switch v {
	case SolutionHostedFields:
		query.Set("components", "hosted-fields")
		query.Set("currency", currencyCode)
	default:
		if commit {
			query.Set("commit", "true")
		} else {
			query.Set("commit", "false")
		}
	}
	return jsSDKBaseURL + "?" + query.Encode()
}
