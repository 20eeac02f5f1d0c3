package services

import "paypal-checkout-service/models"

// paymentStateMap is the only way a payment reaches a local state from a
// remote one. A missing entry is an error, never a fallback state.
var paymentStateMap = map[string]map[string]models.PaymentState{
	"authorize": {
		"created": models.PaymentStateAuthorization,
		"voided":  models.PaymentStateAuthVoided,
		"expired": models.PaymentStateAuthExpired,
	},
	"capture": {
		"completed":          models.PaymentStateCompleted,
		"partially_refunded": models.PaymentStatePartiallyRefunded,
	},
}

// hardDeclineStates are terminal processor rejections. They take priority
// over the mapping table so callers can prompt for a different payment
// method instead of reporting a generic failure.
var hardDeclineStates = map[string]bool{
	"denied":   true,
	"expired":  true,
	"declined": true,
}

// mapPaymentState resolves (intent, remote status) to a local payment state.
func mapPaymentState(intent, remoteState string) (models.PaymentState, bool) {
	state, ok := paymentStateMap[intent][remoteState]
	return state, ok
}
