package models

// RazorpayOrderRequest is the payload sent to the Razorpay orders API.
// Amount is in the currency's smallest unit (paise for INR).
type RazorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// RazorpayOrder is the order handle returned by the gateway and rendered to
// the client so it can open the checkout flow.
type RazorpayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status,omitempty"`
}

// RazorpayError is the error envelope the gateway returns on non-2xx responses.
type RazorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
