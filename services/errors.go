package services

import "errors"

// Sentinel errors surfaced by the payment workflow. Controllers map these to
// HTTP status codes with errors.Is.
var (
	// ErrInvalidAmount is returned when an order is requested for a
	// non-positive amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrUnsupportedCurrency is returned for a currency outside the
	// configured list.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrInvalidAffiliateCode is returned when a referral code was supplied
	// but matches no active affiliate. An absent code is not an error.
	ErrInvalidAffiliateCode = errors.New("invalid affiliate code")

	// ErrGatewayUnavailable is returned when the payment gateway call
	// errored or timed out; no transaction is persisted in that case.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvalidSignature is returned when the callback signature does not
	// authenticate the gateway order/payment pair. Nothing is mutated.
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrTransactionNotFound is returned for an unknown order id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionAlreadyFailed is returned when verification is
	// attempted on a terminally failed transaction.
	ErrTransactionAlreadyFailed = errors.New("transaction already failed")

	// ErrTransactionAlreadyPaid is returned when a paid transaction is
	// asked to transition to failed.
	ErrTransactionAlreadyPaid = errors.New("transaction already paid")
)
