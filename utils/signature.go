// utils/signature.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature computes the hex HMAC-SHA256 the gateway attaches to a
// successful checkout: the signing input is "<orderId>|<paymentId>".
func PaymentSignature(gatewayOrderID, gatewayPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks a callback signature in constant time. This is
// the sole trust boundary for marking a transaction paid: no state may change
// unless this returns true.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, providedSignature, secret string) bool {
	expected := PaymentSignature(gatewayOrderID, gatewayPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(providedSignature))
}
