package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionStatus is the lifecycle state of a purchase attempt.
// Transitions are monotonic: created -> paid or created -> failed.
type TransactionStatus string

const (
	TransactionCreated TransactionStatus = "created"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction is the durable record of one purchase attempt and its outcome.
// AffiliateID and CommissionRate are frozen at creation; only Status and
// GatewayPaymentID mutate afterwards.
type Transaction struct {
	ID               primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID           primitive.ObjectID  `json:"userId" bson:"userId"`
	EbookID          primitive.ObjectID  `json:"ebookId" bson:"ebookId"`
	AffiliateID      *primitive.ObjectID `json:"affiliateId,omitempty" bson:"affiliateId,omitempty"`
	Amount           float64             `json:"amount" bson:"amount"`
	Currency         string              `json:"currency" bson:"currency"`
	Status           TransactionStatus   `json:"status" bson:"status"`
	GatewayOrderID   string              `json:"gatewayOrderId" bson:"gatewayOrderId"`
	GatewayPaymentID string              `json:"gatewayPaymentId,omitempty" bson:"gatewayPaymentId,omitempty"`
	CommissionRate   float64             `json:"commissionRate" bson:"commissionRate"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CreateOrderRequest is the body of POST /api/payments/create-order
type CreateOrderRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency,omitempty"`
	EbookID       string  `json:"ebookId" validate:"required"`
	AffiliateCode string  `json:"affiliateCode,omitempty"`
}

// VerifyPaymentRequest is the body of POST /api/payments/verify
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
	OrderID          string `json:"orderId" validate:"required"`
}
