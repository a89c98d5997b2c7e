package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Affiliate is a referral partner credited with a commission on attributed sales.
// The aggregate counters only ever increase, once per paid transaction.
type Affiliate struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Email           string             `json:"email" bson:"email"`
	ReferralCode    string             `json:"referralCode" bson:"referralCode"`
	Active          bool               `json:"active" bson:"active"`
	CommissionRate  float64            `json:"commissionRate" bson:"commissionRate"`
	SalesCount      int64              `json:"salesCount" bson:"salesCount"`
	TotalRevenue    float64            `json:"totalRevenue" bson:"totalRevenue"`
	TotalCommission float64            `json:"totalCommission" bson:"totalCommission"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateAffiliateRequest is the body of POST /api/affiliates
type CreateAffiliateRequest struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=1"`
}

// AffiliateStats is the read-only aggregate view returned to admins.
type AffiliateStats struct {
	ID              primitive.ObjectID `json:"id"`
	Name            string             `json:"name"`
	ReferralCode    string             `json:"referralCode"`
	Active          bool               `json:"active"`
	CommissionRate  float64            `json:"commissionRate"`
	SalesCount      int64              `json:"salesCount"`
	TotalRevenue    float64            `json:"totalRevenue"`
	TotalCommission float64            `json:"totalCommission"`
}
