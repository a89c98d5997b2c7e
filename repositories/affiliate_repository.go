package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
)

type AffiliateRepository struct {
	collection *mongo.Collection
}

func NewAffiliateRepository(db *mongo.Client) *AffiliateRepository {
	return &AffiliateRepository{
		collection: config.GetCollection(db, "affiliates"),
	}
}

// ResolveCode looks up the active affiliate owning a referral code. Returns
// mongo.ErrNoDocuments when the code matches no active affiliate; deciding
// whether that is a client error is up to the caller.
func (r *AffiliateRepository) ResolveCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code, "active": true}).Decode(&affiliate)
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *AffiliateRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&affiliate)
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// ApplySale credits one settled sale to the affiliate's running aggregates.
// $inc happens server-side, so concurrent settlements for the same affiliate
// never lose updates to a stale read.
func (r *AffiliateRepository) ApplySale(ctx context.Context, id primitive.ObjectID, revenue, commission float64) error {
	update := bson.M{
		"$inc": bson.M{
			"salesCount":      1,
			"totalRevenue":    revenue,
			"totalCommission": commission,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("affiliate %s not found", id.Hex())
	}
	return nil
}

func (r *AffiliateRepository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	now := time.Now()
	affiliate.ID = primitive.NewObjectID()
	affiliate.Active = true
	affiliate.CreatedAt = now
	affiliate.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, affiliate)
	return err
}
