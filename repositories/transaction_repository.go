package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
)

type TransactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Client) *TransactionRepository {
	return &TransactionRepository{
		collection: config.GetCollection(db, "transactions"),
	}
}

func (r *TransactionRepository) Insert(ctx context.Context, txn *models.Transaction) error {
	now := time.Now()
	txn.ID = primitive.NewObjectID()
	txn.Status = models.TransactionCreated
	txn.CreatedAt = now
	txn.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, txn)
	return err
}

func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// MarkPaid flips a transaction from created to paid and records the gateway
// payment id. The status filter makes this a compare-and-swap: when several
// verify calls race, exactly one gets the updated document back and everyone
// else gets mongo.ErrNoDocuments.
func (r *TransactionRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, gatewayPaymentID string) (*models.Transaction, error) {
	filter := bson.M{"_id": id, "status": models.TransactionCreated}
	update := bson.M{
		"$set": bson.M{
			"status":           models.TransactionPaid,
			"gatewayPaymentId": gatewayPaymentID,
			"updatedAt":        time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var txn models.Transaction
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// MarkFailed flips a transaction from created to failed. Same conditional
// update as MarkPaid; a transaction already in a terminal state is untouched.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	filter := bson.M{"_id": id, "status": models.TransactionCreated}
	update := bson.M{
		"$set": bson.M{
			"status":    models.TransactionFailed,
			"updatedAt": time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var txn models.Transaction
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
