package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
	"github.com/lifeofadot/ebookstore_backend/utils"
)

// TransactionStore is the slice of the transaction repository the payment
// workflow needs. MarkPaid and MarkFailed are conditional updates that only
// match a transaction still in created state and return mongo.ErrNoDocuments
// otherwise.
type TransactionStore interface {
	Insert(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, gatewayPaymentID string) (*models.Transaction, error)
	MarkFailed(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
}

// AffiliateStore is the slice of the affiliate repository the payment
// workflow needs. ApplySale must increment the aggregates atomically.
type AffiliateStore interface {
	ResolveCode(ctx context.Context, code string) (*models.Affiliate, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliate, error)
	ApplySale(ctx context.Context, id primitive.ObjectID, revenue, commission float64) error
}

// OrderGateway opens orders with the payment gateway.
type OrderGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*models.RazorpayOrder, error)
}

// PaymentService orchestrates order creation, callback verification, the
// transaction state machine and commission settlement.
type PaymentService struct {
	cfg          config.PaymentConfig
	transactions TransactionStore
	affiliates   AffiliateStore
	gateway      OrderGateway
}

func NewPaymentService(cfg config.PaymentConfig, transactions TransactionStore, affiliates AffiliateStore, gateway OrderGateway) *PaymentService {
	return &PaymentService{
		cfg:          cfg,
		transactions: transactions,
		affiliates:   affiliates,
		gateway:      gateway,
	}
}

// CreateOrderInput carries one order request into the service.
type CreateOrderInput struct {
	UserID        primitive.ObjectID
	EbookID       primitive.ObjectID
	Amount        float64
	Currency      string
	AffiliateCode string
}

// CreateOrderResult pairs the gateway order handle with the pending
// transaction; the controller renders both to the client.
type CreateOrderResult struct {
	GatewayOrder *models.RazorpayOrder
	Transaction  *models.Transaction
}

// CreateOrder resolves the affiliate, opens a gateway order and persists a
// pending transaction. The gateway order is created first: a gateway order
// without a transaction is harmless (it can never be marked paid), but a
// transaction pointing at a nonexistent gateway order must never exist.
func (s *PaymentService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := input.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency()
	}
	if !s.cfg.SupportsCurrency(currency) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	affiliate, err := s.resolveAffiliate(ctx, input.AffiliateCode)
	if err != nil {
		return nil, err
	}

	// Amount is rupees at the API, paise at the gateway
	receipt := "rcpt_" + uuid.NewString()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, int64(input.Amount*100), currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	txn := &models.Transaction{
		UserID:         input.UserID,
		EbookID:        input.EbookID,
		Amount:         input.Amount,
		Currency:       currency,
		GatewayOrderID: gatewayOrder.ID,
		CommissionRate: s.cfg.DefaultCommissionRate,
	}
	if affiliate != nil {
		txn.AffiliateID = &affiliate.ID
		// Snapshot the rate so later rate changes never alter this sale
		txn.CommissionRate = affiliate.CommissionRate
	}

	if err := s.transactions.Insert(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction for gateway order %s: %w", gatewayOrder.ID, err)
	}

	return &CreateOrderResult{GatewayOrder: gatewayOrder, Transaction: txn}, nil
}

// resolveAffiliate distinguishes "no code supplied" (allowed, no attribution)
// from "code supplied but unknown or inactive" (client error).
func (s *PaymentService) resolveAffiliate(ctx context.Context, code string) (*models.Affiliate, error) {
	if code == "" {
		return nil, nil
	}

	affiliate, err := s.affiliates.ResolveCode(ctx, code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAffiliateCode, code)
		}
		return nil, fmt.Errorf("failed to resolve affiliate code: %w", err)
	}
	return affiliate, nil
}

// VerifyInput carries one payment callback into the service.
type VerifyInput struct {
	OrderID          primitive.ObjectID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyResult reports the transaction after verification. Settled is true
// only for the call that actually performed the created->paid transition;
// retries and duplicates see Settled=false with the same transaction.
type VerifyResult struct {
	Transaction *models.Transaction
	Settled     bool
	Affiliate   *models.Affiliate
	Commission  float64
}

// VerifyAndSettle authenticates a gateway payment callback, finalizes the
// transaction exactly once and credits the affiliate's aggregates for the
// winning call. The signature is checked before any state is touched.
func (s *PaymentService) VerifyAndSettle(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	if !utils.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature, s.cfg.WebhookSecret) {
		return nil, ErrInvalidSignature
	}

	txn, err := s.transactions.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}

	// A valid signature over some other order must not finalize this one
	if txn.GatewayOrderID != input.GatewayOrderID {
		return nil, ErrInvalidSignature
	}

	switch txn.Status {
	case models.TransactionPaid:
		// Duplicate or retry: return the record as-is, never re-settle
		return &VerifyResult{Transaction: txn}, nil
	case models.TransactionFailed:
		return nil, ErrTransactionAlreadyFailed
	}

	paid, err := s.transactions.MarkPaid(ctx, txn.ID, input.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Lost the race: someone else finalized it between our read
			// and the conditional update
			return s.afterLostRace(ctx, txn.ID)
		}
		return nil, fmt.Errorf("failed to mark transaction paid: %w", err)
	}

	result := &VerifyResult{Transaction: paid, Settled: true}

	// Only the transition winner settles, and only with attribution
	if paid.AffiliateID != nil {
		affiliate, commission, err := s.settle(ctx, paid)
		if err != nil {
			// The sale is final regardless of ledger bookkeeping
			// failure; settlement is reconciled out-of-band
			log.Printf("Settlement error for transaction %s: %v", paid.ID.Hex(), err)
		} else {
			result.Affiliate = affiliate
			result.Commission = commission
		}
	}

	return result, nil
}

// afterLostRace re-reads a transaction that was concurrently finalized and
// maps its terminal state to the idempotent verify outcome.
func (s *PaymentService) afterLostRace(ctx context.Context, id primitive.ObjectID) (*VerifyResult, error) {
	txn, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to re-fetch transaction: %w", err)
	}

	if txn.Status == models.TransactionFailed {
		return nil, ErrTransactionAlreadyFailed
	}
	return &VerifyResult{Transaction: txn}, nil
}

// settle credits one sale to the attributed affiliate using the rate frozen
// on the transaction at creation time.
func (s *PaymentService) settle(ctx context.Context, txn *models.Transaction) (*models.Affiliate, float64, error) {
	commission := txn.Amount * txn.CommissionRate

	if err := s.affiliates.ApplySale(ctx, *txn.AffiliateID, txn.Amount, commission); err != nil {
		return nil, 0, fmt.Errorf("failed to apply sale to affiliate %s: %w", txn.AffiliateID.Hex(), err)
	}

	affiliate, err := s.affiliates.FindByID(ctx, *txn.AffiliateID)
	if err != nil {
		// The increment went through; only the notification lookup failed
		log.Printf("Failed to load affiliate %s after settlement: %v", txn.AffiliateID.Hex(), err)
		return nil, commission, nil
	}

	return affiliate, commission, nil
}

// MarkOrderFailed records a checkout the client reported as failed or
// abandoned. Idempotent for already-failed transactions; a paid transaction
// stays paid.
func (s *PaymentService) MarkOrderFailed(ctx context.Context, orderID primitive.ObjectID) (*models.Transaction, error) {
	failed, err := s.transactions.MarkFailed(ctx, orderID)
	if err == nil {
		return failed, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	txn, err := s.transactions.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}

	if txn.Status == models.TransactionPaid {
		return nil, ErrTransactionAlreadyPaid
	}
	return txn, nil
}
