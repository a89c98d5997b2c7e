package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
	"github.com/lifeofadot/ebookstore_backend/utils"
)

// fakeTransactionStore reproduces the repository contract in memory: MarkPaid
// and MarkFailed only match transactions still in created state and return
// mongo.ErrNoDocuments otherwise.
type fakeTransactionStore struct {
	mu        sync.Mutex
	txns      map[primitive.ObjectID]*models.Transaction
	insertErr error
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{txns: make(map[primitive.ObjectID]*models.Transaction)}
}

func (s *fakeTransactionStore) Insert(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	txn.ID = primitive.NewObjectID()
	txn.Status = models.TransactionCreated
	cp := *txn
	s.txns[txn.ID] = &cp
	return nil
}

func (s *fakeTransactionStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *txn
	return &cp, nil
}

func (s *fakeTransactionStore) MarkPaid(_ context.Context, id primitive.ObjectID, gatewayPaymentID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok || txn.Status != models.TransactionCreated {
		return nil, mongo.ErrNoDocuments
	}
	txn.Status = models.TransactionPaid
	txn.GatewayPaymentID = gatewayPaymentID
	cp := *txn
	return &cp, nil
}

func (s *fakeTransactionStore) MarkFailed(_ context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok || txn.Status != models.TransactionCreated {
		return nil, mongo.ErrNoDocuments
	}
	txn.Status = models.TransactionFailed
	cp := *txn
	return &cp, nil
}

func (s *fakeTransactionStore) get(id primitive.ObjectID) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.txns[id]
	return &cp
}

type fakeAffiliateStore struct {
	mu         sync.Mutex
	affiliates map[primitive.ObjectID]*models.Affiliate
	applyErr   error
	applyCalls int
}

func newFakeAffiliateStore() *fakeAffiliateStore {
	return &fakeAffiliateStore{affiliates: make(map[primitive.ObjectID]*models.Affiliate)}
}

func (s *fakeAffiliateStore) ResolveCode(_ context.Context, code string) (*models.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.affiliates {
		if a.ReferralCode == code && a.Active {
			cp := *a
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *fakeAffiliateStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.affiliates[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAffiliateStore) ApplySale(_ context.Context, id primitive.ObjectID, revenue, commission float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++
	if s.applyErr != nil {
		return s.applyErr
	}
	a, ok := s.affiliates[id]
	if !ok {
		return fmt.Errorf("affiliate %s not found", id.Hex())
	}
	a.SalesCount++
	a.TotalRevenue += revenue
	a.TotalCommission += commission
	return nil
}

func (s *fakeAffiliateStore) add(a *models.Affiliate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.affiliates[a.ID] = &cp
}

func (s *fakeAffiliateStore) get(id primitive.ObjectID) *models.Affiliate {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.affiliates[id]
	return &cp
}

func (s *fakeAffiliateStore) setRate(id primitive.ObjectID, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.affiliates[id].CommissionRate = rate
}

type fakeGateway struct {
	mu     sync.Mutex
	err    error
	orders int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*models.RazorpayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.orders++
	return &models.RazorpayOrder{
		ID:       fmt.Sprintf("order_%06d", g.orders),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func testConfig() config.PaymentConfig {
	return config.PaymentConfig{
		KeyID:                 "rzp_test_key",
		KeySecret:             "rzp_test_secret",
		WebhookSecret:         "rzp_test_secret",
		DefaultCommissionRate: 0.3,
		SupportedCurrencies:   []string{"INR"},
	}
}

type paymentFixture struct {
	svc        *PaymentService
	txns       *fakeTransactionStore
	affiliates *fakeAffiliateStore
	gateway    *fakeGateway
	cfg        config.PaymentConfig
}

func newPaymentFixture() *paymentFixture {
	cfg := testConfig()
	txns := newFakeTransactionStore()
	affiliates := newFakeAffiliateStore()
	gateway := &fakeGateway{}
	return &paymentFixture{
		svc:        NewPaymentService(cfg, txns, affiliates, gateway),
		txns:       txns,
		affiliates: affiliates,
		gateway:    gateway,
		cfg:        cfg,
	}
}

func (f *paymentFixture) addAffiliate(code string, rate float64) *models.Affiliate {
	a := &models.Affiliate{
		ID:             primitive.NewObjectID(),
		Name:           "Snow",
		Email:          "snow@example.com",
		ReferralCode:   code,
		Active:         true,
		CommissionRate: rate,
	}
	f.affiliates.add(a)
	return a
}

func (f *paymentFixture) createOrder(t *testing.T, amount float64, code string) *models.Transaction {
	t.Helper()
	result, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        primitive.NewObjectID(),
		EbookID:       primitive.NewObjectID(),
		Amount:        amount,
		AffiliateCode: code,
	})
	require.NoError(t, err)
	return result.Transaction
}

func (f *paymentFixture) sign(gatewayOrderID, gatewayPaymentID string) string {
	return utils.PaymentSignature(gatewayOrderID, gatewayPaymentID, f.cfg.WebhookSecret)
}

func (f *paymentFixture) verifyInput(txn *models.Transaction, paymentID string) VerifyInput {
	return VerifyInput{
		OrderID:          txn.ID,
		GatewayOrderID:   txn.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        f.sign(txn.GatewayOrderID, paymentID),
	}
}

func TestCreateOrderWithAffiliate(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.25)

	result, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        primitive.NewObjectID(),
		EbookID:       primitive.NewObjectID(),
		Amount:        499,
		Currency:      "INR",
		AffiliateCode: "AFF-SNOW01",
	})
	require.NoError(t, err)

	txn := result.Transaction
	assert.Equal(t, models.TransactionCreated, txn.Status)
	require.NotNil(t, txn.AffiliateID)
	assert.Equal(t, affiliate.ID, *txn.AffiliateID)
	assert.Equal(t, 0.25, txn.CommissionRate)
	assert.Equal(t, result.GatewayOrder.ID, txn.GatewayOrderID)
	assert.Equal(t, int64(49900), result.GatewayOrder.Amount, "gateway amount should be in paise")
}

func TestCreateOrderWithoutAffiliate(t *testing.T) {
	f := newPaymentFixture()

	txn := f.createOrder(t, 1000, "")
	assert.Nil(t, txn.AffiliateID)
	assert.Equal(t, 0.3, txn.CommissionRate, "default rate should be snapshotted")
	assert.Equal(t, "INR", txn.Currency)
}

func TestCreateOrderInvalidAffiliateCode(t *testing.T) {
	f := newPaymentFixture()
	f.addAffiliate("AFF-SNOW01", 0.25)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        primitive.NewObjectID(),
		EbookID:       primitive.NewObjectID(),
		Amount:        1000,
		AffiliateCode: "AFF-NOPE99",
	})
	assert.ErrorIs(t, err, ErrInvalidAffiliateCode)
	assert.Equal(t, 0, f.gateway.orders, "no gateway order for a rejected code")
}

func TestCreateOrderInactiveAffiliate(t *testing.T) {
	f := newPaymentFixture()
	a := f.addAffiliate("AFF-GONE00", 0.25)
	f.affiliates.mu.Lock()
	f.affiliates.affiliates[a.ID].Active = false
	f.affiliates.mu.Unlock()

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        primitive.NewObjectID(),
		EbookID:       primitive.NewObjectID(),
		Amount:        1000,
		AffiliateCode: "AFF-GONE00",
	})
	assert.ErrorIs(t, err, ErrInvalidAffiliateCode)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "USD"})
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestCreateOrderGatewayDown(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.err = errors.New("connection refused")

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:  primitive.NewObjectID(),
		EbookID: primitive.NewObjectID(),
		Amount:  1000,
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Empty(t, f.txns.txns, "no transaction persists when the gateway call fails")
}

func TestVerifyAndSettleHappyPath(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")

	result, err := f.svc.VerifyAndSettle(context.Background(), f.verifyInput(txn, "pay_123"))
	require.NoError(t, err)

	assert.True(t, result.Settled)
	assert.Equal(t, models.TransactionPaid, result.Transaction.Status)
	assert.Equal(t, "pay_123", result.Transaction.GatewayPaymentID)
	require.NotNil(t, result.Affiliate)
	assert.Equal(t, 300.0, result.Commission)

	got := f.affiliates.get(affiliate.ID)
	assert.Equal(t, int64(1), got.SalesCount)
	assert.Equal(t, 1000.0, got.TotalRevenue)
	assert.Equal(t, 300.0, got.TotalCommission)
}

func TestVerifyIsIdempotent(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")
	input := f.verifyInput(txn, "pay_123")

	first, err := f.svc.VerifyAndSettle(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, first.Settled)

	second, err := f.svc.VerifyAndSettle(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, second.Settled)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, models.TransactionPaid, second.Transaction.Status)

	got := f.affiliates.get(affiliate.ID)
	assert.Equal(t, int64(1), got.SalesCount, "duplicate verify must not re-settle")
	assert.Equal(t, 300.0, got.TotalCommission)
}

func TestVerifySignatureGate(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")

	input := f.verifyInput(txn, "pay_123")
	input.Signature = "deadbeef"

	_, err := f.svc.VerifyAndSettle(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	got := f.txns.get(txn.ID)
	assert.Equal(t, models.TransactionCreated, got.Status)
	assert.Empty(t, got.GatewayPaymentID)
	assert.Equal(t, int64(0), f.affiliates.get(affiliate.ID).SalesCount)
}

func TestVerifyRejectsMismatchedGatewayOrder(t *testing.T) {
	f := newPaymentFixture()
	txn := f.createOrder(t, 1000, "")
	other := f.createOrder(t, 1000, "")

	// A signature valid for another order must not finalize this one
	input := VerifyInput{
		OrderID:          txn.ID,
		GatewayOrderID:   other.GatewayOrderID,
		GatewayPaymentID: "pay_123",
		Signature:        f.sign(other.GatewayOrderID, "pay_123"),
	}

	_, err := f.svc.VerifyAndSettle(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, models.TransactionCreated, f.txns.get(txn.ID).Status)
}

func TestVerifyUnknownOrder(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.VerifyAndSettle(context.Background(), VerifyInput{
		OrderID:          primitive.NewObjectID(),
		GatewayOrderID:   "order_000001",
		GatewayPaymentID: "pay_123",
		Signature:        f.sign("order_000001", "pay_123"),
	})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerifyAlreadyFailed(t *testing.T) {
	f := newPaymentFixture()
	txn := f.createOrder(t, 1000, "")

	_, err := f.svc.MarkOrderFailed(context.Background(), txn.ID)
	require.NoError(t, err)

	_, err = f.svc.VerifyAndSettle(context.Background(), f.verifyInput(txn, "pay_123"))
	assert.ErrorIs(t, err, ErrTransactionAlreadyFailed)
	assert.Equal(t, models.TransactionFailed, f.txns.get(txn.ID).Status)
}

func TestVerifyNoAttributionNoSettlement(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "")

	result, err := f.svc.VerifyAndSettle(context.Background(), f.verifyInput(txn, "pay_123"))
	require.NoError(t, err)

	assert.True(t, result.Settled)
	assert.Nil(t, result.Affiliate)
	assert.Equal(t, 0, f.affiliates.applyCalls)
	assert.Equal(t, int64(0), f.affiliates.get(affiliate.ID).SalesCount)
}

func TestVerifySucceedsWhenSettlementFails(t *testing.T) {
	f := newPaymentFixture()
	f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")
	f.affiliates.applyErr = errors.New("ledger write failed")

	result, err := f.svc.VerifyAndSettle(context.Background(), f.verifyInput(txn, "pay_123"))
	require.NoError(t, err, "payment success is final regardless of bookkeeping failure")

	assert.True(t, result.Settled)
	assert.Nil(t, result.Affiliate)
	assert.Equal(t, models.TransactionPaid, f.txns.get(txn.ID).Status)
}

func TestRateFrozenAtCreation(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")

	// A later rate change must not alter the settlement of this sale
	f.affiliates.setRate(affiliate.ID, 0.9)

	result, err := f.svc.VerifyAndSettle(context.Background(), f.verifyInput(txn, "pay_123"))
	require.NoError(t, err)

	assert.Equal(t, 0.3, result.Transaction.CommissionRate)
	assert.Equal(t, 300.0, result.Commission)
	assert.Equal(t, 300.0, f.affiliates.get(affiliate.ID).TotalCommission)
}

func TestConcurrentVerifySameOrderSettlesOnce(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.3)
	txn := f.createOrder(t, 1000, "AFF-SNOW01")
	input := f.verifyInput(txn, "pay_123")

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	settledCount := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.VerifyAndSettle(context.Background(), input)
			if err != nil {
				return
			}
			mu.Lock()
			if result.Settled {
				settledCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settledCount, "exactly one call wins the created->paid transition")
	got := f.affiliates.get(affiliate.ID)
	assert.Equal(t, int64(1), got.SalesCount)
	assert.Equal(t, 300.0, got.TotalCommission)
}

func TestConcurrentSettlementsDistinctOrders(t *testing.T) {
	f := newPaymentFixture()
	affiliate := f.addAffiliate("AFF-SNOW01", 0.1)

	const n = 16
	inputs := make([]VerifyInput, 0, n)
	for i := 0; i < n; i++ {
		txn := f.createOrder(t, 100, "AFF-SNOW01")
		inputs = append(inputs, f.verifyInput(txn, fmt.Sprintf("pay_%03d", i)))
	}

	var wg sync.WaitGroup
	for _, input := range inputs {
		wg.Add(1)
		go func(in VerifyInput) {
			defer wg.Done()
			_, err := f.svc.VerifyAndSettle(context.Background(), in)
			assert.NoError(t, err)
		}(input)
	}
	wg.Wait()

	got := f.affiliates.get(affiliate.ID)
	assert.Equal(t, int64(n), got.SalesCount, "no settlement may be lost under concurrency")
	assert.InDelta(t, float64(n)*100, got.TotalRevenue, 1e-9)
	assert.InDelta(t, float64(n)*10, got.TotalCommission, 1e-9)
}

func TestMarkOrderFailed(t *testing.T) {
	f := newPaymentFixture()
	txn := f.createOrder(t, 1000, "")

	failed, err := f.svc.MarkOrderFailed(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, failed.Status)

	// Idempotent for an already failed transaction
	again, err := f.svc.MarkOrderFailed(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, again.Status)

	// A paid transaction never becomes failed
	paidTxn := f.createOrder(t, 1000, "")
	_, err = f.svc.VerifyAndSettle(context.Background(), f.verifyInput(paidTxn, "pay_777"))
	require.NoError(t, err)

	_, err = f.svc.MarkOrderFailed(context.Background(), paidTxn.ID)
	assert.ErrorIs(t, err, ErrTransactionAlreadyPaid)
	assert.Equal(t, models.TransactionPaid, f.txns.get(paidTxn.ID).Status)

	_, err = f.svc.MarkOrderFailed(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
