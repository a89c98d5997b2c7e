package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
	"github.com/lifeofadot/ebookstore_backend/services"
	"github.com/lifeofadot/ebookstore_backend/utils"
)

type PaymentController struct {
	db             *mongo.Client
	cfg            config.PaymentConfig
	paymentService *services.PaymentService
}

func NewPaymentController(db *mongo.Client, cfg config.PaymentConfig, paymentService *services.PaymentService) *PaymentController {
	return &PaymentController{
		db:             db,
		cfg:            cfg,
		paymentService: paymentService,
	}
}

// GetKey returns the public gateway key id the checkout widget needs
func (pc *PaymentController) GetKey(c echo.Context) error {
	if pc.cfg.KeyID == "" {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Payment gateway is not configured",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"key": pc.cfg.KeyID})
}

// CreateOrder opens a gateway order and records the pending transaction
func (pc *PaymentController) CreateOrder(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()

	userID, ok := c.Get("userId").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID format",
		})
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	ebookObjID, err := primitive.ObjectIDFromHex(req.EbookID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid ebook ID format",
		})
	}

	result, err := pc.paymentService.CreateOrder(ctx, services.CreateOrderInput{
		UserID:        userObjID,
		EbookID:       ebookObjID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		AffiliateCode: req.AffiliateCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount),
			errors.Is(err, services.ErrUnsupportedCurrency),
			errors.Is(err, services.ErrInvalidAffiliateCode):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: err.Error(),
			})
		case errors.Is(err, services.ErrGatewayUnavailable):
			log.Printf("Create order error: %v", err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Payment gateway unavailable",
			})
		default:
			log.Printf("Create order error: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to create order",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"gatewayOrder": result.GatewayOrder,
		"order":        result.Transaction,
	})
}

// VerifyPayment authenticates the gateway callback, finalizes the transaction
// and settles the affiliate commission exactly once
func (pc *PaymentController) VerifyPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	orderObjID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID format",
		})
	}

	result, err := pc.paymentService.VerifyAndSettle(ctx, services.VerifyInput{
		OrderID:          orderObjID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid signature",
			})
		case errors.Is(err, services.ErrTransactionNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Transaction not found",
			})
		case errors.Is(err, services.ErrTransactionAlreadyFailed):
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Transaction already failed",
			})
		default:
			log.Printf("Verify payment error: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to verify payment",
			})
		}
	}

	// Notifications only for the call that performed the transition;
	// failures here never affect the payment outcome
	if result.Settled {
		pc.sendPaymentEmails(result)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Transaction,
	})
}

// MarkFailed records a checkout the client reports as failed or abandoned
func (pc *PaymentController) MarkFailed(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orderObjID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID format",
		})
	}

	txn, err := pc.paymentService.MarkOrderFailed(ctx, orderObjID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Transaction not found",
			})
		case errors.Is(err, services.ErrTransactionAlreadyPaid):
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Transaction already paid",
			})
		default:
			log.Printf("Mark failed error: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to update transaction",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

// sendPaymentEmails fires the affiliate commission notification and the ebook
// delivery email on goroutines after a successful settlement.
func (pc *PaymentController) sendPaymentEmails(result *services.VerifyResult) {
	txn := result.Transaction

	if result.Affiliate != nil && result.Affiliate.Email != "" {
		affiliate := result.Affiliate
		commission := result.Commission
		go func() {
			if err := utils.SendAffiliateSaleEmail(affiliate.Email, affiliate.Name, commission, txn.Currency, time.Now()); err != nil {
				log.Printf("Failed to send affiliate email: %v", err)
			}
		}()
	}

	buyerEmail, _ := pc.lookupBuyerEmail(txn)
	if buyerEmail == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ebook models.Ebook
	err := config.GetCollection(pc.db, "ebooks").FindOne(ctx, bson.M{"_id": txn.EbookID}).Decode(&ebook)
	if err != nil {
		log.Printf("Failed to load ebook %s for delivery: %v", txn.EbookID.Hex(), err)
		return
	}

	go func() {
		if err := utils.SendEbookEmail(buyerEmail, ebook.Title, ebook.FilePath); err != nil {
			log.Printf("Failed to send ebook email: %v", err)
		}
	}()
}

// lookupBuyerEmail asks the auth collaborator's users collection for the
// purchaser's email address.
func (pc *PaymentController) lookupBuyerEmail(txn *models.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user struct {
		Email string `bson:"email"`
	}
	err := config.GetCollection(pc.db, "users").FindOne(ctx, bson.M{"_id": txn.UserID}).Decode(&user)
	if err != nil {
		log.Printf("Failed to look up buyer %s: %v", txn.UserID.Hex(), err)
		return "", err
	}
	return user.Email, nil
}
