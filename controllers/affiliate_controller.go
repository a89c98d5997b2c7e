package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/models"
	"github.com/lifeofadot/ebookstore_backend/repositories"
	"github.com/lifeofadot/ebookstore_backend/utils"
)

type AffiliateController struct {
	affiliateRepo *repositories.AffiliateRepository
}

func NewAffiliateController(affiliateRepo *repositories.AffiliateRepository) *AffiliateController {
	return &AffiliateController{affiliateRepo: affiliateRepo}
}

// CreateAffiliate registers a new affiliate with a generated referral code
func (ac *AffiliateController) CreateAffiliate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateAffiliateRequest
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

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	affiliate := models.Affiliate{
		Name:           req.Name,
		Email:          req.Email,
		ReferralCode:   referralCode,
		CommissionRate: req.CommissionRate,
	}

	if err := ac.affiliateRepo.Create(ctx, &affiliate); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Referral code collision, please retry",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create affiliate",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Affiliate created successfully",
		Data:    affiliate,
	})
}

// GetAffiliateStats returns the running aggregates for one affiliate
func (ac *AffiliateController) GetAffiliateStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	affiliateObjID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID format",
		})
	}

	affiliate, err := ac.affiliateRepo.FindByID(ctx, affiliateObjID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Affiliate not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch affiliate",
		})
	}

	stats := models.AffiliateStats{
		ID:              affiliate.ID,
		Name:            affiliate.Name,
		ReferralCode:    affiliate.ReferralCode,
		Active:          affiliate.Active,
		CommissionRate:  affiliate.CommissionRate,
		SalesCount:      affiliate.SalesCount,
		TotalRevenue:    affiliate.TotalRevenue,
		TotalCommission: affiliate.TotalCommission,
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Affiliate stats retrieved successfully",
		Data:    stats,
	})
}
