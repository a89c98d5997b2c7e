package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
)

const ebookCacheTTL = 5 * time.Minute

type EbookController struct {
	db *mongo.Client
}

func NewEbookController(db *mongo.Client) *EbookController {
	return &EbookController{db: db}
}

// GetEbooks lists the catalog, optionally filtered by status, with a short
// Redis cache in front of Mongo
func (ec *EbookController) GetEbooks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := c.QueryParam("status")
	cacheKey := "ebooks:" + status

	if redisClient := config.GetRedisClient(); redisClient != nil {
		if cached, err := redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var ebooks []models.Ebook
			if err := json.Unmarshal([]byte(cached), &ebooks); err == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Ebooks retrieved successfully",
					Data:    ebooks,
				})
			}
		}
	}

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := config.GetCollection(ec.db, "ebooks").Find(ctx, filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch ebooks",
		})
	}
	defer cursor.Close(ctx)

	ebooks := []models.Ebook{}
	if err := cursor.All(ctx, &ebooks); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode ebooks",
		})
	}

	if redisClient := config.GetRedisClient(); redisClient != nil {
		if data, err := json.Marshal(ebooks); err == nil {
			if err := redisClient.Set(ctx, cacheKey, data, ebookCacheTTL).Err(); err != nil {
				log.Printf("Failed to cache ebooks: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Ebooks retrieved successfully",
		Data:    ebooks,
	})
}

// CreateEbook adds a new ebook to the catalog (admin only)
func (ec *EbookController) CreateEbook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateEbookRequest
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

	ebook := models.Ebook{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Cover:       req.Cover,
		Price:       req.Price,
		Status:      req.Status,
		ReleaseDate: req.ReleaseDate,
		CreatedAt:   time.Now(),
	}

	_, err := config.GetCollection(ec.db, "ebooks").InsertOne(ctx, ebook)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create ebook",
		})
	}

	ec.invalidateCache(ctx, req.Status)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Ebook created successfully",
		Data:    ebook,
	})
}

// RegisterUpcoming records an email signup for an unreleased ebook
func (ec *EbookController) RegisterUpcoming(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ebookObjID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid ebook ID format",
		})
	}

	var req models.RegisterUpcomingRequest
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

	// The ebook must exist and still be upcoming
	var ebook models.Ebook
	err = config.GetCollection(ec.db, "ebooks").FindOne(ctx, bson.M{"_id": ebookObjID}).Decode(&ebook)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Ebook not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch ebook",
		})
	}
	if ebook.Status != models.EbookUpcoming {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Ebook is already available",
		})
	}

	registration := models.UpcomingRegistration{
		ID:        primitive.NewObjectID(),
		EbookID:   ebookObjID,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}

	_, err = config.GetCollection(ec.db, "upcomingRegistrations").InsertOne(ctx, registration)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to register",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Registered for release notification",
		Data:    registration,
	})
}

// GetUpcomingRegistrations lists signups for an ebook (admin only)
func (ec *EbookController) GetUpcomingRegistrations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ebookObjID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid ebook ID format",
		})
	}

	cursor, err := config.GetCollection(ec.db, "upcomingRegistrations").Find(ctx, bson.M{"ebookId": ebookObjID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch registrations",
		})
	}
	defer cursor.Close(ctx)

	registrations := []models.UpcomingRegistration{}
	if err := cursor.All(ctx, &registrations); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode registrations",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Registrations retrieved successfully",
		Data:    registrations,
	})
}

func (ec *EbookController) invalidateCache(ctx context.Context, status string) {
	redisClient := config.GetRedisClient()
	if redisClient == nil {
		return
	}
	keys := []string{"ebooks:", "ebooks:" + status}
	if err := redisClient.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to invalidate ebook cache: %v", err)
	}
}
