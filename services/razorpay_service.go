package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/lifeofadot/ebookstore_backend/config"
	"github.com/lifeofadot/ebookstore_backend/models"
)

const razorpayBaseURL = "https://api.razorpay.com/v1/"

// RazorpayService handles interactions with the Razorpay orders API
type RazorpayService struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpayService creates a new Razorpay service instance
func NewRazorpayService(cfg config.PaymentConfig) *RazorpayService {
	baseURL := razorpayBaseURL
	if override := os.Getenv("RAZORPAY_BASE_URL"); override != "" {
		baseURL = override
	}

	return &RazorpayService{
		baseURL:   baseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest performs an HTTP request to the Razorpay API
func (s *RazorpayService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	url := s.baseURL + endpoint

	// Validate credentials
	if s.keyID == "" || s.keySecret == "" {
		return fmt.Errorf("missing Razorpay credentials. Please set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET environment variables")
	}

	// Create request body
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.keyID, s.keySecret)

	// Send request
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if os.Getenv("RAZORPAY_DEBUG") == "true" {
		log.Printf("Razorpay API %s %s -> %d: %s", method, endpoint, resp.StatusCode, string(respBody))
	}

	// Check if the request was successful
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr models.RazorpayError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay API error: %s - %s", apiErr.Error.Code, apiErr.Error.Description)
		}
		return fmt.Errorf("razorpay API error: status %d", resp.StatusCode)
	}

	// Parse response
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
		}
	}

	return nil
}

// CreateOrder opens a gateway order for the given amount in the currency's
// smallest unit (paise for INR) with a unique receipt token.
func (s *RazorpayService) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*models.RazorpayOrder, error) {
	payload := models.RazorpayOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}

	var order models.RazorpayOrder
	if err := s.makeRequest(ctx, http.MethodPost, "orders", payload, &order); err != nil {
		return nil, err
	}

	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order response missing order id")
	}

	return &order, nil
}
