// config/payment.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// PaymentConfig carries the gateway credentials and commission policy. It is
// built once at startup and injected into the payment services so request
// paths never read the environment directly.
type PaymentConfig struct {
	KeyID                 string
	KeySecret             string
	WebhookSecret         string
	DefaultCommissionRate float64
	SupportedCurrencies   []string
}

// LoadPaymentConfig reads the payment configuration from environment variables.
func LoadPaymentConfig() PaymentConfig {
	cfg := PaymentConfig{
		KeyID:                 os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret:             os.Getenv("RAZORPAY_KEY_SECRET"),
		WebhookSecret:         os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		DefaultCommissionRate: 0.3,
		SupportedCurrencies:   []string{"INR"},
	}

	// The gateway signs callbacks with the key secret unless a dedicated
	// webhook secret is configured
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.KeySecret
	}

	if rateStr := os.Getenv("DEFAULT_COMMISSION_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate >= 0 && rate <= 1 {
			cfg.DefaultCommissionRate = rate
		} else {
			log.Printf("Warning: ignoring invalid DEFAULT_COMMISSION_RATE %q", rateStr)
		}
	}

	if currencies := os.Getenv("SUPPORTED_CURRENCIES"); currencies != "" {
		cfg.SupportedCurrencies = nil
		for _, cur := range strings.Split(currencies, ",") {
			cur = strings.ToUpper(strings.TrimSpace(cur))
			if cur != "" {
				cfg.SupportedCurrencies = append(cfg.SupportedCurrencies, cur)
			}
		}
	}

	if cfg.KeyID == "" || cfg.KeySecret == "" {
		log.Printf("WARNING: Razorpay credentials not fully configured:")
		if cfg.KeyID == "" {
			log.Printf("  - RAZORPAY_KEY_ID is missing")
		}
		if cfg.KeySecret == "" {
			log.Printf("  - RAZORPAY_KEY_SECRET is missing")
		}
		log.Printf("Please set these environment variables for the payment service to work")
	}

	return cfg
}

// DefaultCurrency returns the first supported currency.
func (c PaymentConfig) DefaultCurrency() string {
	if len(c.SupportedCurrencies) == 0 {
		return "INR"
	}
	return c.SupportedCurrencies[0]
}

// SupportsCurrency reports whether the given ISO code is accepted.
func (c PaymentConfig) SupportsCurrency(currency string) bool {
	for _, cur := range c.SupportedCurrencies {
		if cur == currency {
			return true
		}
	}
	return false
}
