// utils/email.go
package utils

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/gomail.v2"
)

func newDialer() (*gomail.Dialer, string, error) {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	if smtpHost == "" || smtpUser == "" {
		return nil, "", fmt.Errorf("SMTP is not configured (SMTP_HOST/SMTP_USER missing)")
	}

	return gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass), smtpUser, nil
}

// SendAffiliateSaleEmail notifies an affiliate about a commission they earned.
// Callers treat a failure as log-only; payment success never depends on email.
func SendAffiliateSaleEmail(affiliateEmail, affiliateName string, commission float64, currency string, saleTime time.Time) error {
	d, from, err := newDialer()
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", affiliateEmail)
	m.SetHeader("Subject", "You earned a commission!")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nA sale attributed to your referral code was just completed on %s.\nYour commission: %.2f %s.\n\nThank you for partnering with us!",
		affiliateName, saleTime.Format("Jan 2, 2006 15:04 MST"), commission, currency))

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send affiliate email: %w", err)
	}
	return nil
}

// SendEbookEmail delivers the purchased ebook as a PDF attachment.
func SendEbookEmail(buyerEmail, ebookTitle, pdfPath string) error {
	d, from, err := newDialer()
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", buyerEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your copy of %s", ebookTitle))
	m.SetBody("text/plain", fmt.Sprintf(
		"Thank you for your purchase!\n\nYour copy of %q is attached to this email.\nHappy reading!", ebookTitle))
	if pdfPath != "" {
		if _, err := os.Stat(pdfPath); err != nil {
			log.Printf("Ebook file missing, sending delivery email without attachment: %v", err)
		} else {
			m.Attach(pdfPath)
		}
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send ebook email: %w", err)
	}
	return nil
}
