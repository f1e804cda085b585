package mailer

import (
	"github.com/silicity/silicity-server/pkg/logger"
)

// DevMailer logs outbound mail instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationEmail(toEmail, toName, verifyURL, code string) error {
	logger.Info("[DEV MAIL] verification email",
		"to", toEmail,
		"name", toName,
		"verify_url", verifyURL,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, resetURL string, expiryMinutes int) error {
	logger.Info("[DEV MAIL] password reset email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
		"expiry_minutes", expiryMinutes,
	)
	return nil
}

func (d *DevMailer) SendPasswordChangedNotice(toEmail, toName string) error {
	logger.Info("[DEV MAIL] password changed notice",
		"to", toEmail,
		"name", toName,
	)
	return nil
}
