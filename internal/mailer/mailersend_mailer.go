package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendVerificationEmail(toEmail, toName, verifyURL, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Confirm your Silicity email"
	html := fmt.Sprintf(`
		<h2>Welcome to Silicity!</h2>
		<p>Hi %s,</p>
		<p>Please confirm your email address by clicking the link below:</p>
		<p><a href="%s" style="background-color: #4F46E5; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Confirm Email</a></p>
		<p>Or enter this verification code: <strong>%s</strong></p>
		<p>The code expires in 15 minutes.</p>
		<p>If you didn't create an account with us, please ignore this email.</p>
	`, toName, verifyURL, code)

	text := fmt.Sprintf("Please confirm your email by clicking this link: %s\n\nOr enter this verification code: %s", verifyURL, code)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, toName, resetURL string, expiryMinutes int) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Reset your Silicity password"
	html := fmt.Sprintf(`
		<h2>Password Reset Requested</h2>
		<p>Hi %s,</p>
		<p>Click the link below to choose a new password:</p>
		<p><a href="%s" style="background-color: #4F46E5; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
		<p>This link expires in %d minutes and can only be used once.</p>
		<p>If you didn't request a reset, you can safely ignore this email.</p>
	`, toName, resetURL, expiryMinutes)

	text := fmt.Sprintf("Reset your password using this link: %s\n\nIt expires in %d minutes.", resetURL, expiryMinutes)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendPasswordChangedNotice(toEmail, toName string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your Silicity password was changed"
	html := fmt.Sprintf(`
		<h2>Password Updated</h2>
		<p>Hi %s,</p>
		<p>Your password has been changed successfully.</p>
		<p>If you did not make this change, contact support immediately.</p>
	`, toName)

	text := "Your password has been changed successfully. If you did not make this change, contact support immediately."

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
