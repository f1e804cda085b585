package mailer

// Service delivers outbound notifications. Apart from the initial
// verification send and the forgot-password send, callers treat delivery as
// fire-and-forget: failures are logged, not propagated.
type Service interface {
	SendVerificationEmail(toEmail, toName, verifyURL, code string) error
	SendPasswordResetEmail(toEmail, toName, resetURL string, expiryMinutes int) error
	SendPasswordChangedNotice(toEmail, toName string) error
}
