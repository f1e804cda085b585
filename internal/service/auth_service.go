package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/mailer"
	"github.com/silicity/silicity-server/internal/repository"
	"github.com/silicity/silicity-server/pkg/auth"
	"github.com/silicity/silicity-server/pkg/config"
	"github.com/silicity/silicity-server/pkg/events"
	"github.com/silicity/silicity-server/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (string, error)
	VerifyEmail(ctx context.Context, req *domain.VerifyRequest) (*domain.SessionResponse, error)
	ResendCode(ctx context.Context, email string) error
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.SessionResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
}

type authService struct {
	userRepo repository.UserRepository
	mailer   mailer.Service
	bus      events.Publisher
	cfg      *config.Config
}

func NewAuthService(
	userRepo repository.UserRepository,
	mailer mailer.Service,
	bus events.Publisher,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo: userRepo,
		mailer:   mailer,
		bus:      bus,
		cfg:      cfg,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", domain.Validation(err.Error())
	}

	// Admin accounts are never self-service.
	if req.Role == domain.RoleAdmin {
		return "", domain.Authorization("Not allowed")
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return "", domain.Conflict("This email is already registered")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	role := domain.RoleUser
	accountStatus := domain.StatusActive
	paymentStatus := domain.PaymentActive

	switch req.Role {
	case domain.RoleCompany, domain.RoleVC:
		// Early adopters: approved manually, first year free.
		role = req.Role
		accountStatus = domain.StatusPendingApproval
		paymentStatus = domain.PaymentFreeTrial
	case domain.RoleStudent, domain.RoleTalent:
		role = req.Role
		paymentStatus = domain.PaymentUnpaid
	}

	code, err := generateSixDigitCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	expires := time.Now().Add(s.cfg.Auth.VerificationTTL)

	user, err := s.userRepo.Create(ctx, &domain.User{
		Role:                role,
		Email:               req.Email,
		PasswordHash:        passwordHash,
		Name:                req.Name,
		Website:             req.Website,
		AccountStatus:       accountStatus,
		PaymentStatus:       paymentStatus,
		TermsAccepted:       req.TermsAccepted,
		VerificationCode:    code,
		VerificationExpires: &expires,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	// The initial verification send is the one delivery failure that is
	// surfaced: without the code the account is unusable.
	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, s.verificationURL(user.Email, code), code); err != nil {
		logger.ErrorContext(ctx, "failed to send verification email", "error", err, "user_id", user.ID)
		return "", fmt.Errorf("failed to send verification email: %w", err)
	}

	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		AccountStatus: user.AccountStatus,
		RegisteredAt:  user.CreatedAt,
	})

	if accountStatus == domain.StatusPendingApproval {
		s.publish(ctx, events.AdminAlert, events.AdminAlertEvent{
			Title: "Company registration pending approval",
			Body:  fmt.Sprintf("%s registered and requires manual approval.", user.Name),
			Details: map[string]string{
				"email":   user.Email,
				"role":    user.Role,
				"website": user.Website,
			},
		})
		return "Registration successful. Your company account is under review; we'll notify you once it's approved.", nil
	}

	return "We sent a verification link to your email.", nil
}

func (s *authService) VerifyEmail(ctx context.Context, req *domain.VerifyRequest) (*domain.SessionResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Validation(err.Error())
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("User not found")
	}

	if user.IsVerified {
		return nil, domain.State("This account is already verified")
	}

	// Lockout is checked before anything else: once the cap is hit, even the
	// correct code is refused until a new challenge is issued via resend.
	if user.VerificationAttempts >= s.cfg.Auth.MaxVerifyAttempts {
		return nil, domain.E(domain.KindRateLimit, "Too many failed attempts. Request a new verification code.")
	}

	if user.VerificationExpires == nil || time.Now().After(*user.VerificationExpires) {
		return nil, domain.Validation("The verification code has expired. Request a new one.")
	}

	if user.VerificationCode != req.Code {
		if err := s.userRepo.IncrementVerificationAttempts(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		remaining := s.cfg.Auth.MaxVerifyAttempts - user.VerificationAttempts - 1
		return nil, domain.Validation(fmt.Sprintf("Invalid code. %d attempt(s) remaining.", remaining))
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}
	user.IsVerified = true

	s.publish(ctx, events.UserVerified, events.UserVerifiedEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		VerifiedAt: time.Now(),
	})

	// Companies awaiting approval verify their email but do not get logged in.
	if user.AccountStatus == domain.StatusPendingApproval {
		return nil, nil
	}

	return s.newSession(user)
}

func (s *authService) ResendCode(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Validation("email is required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// Don't reveal whether the email exists.
		return nil
	}

	if user.IsVerified {
		return domain.Conflict("This account is already verified")
	}

	code, err := generateSixDigitCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	expires := time.Now().Add(s.cfg.Auth.VerificationTTL)

	// A fresh challenge also resets the attempt counter.
	if err := s.userRepo.SetVerificationChallenge(ctx, user.ID, code, expires); err != nil {
		return fmt.Errorf("failed to store verification challenge: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, s.verificationURL(user.Email, code), code); err != nil {
		logger.ErrorContext(ctx, "failed to send verification email", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.SessionResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Validation(err.Error())
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.Authentication("Invalid credentials")
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.Authentication("Invalid credentials")
	}

	if !user.IsVerified {
		return nil, domain.Authentication("Verify your email address before signing in")
	}

	switch user.AccountStatus {
	case domain.StatusPendingApproval:
		return nil, domain.Authorization("Your company account is under review. We'll notify you once it's approved.")
	case domain.StatusSuspended:
		return nil, domain.Authorization("Your account has been suspended. Contact support.")
	}

	return s.newSession(user)
}

// Refresh decodes the refresh token, reloads the identity, and issues a brand
// new access+refresh pair. The previous refresh token is not revoked and stays
// valid until its natural expiry.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.SessionResponse, error) {
	if refreshToken == "" {
		return nil, domain.Authentication("Refresh token required")
	}

	claims, err := auth.Parse(refreshToken, s.cfg.Auth.RefreshSecret)
	if err != nil {
		return nil, domain.Authentication("Invalid or expired refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.Authentication("User no longer exists")
	}

	switch user.AccountStatus {
	case domain.StatusSuspended:
		return nil, domain.Authentication("Your account has been suspended. Contact support.")
	case domain.StatusPendingApproval:
		return nil, domain.Authentication("Your account is under review.")
	}

	return s.newSession(user)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Validation("email is required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	// Unknown and suspended accounts get the same uniform reply upstream.
	if user == nil || user.AccountStatus == domain.StatusSuspended {
		return nil
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	expires := time.Now().Add(s.cfg.Auth.ResetTTL)

	if err := s.userRepo.SetResetChallenge(ctx, user.ID, hashToken(rawToken), expires); err != nil {
		return fmt.Errorf("failed to store reset challenge: %w", err)
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s&email=%s",
		s.cfg.ClientURL, rawToken, url.QueryEscape(user.Email))

	if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL, int(s.cfg.Auth.ResetTTL.Minutes())); err != nil {
		// A challenge nobody received is just an open door; take it back out.
		if clearErr := s.userRepo.ClearResetChallenge(ctx, user.ID); clearErr != nil {
			logger.ErrorContext(ctx, "failed to clear reset challenge", "error", clearErr, "user_id", user.ID)
		}
		logger.ErrorContext(ctx, "failed to send reset email", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return domain.Validation(err.Error())
	}

	user, err := s.userRepo.FindByResetChallenge(ctx, req.Email, hashToken(req.Token))
	if err != nil {
		return fmt.Errorf("failed to look up reset challenge: %w", err)
	}
	if user == nil {
		return domain.Validation("Invalid or expired reset token. Request a new link.")
	}

	same, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to compare password: %w", err)
	}
	if same {
		return domain.Validation("The new password must be different from the current one")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.mailer.SendPasswordChangedNotice(user.Email, user.Name); err != nil {
		logger.WarnContext(ctx, "failed to send password changed notice", "error", err, "user_id", user.ID)
	}

	s.publish(ctx, events.UserPasswordReset, events.UserEvent{UserID: user.ID})

	return nil
}

// newSession issues a fresh access+refresh pair for the given identity.
func (s *authService) newSession(user *domain.User) (*domain.SessionResponse, error) {
	accessToken, err := auth.NewAccessToken(user.ID, s.cfg.Auth.AccessSecret, s.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := auth.NewRefreshToken(user.ID, s.cfg.Auth.RefreshSecret, s.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &domain.SessionResponse{
		User:         user.ToUserInfo(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.Auth.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *authService) verificationURL(email, code string) string {
	return fmt.Sprintf("%s/auth/verify?email=%s&code=%s", s.cfg.ClientURL, url.QueryEscape(email), code)
}

func (s *authService) publish(ctx context.Context, subject string, data interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}

func generateSixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
