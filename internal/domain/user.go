package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID            int64     `json:"id"`
	Role          string    `json:"role"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url"`
	Website       string    `json:"website,omitempty"`
	AccountStatus string    `json:"account_status"`
	PaymentStatus string    `json:"payment_status"`
	IsVerified    bool      `json:"is_verified"`
	TermsAccepted bool      `json:"terms_accepted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Verification challenge, present only while the email is unconfirmed.
	VerificationCode     string     `json:"-"`
	VerificationExpires  *time.Time `json:"-"`
	VerificationAttempts int        `json:"-"`

	// Password reset challenge. Only the sha256 of the emailed token is kept.
	ResetTokenHash string     `json:"-"`
	ResetExpires   *time.Time `json:"-"`
}

// Roles
const (
	RoleUser    = "user"
	RoleStudent = "student"
	RoleTalent  = "talent"
	RoleCompany = "company"
	RoleVC      = "vc"
	RoleAdmin   = "admin"
)

// Account statuses
const (
	StatusActive          = "active"
	StatusPendingApproval = "pending_approval"
	StatusSuspended       = "suspended"
)

// Payment statuses
const (
	PaymentActive    = "active"
	PaymentUnpaid    = "unpaid"
	PaymentFreeTrial = "free_trial"
)

var validRoles = map[string]bool{
	RoleUser:    true,
	RoleStudent: true,
	RoleTalent:  true,
	RoleCompany: true,
	RoleVC:      true,
	RoleAdmin:   true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role,omitempty"`
	Website       string `json:"website,omitempty"`
	TermsAccepted bool   `json:"terms_and_privacy_accepted"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendCodeRequest struct {
	Email string `json:"email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserInfo is the public projection of a user returned after login/refresh.
type UserInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

type SessionResponse struct {
	User         *UserInfo `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}

// Validation

func (r *RegisterRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.Role != "" && !validRoles[r.Role] {
		return fmt.Errorf("invalid role")
	}
	if !r.TermsAccepted {
		return fmt.Errorf("terms and privacy policy must be accepted")
	}
	return nil
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (r *VerifyRequest) Validate() error {
	if r.Email == "" || r.Code == "" {
		return fmt.Errorf("email and code are required")
	}
	return nil
}

func (r *ResetPasswordRequest) Validate() error {
	if r.Token == "" || r.Email == "" || r.Password == "" {
		return fmt.Errorf("token, email and password are required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// Normalization

func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Website = strings.TrimSpace(r.Website)
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *VerifyRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Code = strings.TrimSpace(r.Code)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
