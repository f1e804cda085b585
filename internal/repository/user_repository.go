package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/silicity/silicity-server/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	MarkVerified(ctx context.Context, id int64) error
	SetVerificationChallenge(ctx context.Context, id int64, code string, expires time.Time) error
	IncrementVerificationAttempts(ctx context.Context, id int64) error
	SetResetChallenge(ctx context.Context, id int64, tokenHash string, expires time.Time) error
	ClearResetChallenge(ctx context.Context, id int64) error
	FindByResetChallenge(ctx context.Context, email, tokenHash string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, role, email, password_hash, name, avatar_url, website,
	account_status, payment_status, is_verified, terms_accepted,
	verification_code, verification_expires, verification_attempts,
	reset_token_hash, reset_expires, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u          domain.User
		verifyCode pgtype.Text
		resetHash  pgtype.Text
	)
	// The schema declares the challenge columns NOT NULL DEFAULT '', but rows
	// created before that constraint may still carry NULLs; both read as "".
	err := row.Scan(
		&u.ID, &u.Role, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL, &u.Website,
		&u.AccountStatus, &u.PaymentStatus, &u.IsVerified, &u.TermsAccepted,
		&verifyCode, &u.VerificationExpires, &u.VerificationAttempts,
		&resetHash, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.VerificationCode = verifyCode.String
	u.ResetTokenHash = resetHash.String
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (
			role, email, password_hash, name, website,
			account_status, payment_status, is_verified, terms_accepted,
			verification_code, verification_expires, verification_attempts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9, $10, 0)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q,
		u.Role, u.Email, u.PasswordHash, u.Name, u.Website,
		u.AccountStatus, u.PaymentStatus, u.TermsAccepted,
		u.VerificationCode, u.VerificationExpires,
	))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// MarkVerified clears the challenge permanently; a consumed code can never be
// replayed.
func (r *userRepository) MarkVerified(ctx context.Context, id int64) error {
	const q = `
		UPDATE users
		SET is_verified = true,
		    verification_code = '',
		    verification_expires = NULL,
		    verification_attempts = 0,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// SetVerificationChallenge installs a fresh code and resets the attempt
// counter (used at resend).
func (r *userRepository) SetVerificationChallenge(ctx context.Context, id int64, code string, expires time.Time) error {
	const q = `
		UPDATE users
		SET verification_code = $2,
		    verification_expires = $3,
		    verification_attempts = 0,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, code, expires)
	return err
}

func (r *userRepository) IncrementVerificationAttempts(ctx context.Context, id int64) error {
	const q = `
		UPDATE users
		SET verification_attempts = verification_attempts + 1,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *userRepository) SetResetChallenge(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	const q = `
		UPDATE users
		SET reset_token_hash = $2,
		    reset_expires = $3,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, tokenHash, expires)
	return err
}

func (r *userRepository) ClearResetChallenge(ctx context.Context, id int64) error {
	const q = `
		UPDATE users
		SET reset_token_hash = '',
		    reset_expires = NULL,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// FindByResetChallenge matches the hashed token and enforces expiry in the
// query itself, so an expired challenge behaves exactly like a missing one.
func (r *userRepository) FindByResetChallenge(ctx context.Context, email, tokenHash string) (*domain.User, error) {
	const q = `
		SELECT ` + userCols + ` FROM users
		WHERE email = $1
		  AND reset_token_hash = $2
		  AND reset_expires IS NOT NULL
		  AND reset_expires > now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email, tokenHash))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// UpdatePassword also consumes the reset challenge; it is single use.
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2,
		    reset_token_hash = '',
		    reset_expires = NULL,
		    updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	return err
}
