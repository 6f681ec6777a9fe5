// Package users handles registration, OTP activation, login, and password
// reset. Accounts stay inactive until the activation OTP is redeemed.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
)

const uniqueViolation = "23505"

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Email:     strings.ToLower(strings.TrimSpace(nu.Email)),
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, string(hash), u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (c *Conf) GetByEmail(ctx context.Context, email string) (User, error) {
	return c.getUser(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (c *Conf) GetByID(ctx context.Context, id string) (User, error) {
	return c.getUser(ctx, `WHERE id = $1`, id)
}

func (c *Conf) getUser(ctx context.Context, where string, arg any) (User, error) {
	query := `
		SELECT id, name, email, password_hash, is_active, created_at, updated_at
		FROM users ` + where
	var u User
	err := c.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.passwordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// Authenticate verifies the password and returns the user. Inactive accounts
// are rejected even with a correct password.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := c.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return User{}, ErrAccountInactive
	}
	return u, nil
}

// ActivateAccount redeems an activation OTP and flips the account active.
func (c *Conf) ActivateAccount(ctx context.Context, email, code string) error {
	u, err := c.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := c.VerifyOTP(ctx, u.ID, PurposeActivation, code); err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("activating user: %w", err)
	}
	return nil
}

// ResetPassword redeems a password-reset OTP and replaces the password hash.
func (c *Conf) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := c.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := c.VerifyOTP(ctx, u.ID, PurposePasswordReset, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, string(hash), u.ID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}
