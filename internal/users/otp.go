package users

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const otpTTL = 15 * time.Minute

// CreateOTP issues a fresh 6-digit code for the purpose, replacing any code
// previously issued to the same user for that purpose.
func (c *Conf) CreateOTP(ctx context.Context, userID, purpose string) (string, error) {
	code, err := randomCode(6)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM otps WHERE user_id = $1 AND purpose = $2`, userID, purpose)
	if err != nil {
		return "", fmt.Errorf("clearing previous otp: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO otps (user_id, purpose, code, expires_at) VALUES ($1, $2, $3, $4)`,
		userID, purpose, code, time.Now().UTC().Add(otpTTL))
	if err != nil {
		return "", fmt.Errorf("inserting otp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit tx: %w", err)
	}
	return code, nil
}

// VerifyOTP checks the code and consumes it on success. Expired or unknown
// codes report ErrOTPInvalid.
func (c *Conf) VerifyOTP(ctx context.Context, userID, purpose, code string) error {
	var id int64
	var expiresAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT id, expires_at FROM otps WHERE user_id = $1 AND purpose = $2 AND code = $3`,
		userID, purpose, code).Scan(&id, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOTPInvalid
		}
		return fmt.Errorf("querying otp: %w", err)
	}
	if time.Now().UTC().After(expiresAt) {
		return ErrOTPInvalid
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM otps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("consuming otp: %w", err)
	}
	return nil
}

func randomCode(n int) (string, error) {
	const digits = "0123456789"
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		out[i] = digits[idx.Int64()]
	}
	return string(out), nil
}
