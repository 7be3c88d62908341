package database

import (
	"context"
	"errors"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, display_name, is_verified, verify_token_hash, verify_token_expiry, reset_token_hash, reset_token_expiry, created_at, storage_quota_bytes, storage_used_bytes`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.IsVerified,
		&user.VerifyTokenHash,
		&user.VerifyTokenExpiry,
		&user.ResetTokenHash,
		&user.ResetTokenExpiry,
		&user.CreatedAt,
		&user.StorageQuotaBytes,
		&user.StorageUsedBytes,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type CreateUserParams struct {
	Email             string
	PasswordHash      string
	DisplayName       *string
	VerifyTokenHash   string
	VerifyTokenExpiry time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, display_name, verify_token_hash, verify_token_expiry)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	user, err := scanUser(q.db.QueryRow(ctx, query,
		arg.Email, arg.PasswordHash, arg.DisplayName, arg.VerifyTokenHash, arg.VerifyTokenExpiry))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(q.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// MarkEmailVerified weryfikuje konto po hashu tokenu z linku aktywacyjnego.
func (q *Queries) MarkEmailVerified(ctx context.Context, email string, tokenHash string) (bool, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE, verify_token_hash = NULL, verify_token_expiry = NULL
		WHERE email = $1 AND verify_token_hash = $2 AND verify_token_expiry > NOW()
	`
	res, err := q.db.Exec(ctx, query, email, tokenHash)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiry time.Time) error {
	query := `UPDATE users SET reset_token_hash = $1, reset_token_expiry = $2 WHERE id = $3`
	_, err := q.db.Exec(ctx, query, tokenHash, expiry, userID)
	return err
}

// ResetPassword ustawia nowe hasło, jeśli hash tokenu resetu pasuje i nie wygasł.
func (q *Queries) ResetPassword(ctx context.Context, email string, tokenHash string, newPasswordHash string) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expiry = NULL
		WHERE email = $2 AND reset_token_hash = $3 AND reset_token_expiry > NOW()
	`
	res, err := q.db.Exec(ctx, query, newPasswordHash, email, tokenHash)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) UpdateUserPassword(ctx context.Context, userID int64, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	_, err := q.db.Exec(ctx, query, newPasswordHash, userID)
	return err
}

func (q *Queries) UpdateUserStorage(ctx context.Context, userID int64, bytesChange int64) error {
	query := `
		UPDATE users
		SET storage_used_bytes = storage_used_bytes + $1
		WHERE id = $2
	`
	_, err := q.db.Exec(ctx, query, bytesChange, userID)
	return err
}
