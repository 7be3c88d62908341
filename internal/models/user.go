package models

import "time"

type User struct {
	ID                int64      `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	DisplayName       *string    `json:"display_name,omitempty" db:"display_name"`
	IsVerified        bool       `json:"is_verified" db:"is_verified"`
	VerifyTokenHash   *string    `json:"-" db:"verify_token_hash"`
	VerifyTokenExpiry *time.Time `json:"-" db:"verify_token_expiry"`
	ResetTokenHash    *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiry  *time.Time `json:"-" db:"reset_token_expiry"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	StorageQuotaBytes int64      `json:"storage_quota_bytes" db:"storage_quota_bytes"`
	StorageUsedBytes  int64      `json:"storage_used_bytes" db:"storage_used_bytes"`
}
