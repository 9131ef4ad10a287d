package model

import "time"

// User represents an application user record as stored in the
// `users` table. Identity is username based; the password is kept
// only as a bcrypt hash. Reservations reference users but never
// mutate them.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER or ADMIN.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
