package credentials

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Tenac92/LEXIS-sub001/internal/db"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
)

const (
	DefaultRole = "user"
	RoleAdmin   = "admin"
)

type Service struct {
	db     *db.DB
	hasher Hasher
}

func NewService(db *db.DB) *Service {
	return NewServiceWithHasher(db, NewHasher(0))
}

func NewServiceWithHasher(db *db.DB, hasher Hasher) *Service {
	return &Service{db: db, hasher: hasher}
}

// Register creates (or reuses) the user row for email, stores a bcrypt hash
// and assigns the given units. It runs in one transaction.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
	role string,
	units []int64,
) (string, error) {

	if role == "" {
		role = DefaultRole
	}

	hash, version, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var userID uuid.UUID

	// 1. Find or create user by email
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, role)
			VALUES ($1, $2)
			RETURNING id
		`, strings.TrimSpace(email), role).Scan(&userID)
	}

	if err != nil {
		return "", err
	}

	// 2. Check if credentials already exist
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM credentials WHERE user_id = $1
		)
	`, userID).Scan(&exists)

	if err != nil {
		return "", err
	}

	if exists {
		return "", ErrAlreadyRegistered
	}

	// 3. Insert credentials
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)

	if err != nil {
		return "", err
	}

	// 4. Unit assignments
	for _, unit := range units {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_units (user_id, unit_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, unit)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return userID.String(), nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (Principal, error) {

	var (
		userID       uuid.UUID
		role         string
		passwordHash string
	)

	// 1. Find active user + credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.role, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
		  AND u.status = 'active'
	`, email).Scan(&userID, &role, &passwordHash)

	if err != nil {
		// hide whether user exists or not
		return Principal{}, ErrInvalidCredentials
	}

	// 2. Verify password
	if err := s.hasher.Verify(passwordHash, password); err != nil {
		return Principal{}, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(passwordHash) {
		s.rehash(ctx, userID, password)
	}

	return Principal{UserID: userID.String(), Role: role}, nil
}

// rehash upgrades a stored hash to the current cost. Failure keeps the old
// hash, which still verifies.
func (s *Service) rehash(ctx context.Context, userID uuid.UUID, password string) {
	hash, version, err := s.hasher.Hash(password)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE credentials
			SET password_hash = $2, hash_version = $3, updated_at = NOW()
			WHERE user_id = $1
		`, userID, hash, version)
	}
	if err != nil {
		logger.Warn("password rehash failed", map[string]any{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
	}
}
