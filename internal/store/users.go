package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"

	"github.com/google/uuid"
)

// FindUserByID retrieves a user by ID. Returns nil without error when the
// user does not exist.
func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByPhone retrieves a user by canonical phone number. Returns nil
// without error when no user owns the number.
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE phone_number = $1", phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail retrieves a user by email. Returns nil without error
// when no user owns the address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user. Empty name and email are stored as NULL
// so the unique email constraint is not tripped by blanks.
func (s *Store) CreateUser(ctx context.Context, phone, name, email string, isGuest bool) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO users (id, name, email, phone_number, role, is_guest)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
		RETURNING *`

	err := s.db.GetContext(ctx, user, query,
		uuid.New().String(), name, email, phone, models.RoleUser, isGuest)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateUserPhone sets a user's phone number.
func (s *Store) UpdateUserPhone(ctx context.Context, userID, phone string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"UPDATE users SET phone_number = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		phone, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user phone: %w", err)
	}
	return &user, nil
}

// UpdateUserEmail attaches an email to a user.
func (s *Store) UpdateUserEmail(ctx context.Context, userID, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		email, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user email: %w", err)
	}
	return &user, nil
}

// ClaimPhoneForUser sets a user's phone number and clears the guest flag.
// Used when an email-matched account claims a previously unseen number.
func (s *Store) ClaimPhoneForUser(ctx context.Context, userID, phone string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"UPDATE users SET phone_number = $1, is_guest = FALSE, updated_at = NOW() WHERE id = $2 RETURNING *",
		phone, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim phone for user: %w", err)
	}
	return &user, nil
}

// MergeUsers folds a guest user into a main user inside one transaction:
// the guest's orders are reassigned first, then the guest row is deleted,
// then the main user takes over the phone number. Orders are never left
// pointing at a deleted user.
func (s *Store) MergeUsers(ctx context.Context, mainUserID, guestUserID, phone string) (*models.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET user_id = $1, updated_at = NOW() WHERE user_id = $2",
		mainUserID, guestUserID); err != nil {
		return nil, fmt.Errorf("failed to reassign guest orders: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM users WHERE id = $1", guestUserID); err != nil {
		return nil, fmt.Errorf("failed to delete guest user: %w", err)
	}

	var user models.User
	if err := tx.GetContext(ctx, &user,
		"UPDATE users SET phone_number = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		phone, mainUserID); err != nil {
		return nil, fmt.Errorf("failed to move phone to main user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &user, nil
}
