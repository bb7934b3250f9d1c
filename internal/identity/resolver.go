// Package identity resolves the single user record that owns a checkout:
// find-or-create by canonical phone number, with guest-to-account merging
// when a phone collides with an existing guest identity.
package identity

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Conflict policies for a phone already owned by a different non-guest
// account.
const (
	PolicyIgnore = "ignore"
	PolicyReject = "reject"
)

// ErrPhoneConflict is returned under PolicyReject when the checkout phone
// belongs to a different registered account.
var ErrPhoneConflict = errors.New("phone number belongs to another account")

// UserStore is the persistence surface the resolver needs. *store.Store
// implements it.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, phone, name, email string, isGuest bool) (*models.User, error)
	UpdateUserPhone(ctx context.Context, userID, phone string) (*models.User, error)
	UpdateUserEmail(ctx context.Context, userID, email string) (*models.User, error)
	ClaimPhoneForUser(ctx context.Context, userID, phone string) (*models.User, error)
	MergeUsers(ctx context.Context, mainUserID, guestUserID, phone string) (*models.User, error)
}

// ResolveParams carries the inputs for one resolution. Phone must already
// be in canonical form. UserID is the optional authenticated identity; an
// empty string means an anonymous checkout.
type ResolveParams struct {
	Phone  string
	Name   string
	UserID string
	Email  string
}

// Resolver produces exactly one user to own a new order.
type Resolver struct {
	store          UserStore
	conflictPolicy string
	logger         *zap.Logger
}

func NewResolver(store UserStore, conflictPolicy string) *Resolver {
	return &Resolver{
		store:          store,
		conflictPolicy: conflictPolicy,
		logger:         util.GetLogger(),
	}
}

// Resolve walks the priority chain: authenticated identity first, then
// phone lookup, then email lookup, then guest creation. Any store error
// aborts resolution; checkout must not proceed with an unresolved
// identity.
func (r *Resolver) Resolve(ctx context.Context, p ResolveParams) (*models.User, error) {
	if p.UserID != "" {
		user, err := r.store.FindUserByID(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up authenticated user: %w", err)
		}
		if user != nil {
			return r.resolveAuthenticated(ctx, user, p)
		}
		// Authenticated ID did not resolve; fall through to the
		// anonymous chain rather than failing the checkout.
	}

	userByPhone, err := r.store.FindUserByPhone(ctx, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by phone: %w", err)
	}
	if userByPhone != nil {
		return userByPhone, nil
	}

	if p.Email != "" {
		user, err := r.resolveByEmail(ctx, p)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	user, err := r.store.CreateUser(ctx, p.Phone, p.Name, p.Email, p.UserID == "")
	if err != nil {
		return nil, err
	}
	util.UsersCreatedTotal.WithLabelValues(guestLabel(user.IsGuest)).Inc()
	r.logger.Info("Created user at checkout",
		zap.String("user_id", user.ID),
		zap.Bool("is_guest", user.IsGuest))
	return user, nil
}

// resolveAuthenticated updates the authenticated user's contact details,
// merging away a guest that already holds the checkout phone.
func (r *Resolver) resolveAuthenticated(ctx context.Context, user *models.User, p ResolveParams) (*models.User, error) {
	if p.Phone != "" && user.PhoneNumber.String != p.Phone {
		owner, err := r.store.FindUserByPhone(ctx, p.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to look up phone owner: %w", err)
		}

		switch {
		case owner == nil:
			user, err = r.store.UpdateUserPhone(ctx, user.ID, p.Phone)
			if err != nil {
				return nil, err
			}

		case owner.IsGuest:
			user, err = r.store.MergeUsers(ctx, user.ID, owner.ID, p.Phone)
			if err != nil {
				return nil, fmt.Errorf("failed to merge guest user: %w", err)
			}
			util.GuestMergesTotal.Inc()
			r.logger.Info("Merged guest into account",
				zap.String("user_id", user.ID),
				zap.String("guest_id", owner.ID))

		case owner.ID != user.ID:
			util.PhoneConflictsTotal.Inc()
			r.logger.Warn("Phone already taken by another account",
				zap.String("phone", p.Phone),
				zap.String("owner_id", owner.ID),
				zap.String("user_id", user.ID))
			if r.conflictPolicy == PolicyReject {
				return nil, ErrPhoneConflict
			}
			// Soft-fail: proceed without touching the conflicting
			// phone binding.
			return user, nil
		}
	}

	if p.Email != "" && !user.Email.Valid {
		owner, err := r.store.FindUserByEmail(ctx, p.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up email owner: %w", err)
		}
		if owner == nil {
			user, err = r.store.UpdateUserEmail(ctx, user.ID, p.Email)
			if err != nil {
				return nil, err
			}
		}
	}

	return user, nil
}

// resolveByEmail attaches the checkout phone to an account found by email,
// or merges a guest that holds the phone into it. Returns nil when no
// account matches the email.
func (r *Resolver) resolveByEmail(ctx context.Context, p ResolveParams) (*models.User, error) {
	userByEmail, err := r.store.FindUserByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if userByEmail == nil {
		return nil, nil
	}

	phoneOwner, err := r.store.FindUserByPhone(ctx, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up phone owner: %w", err)
	}

	if phoneOwner == nil {
		user, err := r.store.ClaimPhoneForUser(ctx, userByEmail.ID, p.Phone)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	if phoneOwner.IsGuest {
		user, err := r.store.MergeUsers(ctx, userByEmail.ID, phoneOwner.ID, p.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to merge guest user: %w", err)
		}
		util.GuestMergesTotal.Inc()
		return user, nil
	}

	return userByEmail, nil
}

func guestLabel(isGuest bool) string {
	if isGuest {
		return "guest"
	}
	return "account"
}
