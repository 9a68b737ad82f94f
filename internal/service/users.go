package service

import (
	"context"
	"errors"
	"strings"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
)

// ProfileUpdate carries the fields a user may change on themselves. Nil
// or blank fields are left untouched; the role is not editable.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *AuthService) Profile(ctx context.Context, caller *models.User) (*models.User, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, internalErr(err, "Failed to fetch profile")
	}
	user.Password = ""
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, caller *models.User, in ProfileUpdate) (*Session, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, internalErr(err, "Failed to update profile")
	}

	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			user.Name = name
		}
	}
	if in.Email != nil {
		if email := normalizeEmail(*in.Email); email != "" && email != user.Email {
			if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != user.ID {
				return nil, apperr.New(apperr.Conflict, "Email is already in use")
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, internalErr(err, "Failed to update profile")
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, internalErr(err, "Failed to update profile")
		}
		user.Password = hashed
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.Conflict, "Email is already in use")
		}
		return nil, internalErr(err, "Failed to update profile")
	}

	return s.session(user, "Failed to update profile")
}
