package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/store"
)

// MethodMismatchError means the email is already registered through another
// sign-in method.
type MethodMismatchError struct {
	Expected model.AuthMethod
	Got      model.AuthMethod
}

func (e *MethodMismatchError) Error() string {
	return fmt.Sprintf("auth method mismatch: expected %s, got %s", e.Expected, e.Got)
}

type UserStore interface {
	GetByIdentityID(ctx context.Context, identityID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateProfilePicture(ctx context.Context, identityID string, pictureURL *string) error
}

// SyncUser loads the portal user behind claims, creating a hacker account on
// first sight. The second return value reports whether the user was created.
// A failed profile picture refresh is logged and does not fail the sign-in.
func SyncUser(ctx context.Context, users UserStore, claims *Claims, log *logrus.Entry) (*model.User, bool, error) {
	user, err := users.GetByIdentityID(ctx, claims.Subject)
	if err == nil {
		if user.AuthMethod == model.AuthMethodGoogle && pictureChanged(user.ProfilePictureURL, claims.Picture) {
			if err := users.UpdateProfilePicture(ctx, claims.Subject, claims.Picture); err != nil {
				log.WithError(err).WithField("user_id", user.ID).Warn("profile picture update failed")
			} else {
				user.ProfilePictureURL = claims.Picture
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	user = &model.User{
		IdentityID:        claims.Subject,
		Email:             claims.Email,
		Role:              model.RoleHacker,
		AuthMethod:        claims.AuthMethod,
		ProfilePictureURL: claims.Picture,
	}
	if err := users.Create(ctx, user); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		existing, err := users.GetByEmail(ctx, claims.Email)
		if err != nil {
			return nil, false, fmt.Errorf("load existing user: %w", err)
		}
		if existing.AuthMethod != claims.AuthMethod {
			return nil, false, &MethodMismatchError{Expected: existing.AuthMethod, Got: claims.AuthMethod}
		}
		return nil, false, errors.New("email already linked to another identity")
	}
	return user, true, nil
}

func pictureChanged(current, next *string) bool {
	if next == nil {
		return false
	}
	return current == nil || *current != *next
}
