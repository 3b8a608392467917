package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grumblr/internal/models"
)

// CreateUser inserts the user and its profile in one transaction.
// user.Profile supplies the initial profile values.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}

		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
			}
			return err
		}

		user.Profile.UserID = user.ID
		return tx.Create(&user.Profile).Error
	})
}

// UserByID loads a user with its profile
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UserByUsername loads a user with its profile
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UserByGoogle finds the account linked to googleID, falling back to the oldest
// active account registered with email. Pending accounts never match by email:
// whoever registered them has not proven they own the address.
func (s *Store) UserByGoogle(ctx context.Context, googleID, email string) (*models.User, error) {
	if googleID == "" {
		return nil, ErrNotFound
	}
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("google_id = ?", googleID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && email != "" {
		err = s.db.WithContext(ctx).Preload("Profile").Where("email = ? AND is_active = ?", email, true).Order("id ASC").First(&user).Error
	}
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// LinkGoogle binds googleID to the user.
func (s *Store) LinkGoogle(ctx context.Context, userID uint, googleID string) error {
	return s.UpdateUser(ctx, userID, map[string]interface{}{"google_id": googleID}, nil)
}

// ActivateUser marks the account active if token matches the pending verification token.
// Activating an already active account is a no-op.
func (s *Store) ActivateUser(ctx context.Context, username, token string) (*models.User, error) {
	user, err := s.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.IsActive {
		return user, nil
	}
	if token == "" || user.VerifyToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(user.VerifyToken)) != 1 {
		return nil, ErrInvalidToken
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"is_active":    true,
		"verify_token": "",
	}).Error
	if err != nil {
		return nil, err
	}
	user.IsActive = true
	user.VerifyToken = ""
	return user, nil
}

// UpdateUser applies column updates to the user and its profile atomically.
// Empty maps are skipped.
func (s *Store) UpdateUser(ctx context.Context, userID uint, userFields, profileFields map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(userFields) > 0 {
			res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(userFields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if len(profileFields) > 0 {
			res := tx.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(profileFields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

// SetPassword stores a new password hash
func (s *Store) SetPassword(ctx context.Context, userID uint, hash string) error {
	return s.UpdateUser(ctx, userID, map[string]interface{}{"password": hash}, nil)
}
