package store

import (
	"context"

	"gorm.io/gorm/clause"

	"grumblr/internal/models"
)

// Follow records that follower follows followee. Repeating it is a no-op.
func (s *Store) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.timestamp()}
	return s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
}

// Unfollow removes the edge if present
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

// FollowingIDs returns the ids userID follows, never nil
func (s *Store) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("followee_id").
		Pluck("followee_id", &ids).Error
	return ids, err
}

func (s *Store) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("followee_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *Store) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}
