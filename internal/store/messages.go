package store

import (
	"context"

	"gorm.io/gorm/clause"

	"grumblr/internal/models"
)

// MessageFilter selects messages for ListMessages.
// A nil AuthorIDs means every author; a non-nil empty slice matches nothing.
type MessageFilter struct {
	AuthorIDs []uint
	Cursor    Cursor
	Limit     int
}

// CreateMessage stamps and inserts the message in a single statement.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	msg.CreatedAt = s.timestamp()
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error
}

// MessageByID loads a message with its author
func (s *Store) MessageByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).Preload("User.Profile").First(&msg, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

// ListMessages returns messages strictly after the cursor, oldest first.
func (s *Store) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	if f.AuthorIDs != nil && len(f.AuthorIDs) == 0 {
		return messages, nil
	}

	q := s.db.WithContext(ctx).Model(&models.Message{}).Preload("User.Profile")
	if f.AuthorIDs != nil {
		q = q.Where("messages.user_id IN ?", f.AuthorIDs)
	}
	q = afterCursor(q, "messages", f.Cursor)

	err := q.Order("messages.created_at ASC").
		Order("messages.id ASC").
		Limit(clampLimit(f.Limit)).
		Find(&messages).Error
	return messages, err
}

// RecentMessages returns the newest messages, newest first. authorIDs nil means everyone.
func (s *Store) RecentMessages(ctx context.Context, authorIDs []uint, limit int) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	q := s.db.WithContext(ctx).Model(&models.Message{}).Preload("User.Profile")
	if authorIDs != nil {
		q = q.Where("messages.user_id IN ?", authorIDs)
	}
	err := q.Order("messages.created_at DESC").
		Order("messages.id DESC").
		Limit(clampLimit(limit)).
		Find(&messages).Error
	return messages, err
}

// CountMessages counts messages written by userID
func (s *Store) CountMessages(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CreateComment stamps and inserts a comment. The parent message must exist.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", comment.MessageID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	comment.CreatedAt = s.timestamp()
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

// ListComments returns comments on messageID strictly after the cursor, oldest first.
func (s *Store) ListComments(ctx context.Context, messageID uint, cursor Cursor, limit int) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	q := s.db.WithContext(ctx).Model(&models.Comment{}).
		Preload("User.Profile").
		Where("comments.message_id = ?", messageID)
	q = afterCursor(q, "comments", cursor)

	err := q.Order("comments.created_at ASC").
		Order("comments.id ASC").
		Limit(clampLimit(limit)).
		Find(&comments).Error
	return comments, err
}
