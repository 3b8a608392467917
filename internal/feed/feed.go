// Package feed answers "what is new since cursor X" for message and comment streams.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"grumblr/internal/models"
	"grumblr/internal/store"
	"grumblr/internal/utils"
)

type Audience int

const (
	AudienceAll Audience = iota
	AudienceUser
	AudienceFollowed
)

func (a Audience) String() string {
	switch a {
	case AudienceAll:
		return "all"
	case AudienceUser:
		return "single-user"
	case AudienceFollowed:
		return "followed-by"
	}
	return fmt.Sprintf("audience(%d)", int(a))
}

var (
	// ErrUnknownAudience is a NotFound-class error
	ErrUnknownAudience = fmt.Errorf("unknown audience: %w", store.ErrNotFound)
	ErrLoginRequired   = errors.New("login required for this view")
)

// Selector names whose messages a page draws from.
type Selector struct {
	Audience Audience
	UserID   uint
}

func All() Selector                   { return Selector{Audience: AudienceAll} }
func SingleUser(userID uint) Selector { return Selector{Audience: AudienceUser, UserID: userID} }
func FollowedBy(userID uint) Selector { return Selector{Audience: AudienceFollowed, UserID: userID} }

type MessagePage struct {
	Messages []models.Message
	Next     store.Cursor
}

type CommentPage struct {
	MessageID uint
	Comments  []models.Comment
	Next      store.Cursor
}

const userIDTTL = 10 * time.Minute

type Service struct {
	store    *store.Store
	cache    *utils.GlobalCache
	pageSize int
	log      zerolog.Logger
}

func NewService(st *store.Store, pageSize int, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		cache:    utils.NewCache(1000),
		pageSize: pageSize,
		log:      log.With().Str("component", "feed").Logger(),
	}
}

// ResolveView maps a URL view name to a selector. viewer may be nil for anonymous requests.
func (s *Service) ResolveView(ctx context.Context, view string, viewer *models.User, username string) (Selector, error) {
	switch view {
	case "", "global":
		return All(), nil
	case "follower", "following", "followed":
		if viewer == nil {
			return Selector{}, ErrLoginRequired
		}
		return FollowedBy(viewer.ID), nil
	case "profile":
		id, err := s.userID(ctx, username)
		if err != nil {
			return Selector{}, err
		}
		return SingleUser(id), nil
	}
	return Selector{}, fmt.Errorf("%q: %w", view, ErrUnknownAudience)
}

// userID resolves a username through the cache; usernames never change.
func (s *Service) userID(ctx context.Context, username string) (uint, error) {
	if username == "" {
		return 0, store.ErrNotFound
	}
	key := "user:id:" + username
	if v := s.cache.Get(key); v != nil {
		if id, ok := v.(uint); ok {
			return id, nil
		}
	}

	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	s.cache.Set(key, user.ID, userIDTTL)
	return user.ID, nil
}

func (s *Service) limit(n int) int {
	if n <= 0 {
		n = s.pageSize
	}
	if n > store.MaxPageSize {
		n = store.MaxPageSize
	}
	return n
}

// Messages returns up to limit messages after cur, oldest first.
// limit <= 0 uses the configured page size.
func (s *Service) Messages(ctx context.Context, sel Selector, cur store.Cursor, limit int) (*MessagePage, error) {
	filter := store.MessageFilter{Cursor: cur, Limit: s.limit(limit)}

	switch sel.Audience {
	case AudienceAll:
	case AudienceUser:
		filter.AuthorIDs = []uint{sel.UserID}
	case AudienceFollowed:
		ids, err := s.store.FollowingIDs(ctx, sel.UserID)
		if err != nil {
			return nil, fmt.Errorf("following ids: %w", err)
		}
		if len(ids) == 0 {
			return &MessagePage{Messages: []models.Message{}, Next: cur}, nil
		}
		filter.AuthorIDs = ids
	default:
		return nil, fmt.Errorf("%s: %w", sel.Audience, ErrUnknownAudience)
	}

	messages, err := s.store.ListMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &MessagePage{Messages: messages, Next: cur}
	if n := len(messages); n > 0 {
		page.Next = store.Cursor{After: messages[n-1].CreatedAt.UTC(), AfterID: messages[n-1].ID}
	}
	s.log.Debug().
		Str("audience", sel.Audience.String()).
		Int("count", len(messages)).
		Msg("Messages page")
	return page, nil
}

// Comments returns up to limit comments on messageID after cur.
func (s *Service) Comments(ctx context.Context, messageID uint, cur store.Cursor, limit int) (*CommentPage, error) {
	if _, err := s.store.MessageByID(ctx, messageID); err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, messageID, cur, s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	page := &CommentPage{MessageID: messageID, Comments: comments, Next: cur}
	if n := len(comments); n > 0 {
		page.Next = store.Cursor{After: comments[n-1].CreatedAt.UTC(), AfterID: comments[n-1].ID}
	}
	return page, nil
}
