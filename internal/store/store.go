// Package store persists users, messages, comments and follow edges through gorm.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"grumblr/internal/db"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrInvalidToken = errors.New("invalid verification token")
	ErrSelfFollow   = errors.New("cannot follow yourself")
)

// MaxPageSize bounds every range query regardless of what the caller asks for.
const MaxPageSize = 100

// Cursor is an exclusive lower bound on (created_at, id).
// With AfterID == 0 only the timestamp is compared.
type Cursor struct {
	After   time.Time
	AfterID uint
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb, now: db.Now}
}

// WithClock returns a copy of the store that stamps new rows with now().
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

// Ping checks the underlying connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// afterCursor appends the cursor predicate for table-qualified created_at/id columns.
func afterCursor(q *gorm.DB, table string, c Cursor) *gorm.DB {
	createdAt := table + ".created_at"
	id := table + ".id"
	if c.AfterID == 0 {
		return q.Where(createdAt+" > ?", c.After.UTC())
	}
	return q.Where("("+createdAt+" > ? OR ("+createdAt+" = ? AND "+id+" > ?))", c.After.UTC(), c.After.UTC(), c.AfterID)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
