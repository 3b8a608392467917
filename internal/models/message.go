package models

import (
	"time"
)

// MaxMessageLength applies to both message bodies and comment contents, in characters.
const MaxMessageLength = 42

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Body      string    `gorm:"size:42;not null" json:"body"`
	CreatedAt time.Time `gorm:"precision:6;index" json:"created_at"` // 创建时写入，之后不再修改
}
