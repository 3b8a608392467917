package models

import (
	"time"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	FirstName   string    `gorm:"size:30" json:"first_name"`
	LastName    string    `gorm:"size:30" json:"last_name"`
	Email       string    `gorm:"size:100;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"` // bcrypt hash
	IsActive    bool      `gorm:"not null" json:"is_active"`
	VerifyToken string    `gorm:"size:64" json:"-"` // 激活后清空
	GoogleID    string    `gorm:"size:64;index" json:"-"`
	Profile     Profile   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// No DeletedAt, users are never removed by any flow
}

// FullName joins first and last name, falling back to the username
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}
