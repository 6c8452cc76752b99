package models

import "time"

// User is keyed by phone number; accounts are created lazily on the first
// successful OTP verification.
type User struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PhoneNumber string     `gorm:"type:varchar(15);uniqueIndex;not null" json:"phone_number"`
	FirstName   string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName    string     `gorm:"type:varchar(150)" json:"last_name"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"date_joined"`
	UpdatedAt   time.Time  `json:"-"`
}

func (User) TableName() string { return "users" }
