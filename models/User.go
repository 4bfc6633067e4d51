package models

import (
	"gorm.io/gorm"
)

// User is created lazily on first sign-in (find-or-create by email).
// Demo trust-on-email auth: no password column.
type User struct {
	gorm.Model
	Email  string  `json:"email" gorm:"uniqueIndex;not null"`
	Name   string  `json:"name"`
	Buyers []Buyer `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}
