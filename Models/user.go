package Models

import "gorm.io/gorm"

const (
	PermissionDispatcher = 1
	PermissionAdmin      = 2
)

type User struct {
	gorm.Model
	Username   string `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission"`
}
