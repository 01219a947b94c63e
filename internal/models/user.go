package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a real platform account. The monitor only ever reads users; profile
// CRUD lives in the main site backend.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DisplayName string `gorm:"not null" json:"display_name"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Photo       string `json:"photo"`
}

// ModelProfile is an operator-controlled identity users converse with. On the
// wire it is indistinguishable from a User: both draw ids from the same
// namespace. Only the resolver tells them apart.
type ModelProfile struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DisplayName string `gorm:"not null" json:"display_name"`
	Photo       string `json:"photo"`
}

// Admin is a dashboard operator account.
type Admin struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:operator" json:"role"`
}

type AdminResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *Admin) ToResponse() AdminResponse {
	return AdminResponse{
		ID:    a.ID,
		Email: a.Email,
		Role:  a.Role,
	}
}
