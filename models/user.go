package models

import "time"

// Row status flag used for soft deletes across all tenant tables.
const (
	StatusDeleted = 0
	StatusActive  = 1
)

// User is an employee of the tenant firm.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;unique;not null" json:"username"`
	Password  string    `gorm:"size:100;not null" json:"-"` // bcrypt hash, never exposed
	Name      string    `gorm:"size:100" json:"name"`
	Email     string    `gorm:"size:100" json:"email"`
	Role      string    `gorm:"size:50" json:"role"`
	Status    int       `gorm:"default:1" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
