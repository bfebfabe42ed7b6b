package models

import "time"

// PermissionSet is a named, reusable bundle of menu-operation grants.
type PermissionSet struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;unique;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	CreatedBy   uint   `json:"created_by"`
}

// PermissionSetOperation maps a PermissionSet to one MenuOperation. The whole
// mapping is replaced wholesale when a set is updated, never merged.
type PermissionSetOperation struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	PermissionSetID uint `gorm:"index;not null" json:"permission_set_id"`
	MenuOperationID uint `gorm:"index;not null" json:"menu_operation_id"`
}

// UserPermissionGrant assigns a PermissionSet to a user. Grants are
// append-only; identical duplicates are legal and there is no uniqueness
// constraint across (user, set).
type UserPermissionGrant struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	PermissionSetID uint      `gorm:"index;not null" json:"permission_set_id"`
	GrantedBy       uint      `json:"granted_by"`
	GrantedAt       time.Time `gorm:"autoCreateTime" json:"granted_at"`
}
