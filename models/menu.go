package models

// Menu is a navigation entry. The hierarchy is capped at two levels: a menu
// with a nil ParentID is top-level, otherwise it is a submenu and its parent
// must itself be top-level.
type Menu struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	// SequenceNumber defines presentation order within a level; nil sorts last.
	SequenceNumber *int `json:"sequence_number"`
}

// Operation is an action verb (e.g. "view", "edit") independent of any menu.
type Operation struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
}

// MenuOperation is the atomic grantable unit: one Operation on one Menu.
type MenuOperation struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	MenuID      uint `gorm:"index;not null" json:"menu_id"`
	OperationID uint `gorm:"index;not null" json:"operation_id"`
}
