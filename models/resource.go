package models

import "time"

// Client is a firm's customer.
type Client struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	ClientTypeID uint      `json:"client_type_id"`
	Status       int       `gorm:"default:1" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Task is a unit of work assigned to an employee for a client.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description string    `gorm:"size:500" json:"description"`
	ClientID    uint      `gorm:"index" json:"client_id"`
	AssignedTo  uint      `gorm:"index" json:"assigned_to"`
	DueDate     string    `gorm:"size:20" json:"due_date"`
	Status      int       `gorm:"default:1" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ticket is a support request raised against a client engagement.
type Ticket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Subject   string    `gorm:"size:150;not null" json:"subject"`
	Detail    string    `gorm:"size:1000" json:"detail"`
	ClientID  uint      `gorm:"index" json:"client_id"`
	RaisedBy  uint      `json:"raised_by"`
	Status    int       `gorm:"default:1" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Timesheet records hours an employee spent on a task for a given day.
type Timesheet struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"index;not null" json:"employee_id"`
	TaskID     uint      `gorm:"index" json:"task_id"`
	WorkDate   string    `gorm:"size:20;not null" json:"work_date"`
	Hours      float64   `json:"hours"`
	Notes      string    `gorm:"size:500" json:"notes"`
	Status     int       `gorm:"default:1" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
