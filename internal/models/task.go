package models

import (
	"time"
)

type TaskStatus = string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

const (
	DefaultPriority = 3
	HighestPriority = 1
	LowestPriority  = 5
)

type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ProjectID   uint       `json:"project_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"size:250;not null"`
	Description *string    `json:"description" gorm:"type:text"`
	AssigneeID  *uint      `json:"assignee_id" gorm:"index"`
	DueAt       *time.Time `json:"due_at" gorm:"index"`
	Status      string     `json:"status" gorm:"size:50;not null;default:'todo'"`
	Priority    int        `json:"priority" gorm:"not null;default:3"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	IsOverdue   bool       `json:"is_overdue" gorm:"not null;default:false"`

	Project  *Project `json:"-" gorm:"foreignKey:ProjectID"`
	Assignee *User    `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
}

// ValidStatus reports whether s is one of the four task states.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

func ValidPriority(p int) bool {
	return p >= HighestPriority && p <= LowestPriority
}
