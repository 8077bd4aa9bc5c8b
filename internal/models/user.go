package models

import "time"

// User is a person tasks can be assigned to. ExternalRef holds a chat
// identity or email.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ExternalRef *string   `json:"external_ref" gorm:"size:128;index"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
