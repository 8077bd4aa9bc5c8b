package models

import "time"

// Event is an append-only activity record (created_task, status_change,
// comment, reminder_sent). The table is migrated but nothing writes to it yet.
type Event struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"size:100;not null"`
	Payload   *string   `json:"payload" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{&User{}, &Project{}, &Task{}, &Event{}}
}
