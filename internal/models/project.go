package models

import "time"

type Project struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:200;not null;uniqueIndex"`
	Description *string   `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}
