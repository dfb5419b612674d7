package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times; DeletedAt makes deletion a tombstone.
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
