package model

import (
	"time"

	"gorm.io/gorm"
)

// PlanPG is the GORM model for an archived generated plan. The document is
// stored as the serialized .plan JSON; scenario fields are denormalized for
// listing without parsing the blob.
type PlanPG struct {
	ID       string  `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"size:255;not null"`
	Variant  string  `json:"variant" gorm:"size:32;not null"`
	Aircraft string  `json:"aircraft" gorm:"size:32;not null"`
	HomeLat  float64 `json:"home_lat" gorm:"not null"`
	HomeLng  float64 `json:"home_lng" gorm:"not null"`
	Document string `json:"document" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
