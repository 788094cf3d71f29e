package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type PatientModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Username     string    `gorm:"not null"`
	HospitalID   string    `gorm:"not null"`
	Modality     string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type EntryModel struct {
	ID                string    `gorm:"primaryKey"`
	PatientID         string    `gorm:"not null;index"`
	Timestamp         time.Time `gorm:"not null;index"`
	DialysateStrength string    `gorm:"not null"`
	BagVolumeMl       float64   `gorm:"not null"`
	LeftoverMl        float64   `gorm:"not null"`
	DrainVolumeMl     float64   `gorm:"not null"`
	FillVolumeMl      float64   `gorm:"not null"`
	UFMl              float64   `gorm:"not null"`
	WeightKg          *float64
	Notes             string
	Symptoms          datatypes.JSON `gorm:"type:jsonb"`
	ImageURL          string
	CreatedAt         time.Time `gorm:"not null"`
}

func (EntryModel) TableName() string { return "pd_exchanges" }
