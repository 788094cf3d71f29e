package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"careassist/internal/util"
	"careassist/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&PatientModel{}, &EntryModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreatePatient registers a new patient. The unique index on email backs
// ErrDuplicateEmail even when two signups race.
func (s *GormStore) CreatePatient(p domain.Patient) error {
	model := patientToModel(p)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// HasPatientEmail checks if email exists.
func (s *GormStore) HasPatientEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&PatientModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetPatientByEmail looks up a patient by email.
func (s *GormStore) GetPatientByEmail(email string) (domain.Patient, bool, error) {
	var model PatientModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Patient{}, false, nil
		}
		return domain.Patient{}, false, err
	}
	return patientFromModel(model), true, nil
}

// GetPatientByID returns a patient by ID.
func (s *GormStore) GetPatientByID(id string) (domain.Patient, bool, error) {
	var model PatientModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Patient{}, false, nil
		}
		return domain.Patient{}, false, err
	}
	return patientFromModel(model), true, nil
}

// InsertEntry stores an exchange entry, assigning an ID when missing.
func (s *GormStore) InsertEntry(e domain.Entry) (domain.Entry, error) {
	if e.ID == "" {
		e.ID = util.NewID()
	}
	model, err := entryToModel(e)
	if err != nil {
		return domain.Entry{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Entry{}, err
	}
	return entryFromModel(model)
}

// ListEntries returns the patient's entries constrained by q.
func (s *GormStore) ListEntries(patientID string, q EntryQuery) ([]domain.Entry, error) {
	tx := s.db.Where("patient_id = ?", patientID)
	if q.From != nil {
		tx = tx.Where("timestamp >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("timestamp <= ?", *q.To)
	}
	order := "timestamp ASC"
	if q.Descending {
		order = "timestamp DESC"
	}
	tx = tx.Order(order)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var models []EntryModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Entry, 0, len(models))
	for _, m := range models {
		e, err := entryFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// LatestEntry returns the most recent entry for the patient.
func (s *GormStore) LatestEntry(patientID string) (domain.Entry, bool, error) {
	entries, err := s.ListEntries(patientID, EntryQuery{Descending: true, Limit: 1})
	if err != nil {
		return domain.Entry{}, false, err
	}
	if len(entries) == 0 {
		return domain.Entry{}, false, nil
	}
	return entries[0], true, nil
}

func patientToModel(p domain.Patient) PatientModel {
	return PatientModel{
		ID:           p.ID,
		Email:        p.Email,
		Username:     p.Username,
		HospitalID:   p.HospitalID,
		Modality:     string(p.Modality),
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt,
	}
}

func patientFromModel(m PatientModel) domain.Patient {
	return domain.Patient{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		HospitalID:   m.HospitalID,
		Modality:     domain.Modality(m.Modality),
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func entryToModel(e domain.Entry) (EntryModel, error) {
	model := EntryModel{
		ID:                e.ID,
		PatientID:         e.PatientID,
		Timestamp:         e.Timestamp,
		DialysateStrength: string(e.DialysateStrength),
		BagVolumeMl:       e.BagVolumeMl,
		LeftoverMl:        e.LeftoverMl,
		DrainVolumeMl:     e.DrainVolumeMl,
		FillVolumeMl:      e.FillVolumeMl,
		UFMl:              e.UFMl,
		WeightKg:          e.WeightKg,
		Notes:             e.Notes,
		ImageURL:          e.ImageURL,
		CreatedAt:         e.CreatedAt,
	}
	if len(e.Symptoms) > 0 {
		raw, err := json.Marshal(e.Symptoms)
		if err != nil {
			return EntryModel{}, fmt.Errorf("marshal symptoms: %w", err)
		}
		model.Symptoms = datatypes.JSON(raw)
	}
	return model, nil
}

func entryFromModel(m EntryModel) (domain.Entry, error) {
	e := domain.Entry{
		ID:                m.ID,
		PatientID:         m.PatientID,
		Timestamp:         m.Timestamp,
		DialysateStrength: domain.DialysateStrength(m.DialysateStrength),
		BagVolumeMl:       m.BagVolumeMl,
		LeftoverMl:        m.LeftoverMl,
		DrainVolumeMl:     m.DrainVolumeMl,
		FillVolumeMl:      m.FillVolumeMl,
		UFMl:              m.UFMl,
		WeightKg:          m.WeightKg,
		Notes:             m.Notes,
		ImageURL:          m.ImageURL,
		CreatedAt:         m.CreatedAt,
	}
	if len(m.Symptoms) > 0 {
		if err := json.Unmarshal(m.Symptoms, &e.Symptoms); err != nil {
			return domain.Entry{}, fmt.Errorf("unmarshal symptoms: %w", err)
		}
	}
	return e, nil
}
