package app

import (
	"errors"
	"fmt"
	"strings"

	"careassist/internal/util"
	"careassist/pkg/auth"
	"careassist/pkg/domain"
	"careassist/pkg/store"
)

// SignupInput carries the fields collected on the signup form.
type SignupInput struct {
	Username   string
	Email      string
	HospitalID string
	Modality   domain.Modality
	Password   string
}

// Signup registers a patient and returns the profile with a session token.
func (a *App) Signup(in SignupInput) (domain.Patient, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.HospitalID = strings.TrimSpace(in.HospitalID)
	if in.Username == "" {
		return domain.Patient{}, "", invalidField("username", "required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return domain.Patient{}, "", invalidField("email", "a valid email is required")
	}
	if in.HospitalID == "" {
		return domain.Patient{}, "", invalidField("hospitalId", "required")
	}
	if in.Modality == "" {
		in.Modality = domain.ModalityCAPD
	}
	if in.Modality != domain.ModalityCAPD && in.Modality != domain.ModalityAPD {
		return domain.Patient{}, "", invalidField("modality", "must be capd or apd")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.Patient{}, "", invalidField("password", err.Error())
	}

	taken, err := a.store.HasPatientEmail(in.Email)
	if err != nil {
		return domain.Patient{}, "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.Patient{}, "", ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Patient{}, "", fmt.Errorf("hash password: %w", err)
	}
	patient := domain.Patient{
		ID:           util.NewID(),
		Email:        in.Email,
		Username:     in.Username,
		HospitalID:   in.HospitalID,
		Modality:     in.Modality,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.CreatePatient(patient); err != nil {
		// A signup racing past the existence check lands here.
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.Patient{}, "", ErrEmailTaken
		}
		return domain.Patient{}, "", fmt.Errorf("create patient: %w", err)
	}
	token, err := a.tokens.Issue(patient.ID)
	if err != nil {
		return domain.Patient{}, "", fmt.Errorf("issue token: %w", err)
	}
	return patient, token, nil
}

// Login authenticates a patient by email and password.
func (a *App) Login(email, password string) (domain.Patient, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	patient, ok, err := a.store.GetPatientByEmail(email)
	if err != nil {
		return domain.Patient{}, "", fmt.Errorf("load patient: %w", err)
	}
	if !ok || !auth.CheckPassword(password, patient.PasswordHash) {
		return domain.Patient{}, "", ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(patient.ID)
	if err != nil {
		return domain.Patient{}, "", fmt.Errorf("issue token: %w", err)
	}
	return patient, token, nil
}

// Profile returns the patient's profile record.
func (a *App) Profile(patientID string) (domain.Patient, error) {
	patient, ok, err := a.store.GetPatientByID(patientID)
	if err != nil {
		return domain.Patient{}, fmt.Errorf("load patient: %w", err)
	}
	if !ok {
		return domain.Patient{}, ErrPatientNotFound
	}
	return patient, nil
}
