// Package store persists patients and PD exchange entries.
package store

import (
	"errors"
	"time"

	"careassist/pkg/domain"
)

// ErrDuplicateEmail is returned by CreatePatient when the email is already
// registered, including when a concurrent signup wins the race after the
// caller's existence check.
var ErrDuplicateEmail = errors.New("email already registered")

// EntryQuery narrows an entry listing. Nil bounds are open; a zero Limit
// means unlimited.
type EntryQuery struct {
	From       *time.Time
	To         *time.Time
	Descending bool
	Limit      int
}

// Store is the durable record store behind the application. Entries are
// append-only: there is no update or delete operation.
type Store interface {
	CreatePatient(p domain.Patient) error
	HasPatientEmail(email string) (bool, error)
	GetPatientByEmail(email string) (domain.Patient, bool, error)
	GetPatientByID(id string) (domain.Patient, bool, error)

	// InsertEntry stores the entry, assigning an ID when none is set,
	// and returns the stored record.
	InsertEntry(e domain.Entry) (domain.Entry, error)
	ListEntries(patientID string, q EntryQuery) ([]domain.Entry, error)
	// LatestEntry returns the single most recent entry for the patient.
	LatestEntry(patientID string) (domain.Entry, bool, error)
}
