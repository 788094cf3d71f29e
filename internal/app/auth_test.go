package app

import (
	"errors"
	"testing"

	"careassist/pkg/domain"
	"careassist/pkg/store"
)

func TestSignupAndLogin(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{reply: "ok"})

	patient, token, err := a.Signup(SignupInput{
		Username:   "Mina",
		Email:      "  Mina@Example.com ",
		HospitalID: "H-1042",
		Password:   "Str0ngPassword",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if patient.Email != "mina@example.com" {
		t.Fatalf("email not normalized: %q", patient.Email)
	}
	if patient.Modality != domain.ModalityCAPD {
		t.Fatalf("modality default = %q, want capd", patient.Modality)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	got, loginToken, err := a.Login("mina@example.com", "Str0ngPassword")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != patient.ID || loginToken == "" {
		t.Fatalf("login returned wrong patient or empty token")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	seedPatient(t, a)

	_, _, err := a.Signup(SignupInput{
		Username:   "Other",
		Email:      "mina@example.com",
		HospitalID: "H-2",
		Password:   "Str0ngPassword",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

// racingStore makes the pre-create existence check miss, as it does when
// another signup commits between the check and the insert.
type racingStore struct {
	*store.MemoryStore
}

func (r *racingStore) HasPatientEmail(string) (bool, error) { return false, nil }

func TestSignupDuplicateEmailRace(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestAppWithStore(t, &fakeCompleter{}, &racingStore{MemoryStore: st})
	seedPatient(t, a)

	_, _, err := a.Signup(SignupInput{
		Username:   "Other",
		Email:      "mina@example.com",
		HospitalID: "H-2",
		Password:   "Str0ngPassword",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken from the insert path", err)
	}
}

func TestSignupValidation(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	cases := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"missing username", SignupInput{Email: "a@b.c", HospitalID: "H", Password: "Str0ngPassword"}, "username"},
		{"bad email", SignupInput{Username: "u", Email: "nope", HospitalID: "H", Password: "Str0ngPassword"}, "email"},
		{"missing hospital id", SignupInput{Username: "u", Email: "a@b.c", Password: "Str0ngPassword"}, "hospitalId"},
		{"bad modality", SignupInput{Username: "u", Email: "a@b.c", HospitalID: "H", Modality: "hd", Password: "Str0ngPassword"}, "modality"},
		{"weak password", SignupInput{Username: "u", Email: "a@b.c", HospitalID: "H", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := a.Signup(tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	seedPatient(t, a)

	if _, _, err := a.Login("mina@example.com", "WrongPassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := a.Login("nobody@example.com", "Str0ngPassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestProfile(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	got, err := a.Profile(patient.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got.HospitalID != "H-1042" {
		t.Fatalf("hospital id = %q", got.HospitalID)
	}
	if _, err := a.Profile("missing"); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}
