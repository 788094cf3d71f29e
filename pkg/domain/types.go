package domain

import "time"

// DialysateStrength is the dextrose concentration label on a Baxter bag.
type DialysateStrength string

const (
	Strength15  DialysateStrength = "1.5%"
	Strength25  DialysateStrength = "2.5%"
	Strength425 DialysateStrength = "4.25%"
)

// Strengths lists the dialysate concentrations offered at entry creation.
var Strengths = []DialysateStrength{Strength15, Strength25, Strength425}

// Valid reports whether s is one of the offered concentrations.
func (s DialysateStrength) Valid() bool {
	switch s {
	case Strength15, Strength25, Strength425:
		return true
	}
	return false
}

// Modality is the patient's dialysis modality.
type Modality string

const (
	ModalityCAPD Modality = "capd"
	ModalityAPD  Modality = "apd"
)

// Patient links an authentication principal to a hospital identity.
type Patient struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	HospitalID   string    `json:"hospitalId"`
	Modality     Modality  `json:"modality"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Entry is one recorded PD exchange. FillVolumeMl and UFMl are derived
// at creation time from the raw volumes and stored alongside them.
// Positive UF means net fluid removed from the patient.
type Entry struct {
	ID                string            `json:"id"`
	PatientID         string            `json:"patientId"`
	Timestamp         time.Time         `json:"timestamp"`
	DialysateStrength DialysateStrength `json:"dialysateStrength"`
	BagVolumeMl       float64           `json:"bagVolumeMl"`
	LeftoverMl        float64           `json:"leftoverMl"`
	DrainVolumeMl     float64           `json:"drainVolumeMl"`
	FillVolumeMl      float64           `json:"fillVolumeMl"`
	UFMl              float64           `json:"ufMl"`
	WeightKg          *float64          `json:"weightKg,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Symptoms          map[string]bool   `json:"symptoms,omitempty"`
	ImageURL          string            `json:"imageUrl,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// TurnRole identifies who authored a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Attachment is a base64-encoded image staged for the next user turn.
type Attachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ConversationTurn is one message in an assistant conversation.
type ConversationTurn struct {
	Role       TurnRole    `json:"role"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// AssistantMode selects the system prompt for the next assistant request.
type AssistantMode string

const (
	ModeGeneral          AssistantMode = "general"
	ModePD               AssistantMode = "pd"
	ModeDietary          AssistantMode = "dietary"
	ModeClinicalSummary  AssistantMode = "clinicalSummary"
	ModeEmotionalSupport AssistantMode = "emotionalSupport"
)

// Modes lists every selectable assistant mode.
var Modes = []AssistantMode{
	ModeGeneral,
	ModePD,
	ModeDietary,
	ModeClinicalSummary,
	ModeEmotionalSupport,
}

// Valid reports whether m is a known assistant mode.
func (m AssistantMode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// TrendWindow scopes aggregation queries to a trailing period.
type TrendWindow string

const (
	WindowLast7Days  TrendWindow = "last7Days"
	WindowLast30Days TrendWindow = "last30Days"
)

// Days returns the window length in days, defaulting to 7.
func (w TrendWindow) Days() int {
	if w == WindowLast30Days {
		return 30
	}
	return 7
}

// Valid reports whether w is a known trend window.
func (w TrendWindow) Valid() bool {
	return w == WindowLast7Days || w == WindowLast30Days
}
