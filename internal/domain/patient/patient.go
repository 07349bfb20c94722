package patient

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a protocol visit checkpoint. Patients move forward through
// V1 → V2 → V3 → V4 → completed and never regress.
type Stage string

const (
	StageV1        Stage = "V1"
	StageV2        Stage = "V2"
	StageV3        Stage = "V3"
	StageV4        Stage = "V4"
	StageCompleted Stage = "completed"
)

var stageOrder = []Stage{StageV1, StageV2, StageV3, StageV4, StageCompleted}

func (s Stage) IsValid() bool {
	switch s {
	case StageV1, StageV2, StageV3, StageV4, StageCompleted:
		return true
	}
	return false
}

// IsVisit reports whether the stage is one of the four clinic visits.
func (s Stage) IsVisit() bool {
	return s.IsValid() && s != StageCompleted
}

// Index returns the position of the stage in the protocol ordering.
// Unknown stages sort before V1.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the successor stage. ok is false for the terminal stage
// and for unknown values.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(stageOrder)-1 {
		return s, false
	}
	return stageOrder[i+1], true
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusWithdrawn Status = "withdrawn"
)

func (st Status) IsValid() bool {
	switch st {
	case StatusActive, StatusCompleted, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the patient's participation.
func (st Status) IsTerminal() bool {
	return st == StatusCompleted || st == StatusWithdrawn
}

// Patient is the aggregate root for trial progression. Window dates are
// calendar days; completion stamps are instants.
type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	DoctorID   uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`
	HospitalID uuid.UUID `gorm:"column:hospital_id;type:uuid;not null;index"`

	PatientNo string `gorm:"column:patient_no;type:varchar(50);uniqueIndex;not null"`
	// Denormalized from the user record so notification intents can carry
	// the display name without a cross-aggregate read.
	Name string `gorm:"column:name;type:varchar(100);not null"`

	EmergencyContact string `gorm:"column:emergency_contact;type:varchar(100)"`
	EmergencyPhone   string `gorm:"column:emergency_phone;type:varchar(20)"`
	Diagnosis        string `gorm:"column:diagnosis;type:text"`

	CurrentStage   Stage     `gorm:"column:current_stage;type:varchar(10);not null;default:'V1';index"`
	Status         Status    `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
	EnrollmentDate time.Time `gorm:"column:enrollment_date;type:date;not null"`

	V1CompletedAt *time.Time `gorm:"column:v1_completed_at"`
	V2CompletedAt *time.Time `gorm:"column:v2_completed_at"`
	V3CompletedAt *time.Time `gorm:"column:v3_completed_at"`
	V4CompletedAt *time.Time `gorm:"column:v4_completed_at"`

	V2WindowStart *time.Time `gorm:"column:v2_window_start;type:date"`
	V2WindowEnd   *time.Time `gorm:"column:v2_window_end;type:date"`
	V3WindowStart *time.Time `gorm:"column:v3_window_start;type:date"`
	V3WindowEnd   *time.Time `gorm:"column:v3_window_end;type:date"`
	V4WindowStart *time.Time `gorm:"column:v4_window_start;type:date"`
	V4WindowEnd   *time.Time `gorm:"column:v4_window_end;type:date"`

	PendingReview bool `gorm:"column:pending_review;not null;default:false;index"`

	WithdrawnAt    *time.Time `gorm:"column:withdrawn_at"`
	WithdrawReason string     `gorm:"column:withdraw_reason;type:text"`
	WithdrawStage  Stage      `gorm:"column:withdraw_stage;type:varchar(10)"`

	// Version guards progression writes against concurrent approvals.
	Version int `gorm:"column:version;not null;default:0"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

// Window returns the stored window boundaries for a visit stage.
// V1 has no window: it opens at enrollment.
func (p *Patient) Window(stage Stage) (start, end *time.Time) {
	switch stage {
	case StageV2:
		return p.V2WindowStart, p.V2WindowEnd
	case StageV3:
		return p.V3WindowStart, p.V3WindowEnd
	case StageV4:
		return p.V4WindowStart, p.V4WindowEnd
	}
	return nil, nil
}

// SetWindow stores window boundaries for a visit stage. Only V2–V4 carry
// windows; anything else is a programming error.
func (p *Patient) SetWindow(stage Stage, start, end time.Time) {
	switch stage {
	case StageV2:
		p.V2WindowStart, p.V2WindowEnd = &start, &end
	case StageV3:
		p.V3WindowStart, p.V3WindowEnd = &start, &end
	case StageV4:
		p.V4WindowStart, p.V4WindowEnd = &start, &end
	default:
		panic("patient: no window for stage " + string(stage))
	}
}

// CompletedAt returns the completion stamp for a visit stage, nil if the
// stage has not been completed.
func (p *Patient) CompletedAt(stage Stage) *time.Time {
	switch stage {
	case StageV1:
		return p.V1CompletedAt
	case StageV2:
		return p.V2CompletedAt
	case StageV3:
		return p.V3CompletedAt
	case StageV4:
		return p.V4CompletedAt
	}
	return nil
}

// StampCompleted records the completion instant for a visit stage.
func (p *Patient) StampCompleted(stage Stage, at time.Time) {
	switch stage {
	case StageV1:
		p.V1CompletedAt = &at
	case StageV2:
		p.V2CompletedAt = &at
	case StageV3:
		p.V3CompletedAt = &at
	case StageV4:
		p.V4CompletedAt = &at
	default:
		panic("patient: cannot stamp completion for stage " + string(stage))
	}
}

type RegisterPatientCommand struct {
	UserID           uuid.UUID
	DoctorID         uuid.UUID
	HospitalID       uuid.UUID
	Name             string
	EmergencyContact string
	EmergencyPhone   string
	Diagnosis        string
	EnrollmentDate   time.Time
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	DoctorID     *uuid.UUID
	HospitalID   *uuid.UUID
	CurrentStage *Stage
	Status       *Status
	Name         string // fuzzy match
	PatientNo    string
	Page         int
	PageSize     int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
