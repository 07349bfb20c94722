package medication

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

var ErrRecordNotFound = errors.New("medication record not found")

// Record is the trial-medication diary entry for (patient, stage).
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID     `gorm:"column:patient_id;type:uuid;not null;index:idx_medication_lookup"`
	Stage     patient.Stage `gorm:"column:stage;type:varchar(10);not null;index:idx_medication_lookup"`

	DrugName  string     `gorm:"column:drug_name;type:varchar(200);not null"`
	Dosage    string     `gorm:"column:dosage;type:varchar(100)"`
	Frequency string     `gorm:"column:frequency;type:varchar(100)"`
	StartDate time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate   *time.Time `gorm:"column:end_date;type:date"`
	Notes     string     `gorm:"column:notes;type:text"`
}

func (Record) TableName() string {
	return "clinical.medication_records"
}

// Concomitant is a non-trial medication taken alongside the protocol drug.
// Recorded freely within a stage; only V2–V4 are evaluated for completion.
type Concomitant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PatientID uuid.UUID     `gorm:"column:patient_id;type:uuid;not null;index:idx_concomitant_lookup"`
	Stage     patient.Stage `gorm:"column:stage;type:varchar(10);not null;index:idx_concomitant_lookup"`

	DrugName string `gorm:"column:drug_name;type:varchar(200);not null"`
	Dosage   string `gorm:"column:dosage;type:varchar(100)"`
	Reason   string `gorm:"column:reason;type:text"`
}

func (Concomitant) TableName() string {
	return "clinical.concomitant_medications"
}
