package medfile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

var ErrFileNotFound = errors.New("medical file not found")

// File is a reference to an uploaded medical document for (patient, stage).
// The object itself lives in external storage; StorageKey is opaque here.
type File struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PatientID uuid.UUID     `gorm:"column:patient_id;type:uuid;not null;index:idx_medfile_lookup"`
	Stage     patient.Stage `gorm:"column:stage;type:varchar(10);not null;index:idx_medfile_lookup"`

	FileName    string    `gorm:"column:file_name;type:varchar(255);not null"`
	ContentType string    `gorm:"column:content_type;type:varchar(100)"`
	SizeBytes   int64     `gorm:"column:size_bytes"`
	StorageKey  string    `gorm:"column:storage_key;type:varchar(500);not null"`
	UploadedBy  uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`
}

func (File) TableName() string {
	return "clinical.medical_files"
}

type Repository interface {
	Create(ctx context.Context, f *File) error

	// HasFile reports whether at least one file exists for (patientID, stage).
	HasFile(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error)
}
