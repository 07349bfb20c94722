package scale

import (
	"context"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

type Repository interface {
	// GetConfigByCode looks up a catalog entry. Returns ErrConfigNotFound
	// when the code is not in the catalog.
	GetConfigByCode(ctx context.Context, code string) (*Config, error)

	// ListConfigs returns catalog entries, optionally filtered by status.
	ListConfigs(ctx context.Context, status *ConfigStatus) ([]*Config, error)

	// CreateRecord persists a submitted scale record.
	CreateRecord(ctx context.Context, r *Record) error

	// HasSubmittedRecord reports whether a record exists for
	// (patientID, stage, scaleID). Existence only, no row fetch.
	HasSubmittedRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage, scaleID uuid.UUID) (bool, error)

	// ListByPatientStage returns all records a patient submitted in a stage.
	ListByPatientStage(ctx context.Context, patientID uuid.UUID, stage patient.Stage) ([]*Record, error)
}
