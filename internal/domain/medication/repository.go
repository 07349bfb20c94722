package medication

import (
	"context"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

type Repository interface {
	CreateRecord(ctx context.Context, r *Record) error
	CreateConcomitant(ctx context.Context, c *Concomitant) error

	// HasRecord reports whether at least one medication record exists for
	// (patientID, stage).
	HasRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error)

	// HasConcomitant reports whether at least one concomitant medication
	// exists for (patientID, stage).
	HasConcomitant(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error)
}
