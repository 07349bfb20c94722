package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists when the
	// user already has a patient record.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByUserID retrieves the patient record linked to a user account.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)

	// UpdateProgress applies the progression fields (stage, status, windows,
	// completion stamps, pendingReview, withdrawal metadata) as a single
	// version-guarded write. Returns ErrConcurrentUpdate when the stored
	// version no longer matches p.Version. On success p.Version is bumped.
	UpdateProgress(ctx context.Context, p *Patient) error

	// List returns a paginated, filtered list of patients.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// ListActive returns all patients with status=active, for the daily sweep.
	ListActive(ctx context.Context) ([]*Patient, error)
}
