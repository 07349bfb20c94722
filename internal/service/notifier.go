package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

// Notifier emits fire-and-forget notification intents. Implementations must
// never fail the triggering business operation: delivery problems are theirs
// to log and swallow.
type Notifier interface {
	// StageApproved tells the patient their visit was approved and what the
	// next stage requires.
	StageApproved(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, from, to patient.Stage, requiredItems []string)

	// AuditResult tells the patient the outcome of a visit review.
	AuditResult(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, stage patient.Stage, result string, remark string)

	// SubmittedForReview tells the assigned doctor a patient finished their
	// fillable items and awaits audit.
	SubmittedForReview(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID)

	// WithdrawalNotice tells the assigned doctor a patient exited early.
	WithdrawalNotice(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID, reason string)

	// StageExpiring reminds the patient their current visit window closes in
	// daysLeft days.
	StageExpiring(ctx context.Context, userID uuid.UUID, stage patient.Stage, daysLeft int, patientID uuid.UUID)
}
