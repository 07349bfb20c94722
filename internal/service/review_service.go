package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"go.uber.org/zap"
)

var ErrAlreadyPendingReview = errors.New("patient is already pending review for this stage")

// DoctorDirectory resolves the user account behind a doctor record, for
// notification routing.
type DoctorDirectory interface {
	GetDoctorUserID(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error)
}

// ReviewService runs the submit-for-review half of the audit cycle. The
// pendingReview flag is a one-way latch: set here (explicitly or
// automatically), cleared only by an audit decision or stage advance.
type ReviewService struct {
	patients patient.Repository
	checker  *RequirementChecker
	doctors  DoctorDirectory
	notifier Notifier
	log      *zap.Logger
}

func NewReviewService(
	patients patient.Repository,
	checker *RequirementChecker,
	doctors DoctorDirectory,
	notifier Notifier,
	log *zap.Logger,
) *ReviewService {
	return &ReviewService{patients: patients, checker: checker, doctors: doctors, notifier: notifier, log: log}
}

// SubmitForReview latches pendingReview once the patient-fillable items for
// the current stage are complete, and notifies the assigned doctor. Fails
// when the trial is over, a review is already pending, or items are missing.
func (s *ReviewService) SubmitForReview(ctx context.Context, patientID uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if p.Status.IsTerminal() || p.CurrentStage == patient.StageCompleted {
		return nil, &PreconditionError{
			Op:     "submit for review",
			Reason: fmt.Sprintf("trial already %s for this patient", p.Status),
		}
	}
	if p.PendingReview {
		return nil, ErrAlreadyPendingReview
	}

	res, err := s.checker.CheckRequirements(ctx, p.ID, p.CurrentStage, ScopePatientOnly)
	if err != nil {
		return nil, fmt.Errorf("checking patient requirements: %w", err)
	}
	if !res.PatientPartCompleted {
		return nil, &ValidationError{Fields: res.MissingNames()}
	}

	p.PendingReview = true
	if err := s.patients.UpdateProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("setting pending review: %w", err)
	}

	s.notifyDoctor(ctx, p)

	s.log.Info("patient submitted for review",
		zap.String("patient_id", p.ID.String()),
		zap.String("stage", string(p.CurrentStage)),
	)
	return p, nil
}

// UpdatePendingReviewStatus is the idempotent hook invoked after any
// child-record mutation. It flips the latch the moment the patient-fillable
// set becomes complete; it never clears an already-set latch.
func (s *ReviewService) UpdatePendingReviewStatus(ctx context.Context, patientID uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}

	if p.PendingReview || p.Status.IsTerminal() || !p.CurrentStage.IsVisit() {
		return nil
	}

	res, err := s.checker.CheckRequirements(ctx, p.ID, p.CurrentStage, ScopePatientOnly)
	if err != nil {
		return fmt.Errorf("checking patient requirements: %w", err)
	}
	if !res.PatientPartCompleted {
		return nil
	}

	p.PendingReview = true
	if err := s.patients.UpdateProgress(ctx, p); err != nil {
		return fmt.Errorf("setting pending review: %w", err)
	}

	s.notifyDoctor(ctx, p)

	s.log.Info("pending review auto-latched",
		zap.String("patient_id", p.ID.String()),
		zap.String("stage", string(p.CurrentStage)),
	)
	return nil
}

func (s *ReviewService) notifyDoctor(ctx context.Context, p *patient.Patient) {
	doctorUserID, err := s.doctors.GetDoctorUserID(ctx, p.DoctorID)
	if err != nil {
		s.log.Warn("cannot resolve doctor user for review notification",
			zap.String("doctor_id", p.DoctorID.String()),
			zap.Error(err),
		)
		return
	}
	s.notifier.SubmittedForReview(ctx, doctorUserID, p.Name, p.CurrentStage, p.ID)
}
