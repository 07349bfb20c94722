package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"go.uber.org/zap"
)

// ScaleService handles the assessment-scale catalog and record submission.
// Every successful submission re-evaluates the pending-review latch.
type ScaleService struct {
	scales   scale.Repository
	patients patient.Repository
	reviews  *ReviewService
	log      *zap.Logger

	now func() time.Time
}

func NewScaleService(scales scale.Repository, patients patient.Repository, reviews *ReviewService, log *zap.Logger) *ScaleService {
	return &ScaleService{
		scales:   scales,
		patients: patients,
		reviews:  reviews,
		log:      log,
		now:      time.Now,
	}
}

// SubmitRecord validates and stores a scale submission, scoring it against
// the catalog rules. Duplicate submissions for the same (scale, stage) are
// rejected so completion checks stay unambiguous.
func (s *ScaleService) SubmitRecord(ctx context.Context, cmd *scale.SubmitRecordCommand) (*scale.Record, error) {
	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, &PreconditionError{
			Op:     "submit scale",
			Reason: fmt.Sprintf("trial already %s for this patient", p.Status),
		}
	}
	if !cmd.Stage.IsVisit() {
		return nil, patient.ErrInvalidStage
	}

	cfg, err := s.scales.GetConfigByCode(ctx, cmd.ScaleCode)
	if err != nil {
		return nil, err
	}
	if cfg.Status != scale.ConfigActive {
		return nil, scale.ErrConfigInactive
	}

	if len(cmd.Answers) != cfg.TotalItems {
		return nil, fmt.Errorf("%w: scale %s expects %d answers, got %d",
			scale.ErrAnswerCountWrong, cfg.Code, cfg.TotalItems, len(cmd.Answers))
	}

	exists, err := s.scales.HasSubmittedRecord(ctx, cmd.PatientID, cmd.Stage, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("checking existing record: %w", err)
	}
	if exists {
		return nil, &ValidationError{
			Fields: []string{fmt.Sprintf("scale %s already submitted for stage %s", cfg.Code, cmd.Stage)},
		}
	}

	total := 0
	for _, a := range cmd.Answers {
		total += a
	}
	level, desc := cfg.Score(total)

	rec := &scale.Record{
		PatientID:   cmd.PatientID,
		ScaleID:     cfg.ID,
		Stage:       cmd.Stage,
		Answers:     cmd.Answers,
		TotalScore:  total,
		Level:       level,
		Description: desc,
		SubmittedAt: s.now(),
	}
	if err := s.scales.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving scale record: %w", err)
	}

	s.log.Info("scale record submitted",
		zap.String("patient_id", cmd.PatientID.String()),
		zap.String("scale_code", cfg.Code),
		zap.String("stage", string(cmd.Stage)),
		zap.Int("total_score", total),
	)

	// Auto-latch check runs best-effort: the record is already saved.
	if err := s.reviews.UpdatePendingReviewStatus(ctx, cmd.PatientID); err != nil {
		s.log.Warn("pending review re-evaluation failed after scale submission",
			zap.String("patient_id", cmd.PatientID.String()),
			zap.Error(err),
		)
	}
	return rec, nil
}

// ListCatalog returns scale catalog entries, optionally filtered by status.
func (s *ScaleService) ListCatalog(ctx context.Context, status *scale.ConfigStatus) ([]*scale.Config, error) {
	return s.scales.ListConfigs(ctx, status)
}

// ListPatientRecords returns the records a patient submitted within a stage.
func (s *ScaleService) ListPatientRecords(ctx context.Context, patientID uuid.UUID, stage patient.Stage) ([]*scale.Record, error) {
	return s.scales.ListByPatientStage(ctx, patientID, stage)
}
