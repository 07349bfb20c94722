package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"go.uber.org/zap"
)

// RecordService handles the non-scale child records a stage may require:
// medication diary entries, concomitant medications, and medical file
// references. Each write re-evaluates the pending-review latch.
type RecordService struct {
	patients patient.Repository
	meds     medication.Repository
	files    medfile.Repository
	reviews  *ReviewService
	log      *zap.Logger
}

func NewRecordService(
	patients patient.Repository,
	meds medication.Repository,
	files medfile.Repository,
	reviews *ReviewService,
	log *zap.Logger,
) *RecordService {
	return &RecordService{patients: patients, meds: meds, files: files, reviews: reviews, log: log}
}

type CreateMedicationInput struct {
	PatientID uuid.UUID
	Stage     patient.Stage
	DrugName  string
	Dosage    string
	Frequency string
	StartDate time.Time
	EndDate   *time.Time
	Notes     string
}

func (s *RecordService) CreateMedicationRecord(ctx context.Context, in CreateMedicationInput) (*medication.Record, error) {
	if err := s.checkWritable(ctx, in.PatientID, in.Stage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.DrugName) == "" {
		return nil, &ValidationError{Fields: []string{"drug name is required"}}
	}
	if in.StartDate.IsZero() {
		return nil, &ValidationError{Fields: []string{"start date is required"}}
	}

	rec := &medication.Record{
		PatientID: in.PatientID,
		Stage:     in.Stage,
		DrugName:  strings.TrimSpace(in.DrugName),
		Dosage:    in.Dosage,
		Frequency: in.Frequency,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Notes:     in.Notes,
	}
	if err := s.meds.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving medication record: %w", err)
	}

	s.relatch(ctx, in.PatientID, "medication record")
	return rec, nil
}

type CreateConcomitantInput struct {
	PatientID uuid.UUID
	Stage     patient.Stage
	DrugName  string
	Dosage    string
	Reason    string
}

func (s *RecordService) CreateConcomitantMedication(ctx context.Context, in CreateConcomitantInput) (*medication.Concomitant, error) {
	if err := s.checkWritable(ctx, in.PatientID, in.Stage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.DrugName) == "" {
		return nil, &ValidationError{Fields: []string{"drug name is required"}}
	}

	c := &medication.Concomitant{
		PatientID: in.PatientID,
		Stage:     in.Stage,
		DrugName:  strings.TrimSpace(in.DrugName),
		Dosage:    in.Dosage,
		Reason:    in.Reason,
	}
	if err := s.meds.CreateConcomitant(ctx, c); err != nil {
		return nil, fmt.Errorf("saving concomitant medication: %w", err)
	}

	s.relatch(ctx, in.PatientID, "concomitant medication")
	return c, nil
}

type CreateMedicalFileInput struct {
	PatientID   uuid.UUID
	Stage       patient.Stage
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	UploadedBy  uuid.UUID
}

func (s *RecordService) CreateMedicalFile(ctx context.Context, in CreateMedicalFileInput) (*medfile.File, error) {
	if err := s.checkWritable(ctx, in.PatientID, in.Stage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FileName) == "" || strings.TrimSpace(in.StorageKey) == "" {
		return nil, &ValidationError{Fields: []string{"file name and storage key are required"}}
	}

	f := &medfile.File{
		PatientID:   in.PatientID,
		Stage:       in.Stage,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		StorageKey:  in.StorageKey,
		UploadedBy:  in.UploadedBy,
	}
	if err := s.files.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("saving medical file: %w", err)
	}

	s.relatch(ctx, in.PatientID, "medical file")
	return f, nil
}

func (s *RecordService) checkWritable(ctx context.Context, patientID uuid.UUID, stage patient.Stage) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return &PreconditionError{
			Op:     "create record",
			Reason: fmt.Sprintf("trial already %s for this patient", p.Status),
		}
	}
	if !stage.IsVisit() {
		return patient.ErrInvalidStage
	}
	return nil
}

func (s *RecordService) relatch(ctx context.Context, patientID uuid.UUID, kind string) {
	if err := s.reviews.UpdatePendingReviewStatus(ctx, patientID); err != nil {
		s.log.Warn("pending review re-evaluation failed",
			zap.String("patient_id", patientID.String()),
			zap.String("after", kind),
			zap.Error(err),
		)
	}
}
