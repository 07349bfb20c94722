package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

type scaleServiceFixture struct {
	scales   *mockScaleRepo
	patients *mockPatientRepo
	svc      *ScaleService
}

func newScaleServiceFixture() *scaleServiceFixture {
	f := &scaleServiceFixture{
		scales:   new(mockScaleRepo),
		patients: new(mockPatientRepo),
	}
	checker := NewRequirementChecker(protocol.Default(), f.scales, new(mockMedicationRepo), new(mockMedFileRepo), zap.NewNop())
	reviews := NewReviewService(f.patients, checker, new(mockDoctorDirectory), new(mockNotifier), zap.NewNop())
	f.svc = NewScaleService(f.scales, f.patients, reviews, zap.NewNop())
	return f
}

func scoredConfig() *scale.Config {
	cfg := scaleConfig("PHQ9")
	cfg.TotalItems = 9
	cfg.Scoring = &scale.ScoringRules{Ranges: []scale.ScoringRange{
		{Min: 0, Max: 4, Level: "minimal", Description: "Minimal depression"},
		{Min: 5, Max: 9, Level: "mild", Description: "Mild depression"},
		{Min: 10, Max: 27, Level: "moderate or worse", Description: "Clinically significant"},
	}}
	return cfg
}

func TestSubmitRecordScoresAgainstCatalog(t *testing.T) {
	f := newScaleServiceFixture()
	p := activePatient(patient.StageV2)
	// Latch already set: the post-submit hook short-circuits.
	p.PendingReview = true
	cfg := scoredConfig()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.scales.On("GetConfigByCode", mock.Anything, "PHQ9").Return(cfg, nil)
	f.scales.On("HasSubmittedRecord", mock.Anything, p.ID, patient.StageV2, cfg.ID).Return(false, nil)
	f.scales.On("CreateRecord", mock.Anything, mock.Anything).Return(nil)

	rec, err := f.svc.SubmitRecord(context.Background(), &scale.SubmitRecordCommand{
		PatientID: p.ID,
		ScaleCode: "PHQ9",
		Stage:     patient.StageV2,
		Answers:   []int{1, 0, 2, 1, 0, 1, 0, 1, 0},
	})

	require.NoError(t, err)
	assert.Equal(t, 6, rec.TotalScore)
	assert.Equal(t, "mild", rec.Level)
	assert.Equal(t, cfg.ID, rec.ScaleID)
}

func TestSubmitRecordWrongAnswerCount(t *testing.T) {
	f := newScaleServiceFixture()
	p := activePatient(patient.StageV2)
	cfg := scoredConfig()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.scales.On("GetConfigByCode", mock.Anything, "PHQ9").Return(cfg, nil)

	_, err := f.svc.SubmitRecord(context.Background(), &scale.SubmitRecordCommand{
		PatientID: p.ID,
		ScaleCode: "PHQ9",
		Stage:     patient.StageV2,
		Answers:   []int{1, 2, 3},
	})

	assert.ErrorIs(t, err, scale.ErrAnswerCountWrong)
	f.scales.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestSubmitRecordRejectsDuplicate(t *testing.T) {
	f := newScaleServiceFixture()
	p := activePatient(patient.StageV2)
	cfg := scoredConfig()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.scales.On("GetConfigByCode", mock.Anything, "PHQ9").Return(cfg, nil)
	f.scales.On("HasSubmittedRecord", mock.Anything, p.ID, patient.StageV2, cfg.ID).Return(true, nil)

	_, err := f.svc.SubmitRecord(context.Background(), &scale.SubmitRecordCommand{
		PatientID: p.ID,
		ScaleCode: "PHQ9",
		Stage:     patient.StageV2,
		Answers:   []int{1, 0, 2, 1, 0, 1, 0, 1, 0},
	})

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	f.scales.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestSubmitRecordRejectsInactiveScale(t *testing.T) {
	f := newScaleServiceFixture()
	p := activePatient(patient.StageV2)
	cfg := scoredConfig()
	cfg.Status = scale.ConfigInactive

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.scales.On("GetConfigByCode", mock.Anything, "PHQ9").Return(cfg, nil)

	_, err := f.svc.SubmitRecord(context.Background(), &scale.SubmitRecordCommand{
		PatientID: p.ID,
		ScaleCode: "PHQ9",
		Stage:     patient.StageV2,
		Answers:   []int{1, 0, 2, 1, 0, 1, 0, 1, 0},
	})

	assert.ErrorIs(t, err, scale.ErrConfigInactive)
}

func TestSubmitRecordRejectsTerminalPatient(t *testing.T) {
	f := newScaleServiceFixture()
	p := activePatient(patient.StageV2)
	p.Status = patient.StatusWithdrawn

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.SubmitRecord(context.Background(), &scale.SubmitRecordCommand{
		PatientID: p.ID,
		ScaleCode: "PHQ9",
		Stage:     patient.StageV2,
		Answers:   []int{1},
	})

	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
}
