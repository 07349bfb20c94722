package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

func scaleConfig(code string) *scale.Config {
	return &scale.Config{ID: uuid.New(), Code: code, Status: scale.ConfigActive, TotalItems: 8}
}

func newTestChecker(scales *mockScaleRepo, meds *mockMedicationRepo, files *mockMedFileRepo) *RequirementChecker {
	return NewRequirementChecker(protocol.Default(), scales, meds, files, zap.NewNop())
}

func TestCheckRequirementsPatientPartDoneDoctorPartMissing(t *testing.T) {
	scales := new(mockScaleRepo)
	meds := new(mockMedicationRepo)
	files := new(mockMedFileRepo)
	checker := newTestChecker(scales, meds, files)

	patientID := uuid.New()
	for _, code := range []string{"AIS", "ESS", "GAD7", "PHQ9"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, patient.StageV1, cfg.ID).Return(true, nil)
	}
	for _, code := range []string{"HAMA", "HAMD"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, patient.StageV1, cfg.ID).Return(false, nil)
	}
	meds.On("HasRecord", mock.Anything, patientID, patient.StageV1).Return(true, nil)

	partial, err := checker.CheckRequirements(context.Background(), patientID, patient.StageV1, ScopePatientOnly)
	require.NoError(t, err)
	assert.True(t, partial.PatientPartCompleted)
	assert.Empty(t, partial.Missing)

	full, err := checker.CheckRequirements(context.Background(), patientID, patient.StageV1, ScopeFull)
	require.NoError(t, err)
	assert.False(t, full.CanComplete)
	assert.ElementsMatch(t, []string{"HAMA", "HAMD"}, full.MissingNames())
}

func TestCheckRequirementsMissingMedicationRecord(t *testing.T) {
	scales := new(mockScaleRepo)
	meds := new(mockMedicationRepo)
	files := new(mockMedFileRepo)
	checker := newTestChecker(scales, meds, files)

	patientID := uuid.New()
	for _, code := range []string{"AIS", "ESS", "GAD7", "PHQ9"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, patient.StageV2, cfg.ID).Return(true, nil)
	}
	meds.On("HasRecord", mock.Anything, patientID, patient.StageV2).Return(false, nil)

	res, err := checker.CheckRequirements(context.Background(), patientID, patient.StageV2, ScopePatientOnly)
	require.NoError(t, err)
	assert.False(t, res.PatientPartCompleted)
	assert.Equal(t, []string{"medication record"}, res.MissingNames())
}

func TestCheckRequirementsV4NeedsNoMedicationRecord(t *testing.T) {
	scales := new(mockScaleRepo)
	meds := new(mockMedicationRepo)
	files := new(mockMedFileRepo)
	checker := newTestChecker(scales, meds, files)

	patientID := uuid.New()
	for _, code := range []string{"AIS", "ESS", "GAD7", "PHQ9"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, patient.StageV4, cfg.ID).Return(true, nil)
	}

	res, err := checker.CheckRequirements(context.Background(), patientID, patient.StageV4, ScopeFull)
	require.NoError(t, err)
	assert.True(t, res.CanComplete)
	meds.AssertNotCalled(t, "HasRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckRequirementsBrokenCatalogDegrades(t *testing.T) {
	scales := new(mockScaleRepo)
	meds := new(mockMedicationRepo)
	files := new(mockMedFileRepo)
	checker := newTestChecker(scales, meds, files)

	patientID := uuid.New()
	scales.On("GetConfigByCode", mock.Anything, "AIS").Return(nil, scale.ErrConfigNotFound)
	for _, code := range []string{"ESS", "GAD7", "PHQ9"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, patient.StageV4, cfg.ID).Return(true, nil)
	}

	res, err := checker.CheckRequirements(context.Background(), patientID, patient.StageV4, ScopeFull)
	require.NoError(t, err, "a broken catalog entry must not abort the check")
	assert.False(t, res.CanComplete)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "AIS", res.Missing[0].Name)
	assert.Contains(t, res.Missing[0].Message, "not configured")
	assert.Len(t, res.Completed, 3)
}
