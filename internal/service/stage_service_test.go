package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

func activePatient(stage patient.Stage) *patient.Patient {
	enrollment := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	p := &patient.Patient{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		DoctorID:       uuid.New(),
		Name:           "Test Patient",
		CurrentStage:   stage,
		Status:         patient.StatusActive,
		EnrollmentDate: enrollment,
	}
	w := protocol.Default().ComputeWindows(enrollment)
	p.SetWindow(patient.StageV2, w.V2.Start, w.V2.End)
	p.SetWindow(patient.StageV3, w.V3.Start, w.V3.End)
	p.SetWindow(patient.StageV4, w.V4.Start, w.V4.End)
	return p
}

// stubStageScales registers catalog and submission stubs for every scale the
// default protocol requires at the stage.
func stubStageScales(scales *mockScaleRepo, patientID uuid.UUID, stage patient.Stage, submitted bool) {
	for _, code := range protocol.Default().Requirements(stage).RequiredScales() {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, stage, cfg.ID).Return(submitted, nil)
	}
}

type stageServiceFixture struct {
	patients *mockPatientRepo
	scales   *mockScaleRepo
	meds     *mockMedicationRepo
	files    *mockMedFileRepo
	notifier *mockNotifier
	svc      *StageService
}

func newStageServiceFixture() *stageServiceFixture {
	f := &stageServiceFixture{
		patients: new(mockPatientRepo),
		scales:   new(mockScaleRepo),
		meds:     new(mockMedicationRepo),
		files:    new(mockMedFileRepo),
		notifier: new(mockNotifier),
	}
	proto := protocol.Default()
	checker := NewRequirementChecker(proto, f.scales, f.meds, f.files, zap.NewNop())
	f.svc = NewStageService(f.patients, checker, proto, &EventDrivenResolver{}, f.notifier, nil, zap.NewNop())
	return f
}

func TestCompleteStageReportsActualStageOnMismatch(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV3)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV2,
		Decision: DecisionApprove,
	})

	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, patient.StageV2, preErr.Expected)
	assert.Equal(t, patient.StageV3, preErr.Actual)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestCompleteStageTerminalPatientCannotProgress(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV2)
	p.Status = patient.StatusWithdrawn
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV2,
		Decision: DecisionApprove,
	})

	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestCompleteStageRejectRequiresReason(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV1)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV1,
		Decision: DecisionReject,
	})

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestCompleteStageRejectClearsLatchOnly(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV2)
	p.PendingReview = true
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	f.notifier.On("AuditResult", mock.Anything, p.UserID, p.ID, patient.StageV2, "rejected", "incomplete diary").Return()

	got, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:        patient.StageV2,
		Decision:     DecisionReject,
		RejectReason: "incomplete diary",
	})

	require.NoError(t, err)
	assert.False(t, got.PendingReview)
	assert.Equal(t, patient.StageV2, got.CurrentStage, "reject must not move the stage")
	assert.Nil(t, got.V2CompletedAt)
	f.notifier.AssertExpectations(t)
}

func TestCompleteStageApproveMissingRequirements(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV1)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubStageScales(f.scales, p.ID, patient.StageV1, false)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV1).Return(false, nil)

	_, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV1,
		Decision: DecisionApprove,
	})

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Contains(t, validErr.Fields, "AIS")
	assert.Contains(t, validErr.Fields, "medication record")
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestCompleteStageApproveAdvances(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV1)
	p.PendingReview = true
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubStageScales(f.scales, p.ID, patient.StageV1, true)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV1).Return(true, nil)
	f.notifier.On("StageApproved", mock.Anything, p.UserID, p.ID, patient.StageV1, patient.StageV2, mock.Anything).Return()

	got, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV1,
		Decision: DecisionApprove,
	})

	require.NoError(t, err)
	assert.Equal(t, patient.StageV2, got.CurrentStage)
	assert.Equal(t, patient.StatusActive, got.Status)
	assert.False(t, got.PendingReview)
	require.NotNil(t, got.V1CompletedAt)
	f.notifier.AssertExpectations(t)
}

func TestCompleteStageApproveV4ClosesTrial(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV4)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubStageScales(f.scales, p.ID, patient.StageV4, true)
	f.notifier.On("StageApproved", mock.Anything, p.UserID, p.ID, patient.StageV4, patient.StageCompleted, mock.Anything).Return()

	got, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:    patient.StageV4,
		Decision: DecisionApprove,
	})

	require.NoError(t, err)
	assert.Equal(t, patient.StageCompleted, got.CurrentStage)
	assert.Equal(t, patient.StatusCompleted, got.Status)
	require.NotNil(t, got.V4CompletedAt)
}

func TestCompleteStageWindowOverride(t *testing.T) {
	f := newStageServiceFixture()
	p := activePatient(patient.StageV1)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubStageScales(f.scales, p.ID, patient.StageV1, true)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV1).Return(true, nil)
	f.notifier.On("StageApproved", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	override := &protocol.Window{
		Start: time.Date(2024, 2, 1, 10, 30, 0, 0, time.Local),
		End:   time.Date(2024, 2, 5, 0, 0, 0, 0, time.Local),
	}
	got, err := f.svc.CompleteStage(context.Background(), p.ID, CompleteStageInput{
		Stage:          patient.StageV1,
		Decision:       DecisionApprove,
		WindowOverride: override,
	})

	require.NoError(t, err)
	start, end := got.Window(patient.StageV2)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), *start, "override start is truncated to the day")
	assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.Local), *end)
}
