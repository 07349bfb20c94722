package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

type reviewServiceFixture struct {
	patients *mockPatientRepo
	scales   *mockScaleRepo
	meds     *mockMedicationRepo
	files    *mockMedFileRepo
	doctors  *mockDoctorDirectory
	notifier *mockNotifier
	svc      *ReviewService
}

func newReviewServiceFixture() *reviewServiceFixture {
	f := &reviewServiceFixture{
		patients: new(mockPatientRepo),
		scales:   new(mockScaleRepo),
		meds:     new(mockMedicationRepo),
		files:    new(mockMedFileRepo),
		doctors:  new(mockDoctorDirectory),
		notifier: new(mockNotifier),
	}
	checker := NewRequirementChecker(protocol.Default(), f.scales, f.meds, f.files, zap.NewNop())
	f.svc = NewReviewService(f.patients, checker, f.doctors, f.notifier, zap.NewNop())
	return f
}

// stubPatientScales registers stubs for the patient-fillable scales only.
func stubPatientScales(scales *mockScaleRepo, patientID uuid.UUID, stage patient.Stage, submitted bool) {
	for _, code := range protocol.Default().Requirements(stage).PatientScales {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, stage, cfg.ID).Return(submitted, nil)
	}
}

func TestSubmitForReviewLatchesAndNotifiesDoctor(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV2)
	doctorUserID := uuid.New()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubPatientScales(f.scales, p.ID, patient.StageV2, true)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV2).Return(true, nil)
	f.doctors.On("GetDoctorUserID", mock.Anything, p.DoctorID).Return(doctorUserID, nil)
	f.notifier.On("SubmittedForReview", mock.Anything, doctorUserID, p.Name, patient.StageV2, p.ID).Return()

	got, err := f.svc.SubmitForReview(context.Background(), p.ID)

	require.NoError(t, err)
	assert.True(t, got.PendingReview)
	f.notifier.AssertExpectations(t)
}

func TestSubmitForReviewFailsWhenAlreadyPending(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV2)
	p.PendingReview = true
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.SubmitForReview(context.Background(), p.ID)

	assert.ErrorIs(t, err, ErrAlreadyPendingReview)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestSubmitForReviewFailsWithMissingItems(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV2)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubPatientScales(f.scales, p.ID, patient.StageV2, false)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV2).Return(true, nil)

	_, err := f.svc.SubmitForReview(context.Background(), p.ID)

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Contains(t, validErr.Fields, "AIS")
}

func TestSubmitForReviewRejectsTerminalPatient(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV3)
	p.Status = patient.StatusWithdrawn
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	_, err := f.svc.SubmitForReview(context.Background(), p.ID)

	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
}

func TestUpdatePendingReviewStatusAutoLatches(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV3)
	doctorUserID := uuid.New()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubPatientScales(f.scales, p.ID, patient.StageV3, true)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV3).Return(true, nil)
	f.doctors.On("GetDoctorUserID", mock.Anything, p.DoctorID).Return(doctorUserID, nil)
	f.notifier.On("SubmittedForReview", mock.Anything, doctorUserID, p.Name, patient.StageV3, p.ID).Return()

	require.NoError(t, f.svc.UpdatePendingReviewStatus(context.Background(), p.ID))
	assert.True(t, p.PendingReview)
}

func TestUpdatePendingReviewStatusIsIdempotent(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV3)
	p.PendingReview = true
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	require.NoError(t, f.svc.UpdatePendingReviewStatus(context.Background(), p.ID))
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SubmittedForReview",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePendingReviewStatusNeverClearsLatch(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV3)
	p.PendingReview = true
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	// Even if the patient part were incomplete, an already-set latch stays.
	require.NoError(t, f.svc.UpdatePendingReviewStatus(context.Background(), p.ID))
	assert.True(t, p.PendingReview)
}

func TestUpdatePendingReviewStatusSkipsIncomplete(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV3)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubPatientScales(f.scales, p.ID, patient.StageV3, false)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV3).Return(false, nil)

	require.NoError(t, f.svc.UpdatePendingReviewStatus(context.Background(), p.ID))
	assert.False(t, p.PendingReview)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}

func TestSubmitForReviewSurvivesDoctorLookupFailure(t *testing.T) {
	f := newReviewServiceFixture()
	p := activePatient(patient.StageV2)

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubPatientScales(f.scales, p.ID, patient.StageV2, true)
	f.meds.On("HasRecord", mock.Anything, p.ID, patient.StageV2).Return(true, nil)
	f.doctors.On("GetDoctorUserID", mock.Anything, p.DoctorID).Return(uuid.Nil, assert.AnError)

	got, err := f.svc.SubmitForReview(context.Background(), p.ID)

	require.NoError(t, err, "notification routing failure must not fail the submission")
	assert.True(t, got.PendingReview)
	f.notifier.AssertNotCalled(t, "SubmittedForReview",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
