package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"go.uber.org/zap"
)

type withdrawalFixture struct {
	patients *mockPatientRepo
	scales   *mockScaleRepo
	doctors  *mockDoctorDirectory
	notifier *mockNotifier
	svc      *WithdrawalService
}

func newWithdrawalFixture() *withdrawalFixture {
	f := &withdrawalFixture{
		patients: new(mockPatientRepo),
		scales:   new(mockScaleRepo),
		doctors:  new(mockDoctorDirectory),
		notifier: new(mockNotifier),
	}
	f.svc = NewWithdrawalService(f.patients, f.scales, f.doctors, f.notifier, nil, zap.NewNop())
	return f
}

func stubWithdrawalScales(scales *mockScaleRepo, patientID uuid.UUID, stage patient.Stage, submitted map[string]bool) {
	for _, code := range []string{"AIS", "ESS", "GAD7", "PHQ9"} {
		cfg := scaleConfig(code)
		scales.On("GetConfigByCode", mock.Anything, code).Return(cfg, nil)
		scales.On("HasSubmittedRecord", mock.Anything, patientID, stage, cfg.ID).Return(submitted[code], nil)
	}
}

func TestCheckWithdrawalAllScalesComplete(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV3)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubWithdrawalScales(f.scales, p.ID, patient.StageV3, map[string]bool{
		"AIS": true, "ESS": true, "GAD7": true, "PHQ9": true,
	})

	el, err := f.svc.CheckWithdrawal(context.Background(), p.ID)

	require.NoError(t, err)
	assert.True(t, el.CanWithdraw)
	assert.Empty(t, el.MissingScales)
	assert.ElementsMatch(t, []string{"AIS", "ESS", "GAD7", "PHQ9"}, el.CompletedScales)
}

// The withdrawal gate is the same fixed scale set at every visit. V1 requires
// HAMA and HAMD for completion, but withdrawal at V1 must not ask for them.
func TestCheckWithdrawalUsesFixedScaleSetNotStageRequirements(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV1)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubWithdrawalScales(f.scales, p.ID, patient.StageV1, map[string]bool{
		"AIS": true, "ESS": true, "GAD7": true, "PHQ9": true,
	})

	el, err := f.svc.CheckWithdrawal(context.Background(), p.ID)

	require.NoError(t, err)
	assert.True(t, el.CanWithdraw)
	f.scales.AssertNotCalled(t, "GetConfigByCode", mock.Anything, "HAMA")
	f.scales.AssertNotCalled(t, "GetConfigByCode", mock.Anything, "HAMD")
}

func TestCheckWithdrawalReportsMissingScales(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV2)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubWithdrawalScales(f.scales, p.ID, patient.StageV2, map[string]bool{
		"AIS": true, "ESS": false, "GAD7": true, "PHQ9": false,
	})

	el, err := f.svc.CheckWithdrawal(context.Background(), p.ID)

	require.NoError(t, err)
	assert.False(t, el.CanWithdraw)
	assert.ElementsMatch(t, []string{"ESS", "PHQ9"}, el.MissingScales)
}

func TestCheckWithdrawalTerminalPatientBlockedNotError(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV4)
	p.Status = patient.StatusCompleted
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	el, err := f.svc.CheckWithdrawal(context.Background(), p.ID)

	require.NoError(t, err, "a terminal status is a blocked result, not an error")
	assert.False(t, el.CanWithdraw)
	assert.NotEmpty(t, el.Message)
	f.scales.AssertNotCalled(t, "GetConfigByCode", mock.Anything, mock.Anything)
}

func TestExecuteWithdrawalRequiresReason(t *testing.T) {
	f := newWithdrawalFixture()

	_, err := f.svc.ExecuteWithdrawal(context.Background(), uuid.New(), "   ")

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
}

func TestExecuteWithdrawalRecordsExit(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV2)
	p.PendingReview = true
	doctorUserID := uuid.New()

	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	f.patients.On("UpdateProgress", mock.Anything, p).Return(nil)
	stubWithdrawalScales(f.scales, p.ID, patient.StageV2, map[string]bool{
		"AIS": true, "ESS": true, "GAD7": true, "PHQ9": true,
	})
	f.doctors.On("GetDoctorUserID", mock.Anything, p.DoctorID).Return(doctorUserID, nil)
	f.notifier.On("WithdrawalNotice", mock.Anything, doctorUserID, p.Name, patient.StageV2, p.ID, "adverse event").Return()

	got, err := f.svc.ExecuteWithdrawal(context.Background(), p.ID, "adverse event")

	require.NoError(t, err)
	assert.Equal(t, patient.StatusWithdrawn, got.Status)
	assert.Equal(t, patient.StageV2, got.WithdrawStage)
	assert.Equal(t, "adverse event", got.WithdrawReason)
	assert.False(t, got.PendingReview)
	require.NotNil(t, got.WithdrawnAt)
	f.notifier.AssertExpectations(t)
}

func TestExecuteWithdrawalBlockedWhenScalesMissing(t *testing.T) {
	f := newWithdrawalFixture()
	p := activePatient(patient.StageV2)
	f.patients.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	stubWithdrawalScales(f.scales, p.ID, patient.StageV2, map[string]bool{
		"AIS": true, "ESS": true, "GAD7": true, "PHQ9": false,
	})

	_, err := f.svc.ExecuteWithdrawal(context.Background(), p.ID, "personal reasons")

	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Equal(t, []string{"PHQ9"}, validErr.Fields)
	f.patients.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
}
