package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
)

type mockPatientRepo struct {
	mock.Mock
}

func (m *mockPatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*patient.Patient); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*patient.Patient); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPatientRepo) UpdateProgress(ctx context.Context, p *patient.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPatientRepo) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	args := m.Called(ctx, q)
	if page, ok := args.Get(0).(*patient.PagedPatients); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPatientRepo) ListActive(ctx context.Context) ([]*patient.Patient, error) {
	args := m.Called(ctx)
	if ps, ok := args.Get(0).([]*patient.Patient); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockScaleRepo struct {
	mock.Mock
}

func (m *mockScaleRepo) GetConfigByCode(ctx context.Context, code string) (*scale.Config, error) {
	args := m.Called(ctx, code)
	if cfg, ok := args.Get(0).(*scale.Config); ok {
		return cfg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScaleRepo) ListConfigs(ctx context.Context, status *scale.ConfigStatus) ([]*scale.Config, error) {
	args := m.Called(ctx, status)
	if cfgs, ok := args.Get(0).([]*scale.Config); ok {
		return cfgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScaleRepo) CreateRecord(ctx context.Context, r *scale.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockScaleRepo) HasSubmittedRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage, scaleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, patientID, stage, scaleID)
	return args.Bool(0), args.Error(1)
}

func (m *mockScaleRepo) ListByPatientStage(ctx context.Context, patientID uuid.UUID, stage patient.Stage) ([]*scale.Record, error) {
	args := m.Called(ctx, patientID, stage)
	if recs, ok := args.Get(0).([]*scale.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMedicationRepo struct {
	mock.Mock
}

func (m *mockMedicationRepo) CreateRecord(ctx context.Context, r *medication.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockMedicationRepo) CreateConcomitant(ctx context.Context, c *medication.Concomitant) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockMedicationRepo) HasRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	args := m.Called(ctx, patientID, stage)
	return args.Bool(0), args.Error(1)
}

func (m *mockMedicationRepo) HasConcomitant(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	args := m.Called(ctx, patientID, stage)
	return args.Bool(0), args.Error(1)
}

type mockMedFileRepo struct {
	mock.Mock
}

func (m *mockMedFileRepo) Create(ctx context.Context, f *medfile.File) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockMedFileRepo) HasFile(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	args := m.Called(ctx, patientID, stage)
	return args.Bool(0), args.Error(1)
}

type mockDoctorDirectory struct {
	mock.Mock
}

func (m *mockDoctorDirectory) GetDoctorUserID(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) StageApproved(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, from, to patient.Stage, requiredItems []string) {
	m.Called(ctx, userID, patientID, from, to, requiredItems)
}

func (m *mockNotifier) AuditResult(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, stage patient.Stage, result string, remark string) {
	m.Called(ctx, userID, patientID, stage, result, remark)
}

func (m *mockNotifier) SubmittedForReview(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID) {
	m.Called(ctx, doctorUserID, patientName, stage, patientID)
}

func (m *mockNotifier) WithdrawalNotice(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID, reason string) {
	m.Called(ctx, doctorUserID, patientName, stage, patientID, reason)
}

func (m *mockNotifier) StageExpiring(ctx context.Context, userID uuid.UUID, stage patient.Stage, daysLeft int, patientID uuid.UUID) {
	m.Called(ctx, userID, stage, daysLeft, patientID)
}
