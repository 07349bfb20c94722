package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

// Directory resolves the clinician and site records referenced at
// registration time.
type Directory interface {
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error)
	GetHospital(ctx context.Context, hospitalID uuid.UUID) (*domain.Hospital, error)
}

type PatientService struct {
	patients patient.Repository
	users    UserRepository
	dir      Directory
	proto    *protocol.Protocol
	auditSvc *AuditService
	log      *zap.Logger

	now func() time.Time
}

func NewPatientService(
	patients patient.Repository,
	users UserRepository,
	dir Directory,
	proto *protocol.Protocol,
	auditSvc *AuditService,
	log *zap.Logger,
) *PatientService {
	return &PatientService{
		patients: patients,
		users:    users,
		dir:      dir,
		proto:    proto,
		auditSvc: auditSvc,
		log:      log,
		now:      time.Now,
	}
}

// Register enrolls a user as a trial patient under an approved doctor at an
// active site. All three follow-up windows are precomputed here from the
// enrollment date and are read-only afterwards.
func (s *PatientService) Register(ctx context.Context, cmd *patient.RegisterPatientCommand, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if err := s.validateRegister(ctx, cmd); err != nil {
		return nil, err
	}

	enrollment := protocol.TruncateToDay(cmd.EnrollmentDate)
	if cmd.EnrollmentDate.IsZero() {
		enrollment = protocol.TruncateToDay(s.now())
	}

	p := &patient.Patient{
		UserID:           cmd.UserID,
		DoctorID:         cmd.DoctorID,
		HospitalID:       cmd.HospitalID,
		PatientNo:        generatePatientNo(s.now()),
		Name:             strings.TrimSpace(cmd.Name),
		EmergencyContact: cmd.EmergencyContact,
		EmergencyPhone:   cmd.EmergencyPhone,
		Diagnosis:        cmd.Diagnosis,
		CurrentStage:     patient.StageV1,
		Status:           patient.StatusActive,
		EnrollmentDate:   enrollment,
	}

	w := s.proto.ComputeWindows(enrollment)
	p.SetWindow(patient.StageV2, w.V2.Start, w.V2.End)
	p.SetWindow(patient.StageV3, w.V3.Start, w.V3.End)
	p.SetWindow(patient.StageV4, w.V4.Start, w.V4.End)

	if err := s.patients.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	if err := s.users.LinkPatient(ctx, cmd.UserID, p.ID); err != nil {
		s.log.Warn("failed to link patient to user account",
			zap.String("user_id", cmd.UserID.String()),
			zap.Error(err),
		)
	}

	if s.auditSvc != nil {
		s.auditSvc.LogAsync(ctx, AuditEntry{
			UserID:       callerID,
			UserRole:     callerRole,
			Action:       "create",
			ResourceType: "patient",
			ResourceID:   p.ID.String(),
			IPAddress:    ip,
		})
	}

	s.log.Info("patient registered",
		zap.String("patient_id", p.ID.String()),
		zap.String("patient_no", p.PatientNo),
		zap.String("doctor_id", cmd.DoctorID.String()),
	)
	return p, nil
}

func (s *PatientService) validateRegister(ctx context.Context, cmd *patient.RegisterPatientCommand) error {
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if user.Role != domain.RolePatient {
		return &ValidationError{Fields: []string{"user does not have the patient role"}}
	}

	if _, err := s.patients.GetByUserID(ctx, cmd.UserID); err == nil {
		return patient.ErrPatientAlreadyExists
	} else if !errors.Is(err, patient.ErrPatientNotFound) {
		return fmt.Errorf("checking existing registration: %w", err)
	}

	doctor, err := s.dir.GetDoctor(ctx, cmd.DoctorID)
	if err != nil {
		return err
	}
	if doctor.AuditStatus != domain.DoctorApproved {
		return &ValidationError{Fields: []string{"assigned doctor is not approved"}}
	}

	hospital, err := s.dir.GetHospital(ctx, cmd.HospitalID)
	if err != nil {
		return err
	}
	if hospital.Status != domain.HospitalActive {
		return &ValidationError{Fields: []string{"hospital is inactive"}}
	}

	if strings.TrimSpace(cmd.Name) == "" {
		return &ValidationError{Fields: []string{"name is required"}}
	}
	return nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, callerRole string, callerPatientID *uuid.UUID) (*patient.Patient, error) {
	// Patients can only read their own record.
	if callerRole == string(domain.RolePatient) {
		if callerPatientID == nil || *callerPatientID != id {
			return nil, ErrForbidden
		}
	}
	return s.patients.GetByID(ctx, id)
}

func (s *PatientService) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.patients.List(ctx, q)
}

// generatePatientNo builds a screening number: P + last 8 digits of the
// millisecond timestamp + 3 random digits.
func generatePatientNo(now time.Time) string {
	ts := fmt.Sprintf("%d", now.UnixMilli())
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("P%s%03d", ts, rand.Intn(1000))
}
