package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"gorm.io/gorm"
)

// PatientRepository is the gorm-backed implementation of patient.Repository.
type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	var existing int64
	err := r.db.WithContext(ctx).Model(&patient.Patient{}).
		Where("user_id = ? AND deleted_at IS NULL", p.UserID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return patient.ErrPatientAlreadyExists
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("user_id = ? AND deleted_at IS NULL", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProgress writes the progression fields guarded by the version column.
// The WHERE clause carries the version the caller read; zero rows affected
// means someone else advanced the patient first.
func (r *PatientRepository) UpdateProgress(ctx context.Context, p *patient.Patient) error {
	res := r.db.WithContext(ctx).Model(&patient.Patient{}).
		Where("id = ? AND version = ? AND deleted_at IS NULL", p.ID, p.Version).
		Updates(map[string]any{
			"current_stage":   p.CurrentStage,
			"status":          p.Status,
			"v1_completed_at": p.V1CompletedAt,
			"v2_completed_at": p.V2CompletedAt,
			"v3_completed_at": p.V3CompletedAt,
			"v4_completed_at": p.V4CompletedAt,
			"v2_window_start": p.V2WindowStart,
			"v2_window_end":   p.V2WindowEnd,
			"v3_window_start": p.V3WindowStart,
			"v3_window_end":   p.V3WindowEnd,
			"v4_window_start": p.V4WindowStart,
			"v4_window_end":   p.V4WindowEnd,
			"pending_review":  p.PendingReview,
			"withdrawn_at":    p.WithdrawnAt,
			"withdraw_reason": p.WithdrawReason,
			"withdraw_stage":  p.WithdrawStage,
			"version":         p.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return patient.ErrConcurrentUpdate
	}
	p.Version++
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("deleted_at IS NULL")

	if q.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.HospitalID != nil {
		tx = tx.Where("hospital_id = ?", *q.HospitalID)
	}
	if q.CurrentStage != nil {
		tx = tx.Where("current_stage = ?", *q.CurrentStage)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.Name != "" {
		tx = tx.Where("name ILIKE ?", "%"+q.Name+"%")
	}
	if q.PatientNo != "" {
		tx = tx.Where("patient_no = ?", q.PatientNo)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	var patients []*patient.Patient
	err := tx.Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&patients).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &patient.PagedPatients{
		Patients:   patients,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *PatientRepository) ListActive(ctx context.Context) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", patient.StatusActive).
		Find(&patients).Error
	return patients, err
}
