package gormstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"gorm.io/gorm"
)

type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

var _ medication.Repository = (*MedicationRepository)(nil)

func (r *MedicationRepository) CreateRecord(ctx context.Context, rec *medication.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *MedicationRepository) CreateConcomitant(ctx context.Context, c *medication.Concomitant) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *MedicationRepository) HasRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&medication.Record{}).
		Where("patient_id = ? AND stage = ?", patientID, stage).
		Count(&count).Error
	return count > 0, err
}

func (r *MedicationRepository) HasConcomitant(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&medication.Concomitant{}).
		Where("patient_id = ? AND stage = ?", patientID, stage).
		Count(&count).Error
	return count > 0, err
}
