package gormstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"gorm.io/gorm"
)

type MedFileRepository struct {
	db *gorm.DB
}

func NewMedFileRepository(db *gorm.DB) *MedFileRepository {
	return &MedFileRepository{db: db}
}

var _ medfile.Repository = (*MedFileRepository)(nil)

func (r *MedFileRepository) Create(ctx context.Context, f *medfile.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *MedFileRepository) HasFile(ctx context.Context, patientID uuid.UUID, stage patient.Stage) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&medfile.File{}).
		Where("patient_id = ? AND stage = ?", patientID, stage).
		Count(&count).Error
	return count > 0, err
}
