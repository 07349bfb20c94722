package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"gorm.io/gorm"
)

type ScaleRepository struct {
	db *gorm.DB
}

func NewScaleRepository(db *gorm.DB) *ScaleRepository {
	return &ScaleRepository{db: db}
}

var _ scale.Repository = (*ScaleRepository)(nil)

func (r *ScaleRepository) GetConfigByCode(ctx context.Context, code string) (*scale.Config, error) {
	var cfg scale.Config
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, scale.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ScaleRepository) ListConfigs(ctx context.Context, status *scale.ConfigStatus) ([]*scale.Config, error) {
	tx := r.db.WithContext(ctx).Model(&scale.Config{})
	if status != nil {
		tx = tx.Where("status = ?", *status)
	}
	var configs []*scale.Config
	err := tx.Order("code").Find(&configs).Error
	return configs, err
}

func (r *ScaleRepository) CreateRecord(ctx context.Context, rec *scale.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *ScaleRepository) HasSubmittedRecord(ctx context.Context, patientID uuid.UUID, stage patient.Stage, scaleID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scale.Record{}).
		Where("patient_id = ? AND stage = ? AND scale_id = ?", patientID, stage, scaleID).
		Count(&count).Error
	return count > 0, err
}

func (r *ScaleRepository) ListByPatientStage(ctx context.Context, patientID uuid.UUID, stage patient.Stage) ([]*scale.Record, error) {
	var records []*scale.Record
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND stage = ?", patientID, stage).
		Order("submitted_at").
		Find(&records).Error
	return records, err
}
