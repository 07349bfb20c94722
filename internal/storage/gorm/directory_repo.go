package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain"
	"gorm.io/gorm"
)

// DirectoryRepository serves doctor and hospital lookups. It backs both the
// registration-time validation and doctor-to-user notification routing.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error) {
	var d domain.Doctor
	err := r.db.WithContext(ctx).Where("id = ?", doctorID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DirectoryRepository) GetDoctorUserID(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	var d domain.Doctor
	err := r.db.WithContext(ctx).Select("user_id").Where("id = ?", doctorID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, domain.ErrDoctorNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return d.UserID, nil
}

func (r *DirectoryRepository) GetHospital(ctx context.Context, hospitalID uuid.UUID) (*domain.Hospital, error) {
	var h domain.Hospital
	err := r.db.WithContext(ctx).Where("id = ?", hospitalID).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrHospitalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
