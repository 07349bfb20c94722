package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain"
	"gorm.io/gorm"
)

type PushMessageRepository struct {
	db *gorm.DB
}

func NewPushMessageRepository(db *gorm.DB) *PushMessageRepository {
	return &PushMessageRepository{db: db}
}

func (r *PushMessageRepository) Create(ctx context.Context, m *domain.PushMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListForUser returns a user's messages, newest first.
func (r *PushMessageRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PushMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var messages []*domain.PushMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkRead stamps a message as read. No-op if already read.
func (r *PushMessageRepository) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.PushMessage{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", messageID, userID).
		Update("read_at", time.Now()).Error
}
