package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"go.uber.org/zap"
)

type PushMessageRepository interface {
	Create(ctx context.Context, m *domain.PushMessage) error
}

const pushBufferSize = 10_000

// PushService persists notification intents asynchronously. It implements
// Notifier; every method is fire-and-forget and never surfaces an error to
// the triggering business operation.
type PushService struct {
	repo     PushMessageRepository
	dropped  prometheus.Counter // optional
	log      *zap.Logger
	messages chan *domain.PushMessage
	done     chan struct{}
}

var _ Notifier = (*PushService)(nil)

func NewPushService(repo PushMessageRepository, dropped prometheus.Counter, log *zap.Logger) *PushService {
	svc := &PushService{
		repo:     repo,
		dropped:  dropped,
		log:      log,
		messages: make(chan *domain.PushMessage, pushBufferSize),
		done:     make(chan struct{}),
	}
	go svc.worker()
	return svc
}

func (s *PushService) StageApproved(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, from, to patient.Stage, requiredItems []string) {
	content := fmt.Sprintf("Your %s visit has been approved.", from)
	if to != patient.StageCompleted {
		content = fmt.Sprintf(
			"Your %s visit has been approved. For %s please complete: %s.",
			from, to, strings.Join(requiredItems, ", "),
		)
	}
	s.enqueue(&domain.PushMessage{
		UserID:    userID,
		Type:      domain.PushStageApproved,
		Title:     fmt.Sprintf("Visit %s approved", from),
		Content:   content,
		PatientID: &patientID,
		Stage:     to,
	})
}

func (s *PushService) AuditResult(ctx context.Context, userID uuid.UUID, patientID uuid.UUID, stage patient.Stage, result string, remark string) {
	content := fmt.Sprintf("Your %s visit review result: %s.", stage, result)
	if remark != "" {
		content += " " + remark
	}
	s.enqueue(&domain.PushMessage{
		UserID:    userID,
		Type:      domain.PushAuditResult,
		Title:     fmt.Sprintf("Visit %s review result", stage),
		Content:   content,
		PatientID: &patientID,
		Stage:     stage,
	})
}

func (s *PushService) SubmittedForReview(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID) {
	s.enqueue(&domain.PushMessage{
		UserID:    doctorUserID,
		Type:      domain.PushSubmittedForReview,
		Title:     "Patient awaiting review",
		Content:   fmt.Sprintf("%s has completed the %s self-report items and awaits your review.", patientName, stage),
		PatientID: &patientID,
		Stage:     stage,
	})
}

func (s *PushService) WithdrawalNotice(ctx context.Context, doctorUserID uuid.UUID, patientName string, stage patient.Stage, patientID uuid.UUID, reason string) {
	s.enqueue(&domain.PushMessage{
		UserID:    doctorUserID,
		Type:      domain.PushWithdrawalNotice,
		Title:     "Patient withdrawn",
		Content:   fmt.Sprintf("%s withdrew from the trial at stage %s. Reason: %s", patientName, stage, reason),
		PatientID: &patientID,
		Stage:     stage,
	})
}

func (s *PushService) StageExpiring(ctx context.Context, userID uuid.UUID, stage patient.Stage, daysLeft int, patientID uuid.UUID) {
	var when string
	switch daysLeft {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	default:
		when = fmt.Sprintf("in %d days", daysLeft)
	}
	s.enqueue(&domain.PushMessage{
		UserID:    userID,
		Type:      domain.PushStageExpiring,
		Title:     fmt.Sprintf("Visit %s window closing", stage),
		Content:   fmt.Sprintf("Your %s visit window closes %s. Please complete the required items.", stage, when),
		PatientID: &patientID,
		Stage:     stage,
	})
}

func (s *PushService) enqueue(m *domain.PushMessage) {
	select {
	case s.messages <- m:
	default:
		if s.dropped != nil {
			s.dropped.Inc()
		}
		s.log.Warn("push message buffer full, dropping intent",
			zap.String("type", string(m.Type)),
			zap.String("user_id", m.UserID.String()),
		)
	}
}

func (s *PushService) Shutdown() {
	close(s.messages)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("push service shutdown timed out; some intents may be lost")
	}
}

func (s *PushService) worker() {
	defer close(s.done)
	for m := range s.messages {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, m); err != nil {
			s.log.Error("failed to persist push message",
				zap.String("type", string(m.Type)),
				zap.Error(err),
			)
		}
		cancel()
	}
}
