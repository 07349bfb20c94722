package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"go.uber.org/zap"
)

// Early withdrawal is gated by a fixed self-report set, deliberately
// independent of the stage's own protocol requirements: the exit data
// package is the same at every visit.
var withdrawalScales = []string{"AIS", "ESS", "GAD7", "PHQ9"}

type WithdrawalEligibility struct {
	CanWithdraw     bool          `json:"canWithdraw"`
	Stage           patient.Stage `json:"stage"`
	MissingScales   []string      `json:"missingScales"`
	CompletedScales []string      `json:"completedScales"`
	Message         string        `json:"message,omitempty"`
}

type WithdrawalService struct {
	patients patient.Repository
	scales   scale.Repository
	doctors  DoctorDirectory
	notifier Notifier
	auditSvc *AuditService
	log      *zap.Logger

	now func() time.Time
}

func NewWithdrawalService(
	patients patient.Repository,
	scales scale.Repository,
	doctors DoctorDirectory,
	notifier Notifier,
	auditSvc *AuditService,
	log *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		patients: patients,
		scales:   scales,
		doctors:  doctors,
		notifier: notifier,
		auditSvc: auditSvc,
		log:      log,
		now:      time.Now,
	}
}

// CheckWithdrawal reports whether the patient may exit early. Terminal
// statuses return an explanatory blocked result, not an error.
func (s *WithdrawalService) CheckWithdrawal(ctx context.Context, patientID uuid.UUID) (*WithdrawalEligibility, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.eligibility(ctx, p)
}

func (s *WithdrawalService) eligibility(ctx context.Context, p *patient.Patient) (*WithdrawalEligibility, error) {
	el := &WithdrawalEligibility{Stage: p.CurrentStage}

	if p.Status.IsTerminal() {
		el.Message = fmt.Sprintf("patient is already %s and cannot withdraw", p.Status)
		return el, nil
	}

	for _, code := range withdrawalScales {
		cfg, err := s.scales.GetConfigByCode(ctx, code)
		if errors.Is(err, scale.ErrConfigNotFound) {
			s.log.Warn("withdrawal scale missing from catalog", zap.String("scale_code", code))
			el.MissingScales = append(el.MissingScales, code)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up scale %s: %w", code, err)
		}

		exists, err := s.scales.HasSubmittedRecord(ctx, p.ID, p.CurrentStage, cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("checking scale record %s: %w", code, err)
		}
		if exists {
			el.CompletedScales = append(el.CompletedScales, code)
		} else {
			el.MissingScales = append(el.MissingScales, code)
		}
	}

	if len(el.MissingScales) == 0 {
		el.CanWithdraw = true
		el.Message = "all withdrawal scales completed for the current stage"
	} else {
		el.Message = fmt.Sprintf(
			"complete the following scales for stage %s before withdrawing: %s",
			p.CurrentStage, strings.Join(el.MissingScales, ", "),
		)
	}
	return el, nil
}

// ExecuteWithdrawal re-validates eligibility and then records the exit:
// status, withdrawal metadata, latch cleared, doctor notified.
func (s *WithdrawalService) ExecuteWithdrawal(ctx context.Context, patientID uuid.UUID, reason string) (*patient.Patient, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Fields: []string{"withdraw reason is required"}}
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	el, err := s.eligibility(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, &PreconditionError{Op: "withdraw", Reason: el.Message}
	}
	if !el.CanWithdraw {
		return nil, &ValidationError{Fields: el.MissingScales}
	}

	now := s.now()
	p.Status = patient.StatusWithdrawn
	p.WithdrawnAt = &now
	p.WithdrawReason = reason
	p.WithdrawStage = p.CurrentStage
	p.PendingReview = false

	if err := s.patients.UpdateProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("recording withdrawal: %w", err)
	}

	if doctorUserID, derr := s.doctors.GetDoctorUserID(ctx, p.DoctorID); derr == nil {
		s.notifier.WithdrawalNotice(ctx, doctorUserID, p.Name, p.WithdrawStage, p.ID, reason)
	} else {
		s.log.Warn("cannot resolve doctor user for withdrawal notice",
			zap.String("doctor_id", p.DoctorID.String()),
			zap.Error(derr),
		)
	}

	if s.auditSvc != nil {
		s.auditSvc.LogAsync(ctx, AuditEntry{
			UserID:       p.UserID,
			UserRole:     "patient",
			Action:       "withdraw",
			ResourceType: "patient",
			ResourceID:   p.ID.String(),
			Changes:      fmt.Sprintf(`{"stage":%q,"reason":%q}`, p.WithdrawStage, reason),
		})
	}

	s.log.Info("patient withdrawn",
		zap.String("patient_id", p.ID.String()),
		zap.String("stage", string(p.WithdrawStage)),
	)
	return p, nil
}
