package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type CompleteStageInput struct {
	// Stage the caller believes the patient is in; must match the record.
	Stage    patient.Stage
	Decision Decision
	Remark   string
	// RejectReason is required when Decision is reject.
	RejectReason string
	// WindowOverride replaces the precomputed window for the next stage.
	WindowOverride *protocol.Window
	AuditedBy      uuid.UUID
}

// StageCompletionStatus is the read model for a patient's progress: both
// scope checks plus the calendar-inferred stage for drift visibility.
type StageCompletionStatus struct {
	PatientID         uuid.UUID              `json:"patientId"`
	CurrentStage      patient.Stage          `json:"currentStage"`
	Status            patient.Status         `json:"status"`
	PendingReview     bool                   `json:"pendingReview"`
	PatientPart       *CompletionCheckResult `json:"patientPart"`
	Full              *CompletionCheckResult `json:"full"`
	TimeInferredStage patient.Stage          `json:"timeInferredStage"`
}

// StageService drives visit progression: the audited approve/reject cycle is
// the only writer of currentStage.
type StageService struct {
	patients patient.Repository
	checker  *RequirementChecker
	proto    *protocol.Protocol
	resolver StageResolver
	timeView TimeDrivenResolver
	notifier Notifier
	auditSvc *AuditService
	log      *zap.Logger

	now func() time.Time
}

func NewStageService(
	patients patient.Repository,
	checker *RequirementChecker,
	proto *protocol.Protocol,
	resolver StageResolver,
	notifier Notifier,
	auditSvc *AuditService,
	log *zap.Logger,
) *StageService {
	return &StageService{
		patients: patients,
		checker:  checker,
		proto:    proto,
		resolver: resolver,
		notifier: notifier,
		auditSvc: auditSvc,
		log:      log,
		now:      time.Now,
	}
}

// CompleteStage applies an audit decision to the patient's current visit.
//
// Reject only clears the pending-review latch. Approve requires the full
// requirement set, stamps the completion time, advances to the successor
// stage and, for V4, closes out the whole trial. Nothing is written until
// every check has passed.
func (s *StageService) CompleteStage(ctx context.Context, patientID uuid.UUID, in CompleteStageInput) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if p.Status.IsTerminal() {
		return nil, &PreconditionError{
			Op:     "complete stage",
			Reason: fmt.Sprintf("patient is %s and can no longer progress", p.Status),
		}
	}
	// The injected resolver is the authoritative read of the stage; with the
	// event-driven resolver this is simply the stored value.
	current := s.resolver.ResolveStage(p, s.now())
	if current != in.Stage {
		return nil, &PreconditionError{Op: "complete stage", Expected: in.Stage, Actual: current}
	}

	if in.Decision == DecisionReject {
		return s.reject(ctx, p, in)
	}
	return s.approve(ctx, p, in)
}

func (s *StageService) reject(ctx context.Context, p *patient.Patient, in CompleteStageInput) (*patient.Patient, error) {
	if strings.TrimSpace(in.RejectReason) == "" {
		return nil, &ValidationError{Fields: []string{"reject reason is required"}}
	}

	// Rejection releases the latch so the patient can fix and resubmit.
	// No stage or window field moves.
	p.PendingReview = false
	if err := s.patients.UpdateProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("clearing pending review: %w", err)
	}

	s.notifier.AuditResult(ctx, p.UserID, p.ID, p.CurrentStage, "rejected", in.RejectReason)
	s.audit(ctx, in.AuditedBy, "reject", p)

	s.log.Info("stage review rejected",
		zap.String("patient_id", p.ID.String()),
		zap.String("stage", string(p.CurrentStage)),
	)
	return p, nil
}

func (s *StageService) approve(ctx context.Context, p *patient.Patient, in CompleteStageInput) (*patient.Patient, error) {
	res, err := s.checker.CheckRequirements(ctx, p.ID, p.CurrentStage, ScopeFull)
	if err != nil {
		return nil, fmt.Errorf("checking requirements: %w", err)
	}
	if !res.CanComplete {
		return nil, &ValidationError{Fields: res.MissingNames()}
	}

	from := p.CurrentStage
	now := s.now()
	p.StampCompleted(from, now)
	p.PendingReview = false

	var nextItems []string
	if from == patient.StageV4 {
		p.CurrentStage = patient.StageCompleted
		p.Status = patient.StatusCompleted
	} else {
		next, _ := from.Next()
		s.ensureWindow(p, next, in.WindowOverride)
		p.CurrentStage = next
		nextItems = s.requiredItemNames(next)
	}

	if err := s.patients.UpdateProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("advancing stage: %w", err)
	}

	s.notifier.StageApproved(ctx, p.UserID, p.ID, from, p.CurrentStage, nextItems)
	s.audit(ctx, in.AuditedBy, "approve", p)

	s.log.Info("stage completed",
		zap.String("patient_id", p.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(p.CurrentStage)),
	)
	return p, nil
}

// ensureWindow keeps the precomputed window unless the auditor supplied an
// explicit override. Windows are otherwise set once, at registration.
func (s *StageService) ensureWindow(p *patient.Patient, stage patient.Stage, override *protocol.Window) {
	if override != nil {
		p.SetWindow(stage, protocol.TruncateToDay(override.Start), protocol.TruncateToDay(override.End))
		return
	}
	if start, end := p.Window(stage); start != nil && end != nil {
		return
	}
	// Window missing (legacy rows): recompute the whole chain from
	// enrollment and fill in just this stage.
	w := s.proto.ComputeWindows(p.EnrollmentDate)
	switch stage {
	case patient.StageV2:
		p.SetWindow(stage, w.V2.Start, w.V2.End)
	case patient.StageV3:
		p.SetWindow(stage, w.V3.Start, w.V3.End)
	case patient.StageV4:
		p.SetWindow(stage, w.V4.Start, w.V4.End)
	}
}

func (s *StageService) requiredItemNames(stage patient.Stage) []string {
	reqs := s.proto.Requirements(stage)
	items := append([]string{}, reqs.PatientScales...)
	if reqs.RequiresMedicationRecord {
		items = append(items, "medication record")
	}
	if reqs.RequiresConcomitantMeds {
		items = append(items, "concomitant medication")
	}
	return items
}

// GetStageCompletionStatus reports both requirement scopes for the current
// stage plus the calendar-inferred stage so callers can spot drift between
// the audited stage and the protocol timeline.
func (s *StageService) GetStageCompletionStatus(ctx context.Context, patientID uuid.UUID) (*StageCompletionStatus, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	status := &StageCompletionStatus{
		PatientID:         p.ID,
		CurrentStage:      s.resolver.ResolveStage(p, s.now()),
		Status:            p.Status,
		PendingReview:     p.PendingReview,
		TimeInferredStage: s.timeView.ResolveStage(p, s.now()),
	}

	if !p.CurrentStage.IsVisit() {
		return status, nil
	}

	if status.PatientPart, err = s.checker.CheckRequirements(ctx, p.ID, p.CurrentStage, ScopePatientOnly); err != nil {
		return nil, err
	}
	if status.Full, err = s.checker.CheckRequirements(ctx, p.ID, p.CurrentStage, ScopeFull); err != nil {
		return nil, err
	}
	return status, nil
}

// GetTimeWindows returns the stored window boundaries and completion stamps.
func (s *StageService) GetTimeWindows(ctx context.Context, patientID uuid.UUID) (*patient.Patient, error) {
	return s.patients.GetByID(ctx, patientID)
}

func (s *StageService) audit(ctx context.Context, by uuid.UUID, action string, p *patient.Patient) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       by,
		UserRole:     "doctor",
		Action:       action,
		ResourceType: "patient_stage",
		ResourceID:   p.ID.String(),
		Changes:      fmt.Sprintf(`{"stage":%q,"status":%q}`, p.CurrentStage, p.Status),
	})
}
