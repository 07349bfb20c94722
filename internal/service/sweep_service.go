package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

// Reminders go out when the current stage's window closes in this many days.
var reminderDays = map[int]bool{3: true, 1: true, 0: true}

// SweepService runs the daily deadline sweep: for every active patient it
// checks how close the current stage's window end is and emits an expiring
// reminder at D-3, D-1 and D-0. It reads progression state only; the
// event-driven flow stays the single writer.
type SweepService struct {
	patients  patient.Repository
	notifier  Notifier
	reminders prometheus.Counter // optional
	log       *zap.Logger

	runAt time.Duration // offset from midnight, local time
	done  chan struct{}
}

func NewSweepService(patients patient.Repository, notifier Notifier, runAt time.Duration, reminders prometheus.Counter, log *zap.Logger) *SweepService {
	if runAt <= 0 || runAt >= 24*time.Hour {
		runAt = 9 * time.Hour
	}
	return &SweepService{
		patients:  patients,
		notifier:  notifier,
		reminders: reminders,
		log:       log,
		runAt:     runAt,
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. It fires once at the next configured
// wall-clock time and every 24h after that, until ctx is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			wait := s.untilNextRun(time.Now())
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.log.Error("deadline sweep failed", zap.Error(err))
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited after ctx cancellation.
func (s *SweepService) Wait() {
	<-s.done
}

func (s *SweepService) untilNextRun(now time.Time) time.Duration {
	next := protocol.TruncateToDay(now).Add(s.runAt)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// SweepOnce evaluates every active patient against today. Per-patient
// failures are logged and skipped so one bad row cannot stall the sweep.
func (s *SweepService) SweepOnce(ctx context.Context, now time.Time) error {
	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return err
	}

	today := protocol.TruncateToDay(now)
	var sent int
	for _, p := range patients {
		if s.remindPatient(ctx, p, today) {
			sent++
		}
	}

	s.log.Info("deadline sweep completed",
		zap.Int("patients_checked", len(patients)),
		zap.Int("reminders_sent", sent),
	)
	return nil
}

func (s *SweepService) remindPatient(ctx context.Context, p *patient.Patient, today time.Time) bool {
	stage := p.CurrentStage
	if !stage.IsVisit() || stage == patient.StageV1 {
		// V1 has no window; nothing to expire.
		return false
	}
	if p.PendingReview {
		// Patient already did their part; the doctor holds the ball.
		return false
	}

	_, end := p.Window(stage)
	if end == nil {
		s.log.Warn("active patient missing window end",
			zap.String("patient_id", p.ID.String()),
			zap.String("stage", string(stage)),
		)
		return false
	}

	daysLeft := int(protocol.TruncateToDay(*end).Sub(today).Hours() / 24)
	if daysLeft < 0 || !reminderDays[daysLeft] {
		return false
	}

	s.notifier.StageExpiring(ctx, p.UserID, stage, daysLeft, p.ID)
	if s.reminders != nil {
		s.reminders.Inc()
	}
	s.log.Debug("stage expiring reminder queued",
		zap.String("patient_id", p.ID.String()),
		zap.String("stage", string(stage)),
		zap.Int("days_left", daysLeft),
	)
	return true
}
