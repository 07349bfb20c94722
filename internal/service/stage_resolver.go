package service

import (
	"time"

	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
)

// StageResolver decides which stage a patient is in. Exactly one discipline
// is authoritative for currentStage; the other exists for read-only
// inference. Mixing writers produces divergent stages between reads.
type StageResolver interface {
	ResolveStage(p *patient.Patient, now time.Time) patient.Stage
}

// EventDrivenResolver trusts the stored stage: only an explicit, audited
// visit completion moves a patient forward. This is the authoritative
// discipline in this engine.
type EventDrivenResolver struct{}

func (EventDrivenResolver) ResolveStage(p *patient.Patient, _ time.Time) patient.Stage {
	return p.CurrentStage
}

// TimeDrivenResolver infers the stage purely from the stored window
// boundaries and the calendar. Used read-only: sweep targeting and drift
// reporting, never to write currentStage.
type TimeDrivenResolver struct{}

// ResolveStage checks windows latest-first: once a later window's start has
// arrived the patient belongs to that stage even if an earlier window lapsed
// without completion, so end boundaries never need consulting. Terminal
// statuses are sticky.
func (TimeDrivenResolver) ResolveStage(p *patient.Patient, now time.Time) patient.Stage {
	if p.Status.IsTerminal() {
		if p.Status == patient.StatusCompleted {
			return patient.StageCompleted
		}
		return p.CurrentStage
	}

	day := protocol.TruncateToDay(now)
	for _, stage := range []patient.Stage{patient.StageV4, patient.StageV3, patient.StageV2} {
		start, _ := p.Window(stage)
		if start != nil && !day.Before(protocol.TruncateToDay(*start)) {
			return stage
		}
	}
	return patient.StageV1
}
