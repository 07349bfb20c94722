package service

import (
	"testing"
	"time"

	"github.com/trialflow/trialflow/internal/domain/patient"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestEventDrivenResolverReturnsStoredStage(t *testing.T) {
	p := activePatient(patient.StageV3)
	got := EventDrivenResolver{}.ResolveStage(p, time.Now())
	if got != patient.StageV3 {
		t.Fatalf("got %s, want %s", got, patient.StageV3)
	}
}

func TestTimeDrivenResolver(t *testing.T) {
	// Enrollment 2024-01-01: V2 window starts 01-06, V3 window starts 01-25,
	// V4 window starts 01-30.
	base := activePatient(patient.StageV1)

	tests := []struct {
		name string
		now  time.Time
		want patient.Stage
	}{
		{"before any window", day(2024, 1, 3), patient.StageV1},
		{"day before v2 start", day(2024, 1, 5), patient.StageV1},
		{"v2 window start", day(2024, 1, 6), patient.StageV2},
		{"between v2 end and v3 start", day(2024, 1, 15), patient.StageV2},
		{"v3 window start", day(2024, 1, 25), patient.StageV3},
		{"v4 window start", day(2024, 1, 30), patient.StageV4},
		{"long after all windows", day(2024, 6, 1), patient.StageV4},
	}

	var r TimeDrivenResolver
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveStage(base, tt.now); got != tt.want {
				t.Errorf("ResolveStage(%s) = %s, want %s", tt.now.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestTimeDrivenResolverIgnoresTimeOfDay(t *testing.T) {
	p := activePatient(patient.StageV1)
	var r TimeDrivenResolver

	// 23:59 the day before the V2 window start is still V1.
	got := r.ResolveStage(p, time.Date(2024, 1, 5, 23, 59, 0, 0, time.Local))
	if got != patient.StageV1 {
		t.Fatalf("late evening before window start: got %s, want V1", got)
	}

	// 00:01 on the start day is V2.
	got = r.ResolveStage(p, time.Date(2024, 1, 6, 0, 1, 0, 0, time.Local))
	if got != patient.StageV2 {
		t.Fatalf("just past midnight on window start: got %s, want V2", got)
	}
}

func TestTimeDrivenResolverTerminalStatusIsSticky(t *testing.T) {
	var r TimeDrivenResolver

	completed := activePatient(patient.StageCompleted)
	completed.Status = patient.StatusCompleted
	if got := r.ResolveStage(completed, day(2024, 1, 2)); got != patient.StageCompleted {
		t.Fatalf("completed patient: got %s, want completed", got)
	}

	withdrawn := activePatient(patient.StageV2)
	withdrawn.Status = patient.StatusWithdrawn
	if got := r.ResolveStage(withdrawn, day(2024, 6, 1)); got != patient.StageV2 {
		t.Fatalf("withdrawn patient keeps the stage it withdrew at: got %s", got)
	}
}

func TestTimeDrivenResolverMissingWindowsDefaultsToV1(t *testing.T) {
	p := &patient.Patient{CurrentStage: patient.StageV1, Status: patient.StatusActive}
	var r TimeDrivenResolver
	if got := r.ResolveStage(p, day(2024, 6, 1)); got != patient.StageV1 {
		t.Fatalf("no windows stored: got %s, want V1", got)
	}
}
