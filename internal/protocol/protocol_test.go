package protocol

import (
	"testing"

	"github.com/trialflow/trialflow/internal/domain/patient"
)

func TestDefaultRequirements(t *testing.T) {
	p := Default()

	v1 := p.Requirements(patient.StageV1)
	if len(v1.PatientScales) != 4 {
		t.Fatalf("V1 patient scales = %v, want 4 entries", v1.PatientScales)
	}
	if len(v1.DoctorScales) != 2 {
		t.Fatalf("V1 doctor scales = %v, want HAMA and HAMD", v1.DoctorScales)
	}
	if !v1.RequiresMedicationRecord {
		t.Fatal("V1 should require a medication record")
	}

	v4 := p.Requirements(patient.StageV4)
	if len(v4.DoctorScales) != 0 || v4.RequiresMedicationRecord {
		t.Fatalf("V4 requirements too strict: %+v", v4)
	}

	if got := len(v1.RequiredScales()); got != 6 {
		t.Fatalf("V1 full scale set has %d entries, want 6", got)
	}
}

func TestRequirementsUnknownStagePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for undefined stage")
		}
	}()
	Default().Requirements(patient.StageCompleted)
}
