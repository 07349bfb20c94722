package protocol

import (
	"fmt"

	"github.com/trialflow/trialflow/internal/domain/patient"
)

// StageRequirements lists what must exist before a visit can be approved,
// split into patient-fillable items and doctor-entered items.
type StageRequirements struct {
	PatientScales []string
	DoctorScales  []string

	RequiresMedicationRecord bool
	RequiresConcomitantMeds  bool
	RequiresMedicalFiles     bool
}

// RequiredScales is the union of patient and doctor scales, used for full
// completion checks.
func (r StageRequirements) RequiredScales() []string {
	out := make([]string, 0, len(r.PatientScales)+len(r.DoctorScales))
	out = append(out, r.PatientScales...)
	out = append(out, r.DoctorScales...)
	return out
}

// WindowOffsets are the nominal inter-visit day offsets with ± tolerance.
type WindowOffsets struct {
	ToV2Days      int
	ToV2Tolerance int
	ToV3Days      int
	ToV3Tolerance int
	ToV4Days      int
	ToV4Tolerance int
}

// Protocol is the immutable trial configuration. Construct once and inject;
// tests substitute alternate protocols through New.
type Protocol struct {
	requirements map[patient.Stage]StageRequirements
	offsets      WindowOffsets
}

func New(requirements map[patient.Stage]StageRequirements, offsets WindowOffsets) *Protocol {
	reqs := make(map[patient.Stage]StageRequirements, len(requirements))
	for stage, r := range requirements {
		reqs[stage] = r
	}
	return &Protocol{requirements: reqs, offsets: offsets}
}

// Default is the study protocol: four self-report scales every visit,
// clinician scales at V1 and V3, medication diary through V3, visit windows
// 7±1, 21±2 and 7±2 days chained off the prior window start.
func Default() *Protocol {
	return New(map[patient.Stage]StageRequirements{
		patient.StageV1: {
			PatientScales:            []string{"AIS", "ESS", "GAD7", "PHQ9"},
			DoctorScales:             []string{"HAMA", "HAMD"},
			RequiresMedicationRecord: true,
		},
		patient.StageV2: {
			PatientScales:            []string{"AIS", "ESS", "GAD7", "PHQ9"},
			RequiresMedicationRecord: true,
		},
		patient.StageV3: {
			PatientScales:            []string{"AIS", "ESS", "GAD7", "PHQ9"},
			DoctorScales:             []string{"HAMA", "HAMD"},
			RequiresMedicationRecord: true,
		},
		patient.StageV4: {
			PatientScales: []string{"AIS", "ESS", "GAD7", "PHQ9"},
		},
	}, WindowOffsets{
		ToV2Days: 7, ToV2Tolerance: 1,
		ToV3Days: 21, ToV3Tolerance: 2,
		ToV4Days: 7, ToV4Tolerance: 2,
	})
}

// Requirements returns the requirement set for a visit stage. Asking for a
// stage the protocol does not define is a programming error.
func (p *Protocol) Requirements(stage patient.Stage) StageRequirements {
	r, ok := p.requirements[stage]
	if !ok {
		panic(fmt.Sprintf("protocol: no requirements defined for stage %q", stage))
	}
	return r
}

func (p *Protocol) Offsets() WindowOffsets {
	return p.offsets
}
