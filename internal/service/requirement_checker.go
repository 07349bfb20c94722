package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"github.com/trialflow/trialflow/internal/protocol"
	"go.uber.org/zap"
)

// RequirementScope selects which partition of a stage's requirements is
// evaluated: the patient-fillable subset or the full set including
// doctor-entered items.
type RequirementScope string

const (
	ScopePatientOnly RequirementScope = "patientOnly"
	ScopeFull        RequirementScope = "full"
)

type RequirementType string

const (
	RequirementScale       RequirementType = "scale"
	RequirementMedication  RequirementType = "medicationRecord"
	RequirementConcomitant RequirementType = "concomitantMedication"
	RequirementMedicalFile RequirementType = "medicalFile"
)

type RequirementItem struct {
	Type    RequirementType `json:"type"`
	Name    string          `json:"name"`
	Message string          `json:"message,omitempty"`
}

// CompletionCheckResult is derived and ephemeral: recompute, never persist.
type CompletionCheckResult struct {
	Stage     patient.Stage     `json:"stage"`
	Scope     RequirementScope  `json:"scope"`
	Completed []RequirementItem `json:"completedRequirements"`
	Missing   []RequirementItem `json:"missingRequirements"`

	// CanComplete is set for ScopeFull, PatientPartCompleted for
	// ScopePatientOnly; each means "nothing missing in that scope".
	CanComplete          bool `json:"canComplete"`
	PatientPartCompleted bool `json:"patientPartCompleted"`
}

// MissingNames returns the human-readable names of all missing items.
func (r *CompletionCheckResult) MissingNames() []string {
	names := make([]string, 0, len(r.Missing))
	for _, item := range r.Missing {
		names = append(names, item.Name)
	}
	return names
}

// RequirementChecker answers "do the required child records exist" for a
// patient and stage. Pure reads, safe to call concurrently.
type RequirementChecker struct {
	proto  *protocol.Protocol
	scales scale.Repository
	meds   medication.Repository
	files  medfile.Repository
	log    *zap.Logger
}

func NewRequirementChecker(
	proto *protocol.Protocol,
	scales scale.Repository,
	meds medication.Repository,
	files medfile.Repository,
	log *zap.Logger,
) *RequirementChecker {
	return &RequirementChecker{proto: proto, scales: scales, meds: meds, files: files, log: log}
}

// CheckRequirements evaluates completion for (patientID, stage) under the
// given scope. A missing catalog entry degrades to a missing item with a
// configuration message; it never aborts the rest of the check.
func (c *RequirementChecker) CheckRequirements(
	ctx context.Context,
	patientID uuid.UUID,
	stage patient.Stage,
	scope RequirementScope,
) (*CompletionCheckResult, error) {
	reqs := c.proto.Requirements(stage)

	res := &CompletionCheckResult{Stage: stage, Scope: scope}

	scaleCodes := reqs.PatientScales
	if scope == ScopeFull {
		scaleCodes = reqs.RequiredScales()
	}

	for _, code := range scaleCodes {
		cfg, err := c.scales.GetConfigByCode(ctx, code)
		if errors.Is(err, scale.ErrConfigNotFound) {
			// Broken catalog must not block the remaining items.
			c.log.Warn("scale catalog entry missing",
				zap.String("scale_code", code),
				zap.String("stage", string(stage)),
			)
			res.Missing = append(res.Missing, RequirementItem{
				Type:    RequirementScale,
				Name:    code,
				Message: fmt.Sprintf("scale %s is not configured in the catalog", code),
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up scale %s: %w", code, err)
		}

		exists, err := c.scales.HasSubmittedRecord(ctx, patientID, stage, cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("checking scale record %s: %w", code, err)
		}
		item := RequirementItem{Type: RequirementScale, Name: code}
		if exists {
			res.Completed = append(res.Completed, item)
		} else {
			res.Missing = append(res.Missing, item)
		}
	}

	if reqs.RequiresMedicationRecord {
		exists, err := c.meds.HasRecord(ctx, patientID, stage)
		if err != nil {
			return nil, fmt.Errorf("checking medication record: %w", err)
		}
		c.collect(res, RequirementItem{Type: RequirementMedication, Name: "medication record"}, exists)
	}

	// Concomitant medication only applies from V2 onward, by protocol.
	if reqs.RequiresConcomitantMeds && stage != patient.StageV1 {
		exists, err := c.meds.HasConcomitant(ctx, patientID, stage)
		if err != nil {
			return nil, fmt.Errorf("checking concomitant medication: %w", err)
		}
		c.collect(res, RequirementItem{Type: RequirementConcomitant, Name: "concomitant medication"}, exists)
	}

	// Medical files are uploaded on the clinician side; patient-only checks
	// skip them.
	if reqs.RequiresMedicalFiles && scope == ScopeFull {
		exists, err := c.files.HasFile(ctx, patientID, stage)
		if err != nil {
			return nil, fmt.Errorf("checking medical files: %w", err)
		}
		c.collect(res, RequirementItem{Type: RequirementMedicalFile, Name: "medical file"}, exists)
	}

	switch scope {
	case ScopeFull:
		res.CanComplete = len(res.Missing) == 0
	case ScopePatientOnly:
		res.PatientPartCompleted = len(res.Missing) == 0
	}

	return res, nil
}

func (c *RequirementChecker) collect(res *CompletionCheckResult, item RequirementItem, exists bool) {
	if exists {
		res.Completed = append(res.Completed, item)
	} else {
		res.Missing = append(res.Missing, item)
	}
}
