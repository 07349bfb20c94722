package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"github.com/trialflow/trialflow/internal/service"
)

type ScaleHandler struct {
	scaleSvc *service.ScaleService
}

func NewScaleHandler(scaleSvc *service.ScaleService) *ScaleHandler {
	return &ScaleHandler{scaleSvc: scaleSvc}
}

func (h *ScaleHandler) ListCatalog(c *gin.Context) {
	var status *scale.ConfigStatus
	if raw := c.Query("status"); raw != "" {
		s := scale.ConfigStatus(raw)
		status = &s
	}

	configs, err := h.scaleSvc.ListCatalog(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, configs)
}

type submitScaleRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	ScaleCode string    `json:"scale_code" binding:"required"`
	Stage     string    `json:"stage" binding:"required"`
	Answers   []int     `json:"answers" binding:"required"`
}

func (h *ScaleHandler) SubmitRecord(c *gin.Context) {
	var req submitScaleRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.scaleSvc.SubmitRecord(c.Request.Context(), &scale.SubmitRecordCommand{
		PatientID: req.PatientID,
		ScaleCode: req.ScaleCode,
		Stage:     patient.Stage(req.Stage),
		Answers:   req.Answers,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *ScaleHandler) ListPatientRecords(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	stage, ok := parseStage(c)
	if !ok {
		return
	}

	records, err := h.scaleSvc.ListPatientRecords(c.Request.Context(), id, stage)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, records)
}
