package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/service"
)

type RecordHandler struct {
	recordSvc *service.RecordService
}

func NewRecordHandler(recordSvc *service.RecordService) *RecordHandler {
	return &RecordHandler{recordSvc: recordSvc}
}

type medicationRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Stage     string    `json:"stage" binding:"required"`
	DrugName  string    `json:"drug_name" binding:"required"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	StartDate string    `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   *string   `json:"end_date"`
	Notes     string    `json:"notes"`
}

func (h *RecordHandler) CreateMedication(c *gin.Context) {
	var req medicationRequest
	if !bindJSON(c, &req) {
		return
	}

	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		respondError(c, 400, "invalid start_date: expected YYYY-MM-DD")
		return
	}
	var end *time.Time
	if req.EndDate != nil {
		e, err := time.ParseInLocation("2006-01-02", *req.EndDate, time.Local)
		if err != nil {
			respondError(c, 400, "invalid end_date: expected YYYY-MM-DD")
			return
		}
		end = &e
	}

	rec, err := h.recordSvc.CreateMedicationRecord(c.Request.Context(), service.CreateMedicationInput{
		PatientID: req.PatientID,
		Stage:     patient.Stage(req.Stage),
		DrugName:  req.DrugName,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

type concomitantRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Stage     string    `json:"stage" binding:"required"`
	DrugName  string    `json:"drug_name" binding:"required"`
	Dosage    string    `json:"dosage"`
	Reason    string    `json:"reason"`
}

func (h *RecordHandler) CreateConcomitant(c *gin.Context) {
	var req concomitantRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.recordSvc.CreateConcomitantMedication(c.Request.Context(), service.CreateConcomitantInput{
		PatientID: req.PatientID,
		Stage:     patient.Stage(req.Stage),
		DrugName:  req.DrugName,
		Dosage:    req.Dosage,
		Reason:    req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

type medicalFileRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	Stage       string    `json:"stage" binding:"required"`
	FileName    string    `json:"file_name" binding:"required"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key" binding:"required"`
}

func (h *RecordHandler) CreateMedicalFile(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var req medicalFileRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.recordSvc.CreateMedicalFile(c.Request.Context(), service.CreateMedicalFileInput{
		PatientID:   req.PatientID,
		Stage:       patient.Stage(req.Stage),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		StorageKey:  req.StorageKey,
		UploadedBy:  claims.UserID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, f)
}
