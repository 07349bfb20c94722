package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/protocol"
	"github.com/trialflow/trialflow/internal/service"
	"github.com/trialflow/trialflow/pkg/metrics"
)

type PatientHandler struct {
	patientSvc    *service.PatientService
	stageSvc      *service.StageService
	reviewSvc     *service.ReviewService
	withdrawalSvc *service.WithdrawalService
	metrics       *metrics.Collector
}

func NewPatientHandler(
	patientSvc *service.PatientService,
	stageSvc *service.StageService,
	reviewSvc *service.ReviewService,
	withdrawalSvc *service.WithdrawalService,
	col *metrics.Collector,
) *PatientHandler {
	return &PatientHandler{
		patientSvc:    patientSvc,
		stageSvc:      stageSvc,
		reviewSvc:     reviewSvc,
		withdrawalSvc: withdrawalSvc,
		metrics:       col,
	}
}

type registerPatientRequest struct {
	UserID           uuid.UUID `json:"user_id" binding:"required"`
	DoctorID         uuid.UUID `json:"doctor_id" binding:"required"`
	HospitalID       uuid.UUID `json:"hospital_id" binding:"required"`
	Name             string    `json:"name" binding:"required"`
	EmergencyContact string    `json:"emergency_contact"`
	EmergencyPhone   string    `json:"emergency_phone"`
	Diagnosis        string    `json:"diagnosis"`
	EnrollmentDate   string    `json:"enrollment_date"` // YYYY-MM-DD, defaults to today
}

func (h *PatientHandler) Register(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	var enrollment time.Time
	if req.EnrollmentDate != "" {
		var err error
		enrollment, err = time.ParseInLocation("2006-01-02", req.EnrollmentDate, time.Local)
		if err != nil {
			respondError(c, 400, "invalid enrollment_date: expected YYYY-MM-DD")
			return
		}
	}

	p, err := h.patientSvc.Register(c.Request.Context(), &patient.RegisterPatientCommand{
		UserID:           req.UserID,
		DoctorID:         req.DoctorID,
		HospitalID:       req.HospitalID,
		Name:             req.Name,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Diagnosis:        req.Diagnosis,
		EnrollmentDate:   enrollment,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.PatientsEnrolledTotal.Inc()
	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.patientSvc.GetPatient(c.Request.Context(), id, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) List(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	q := &patient.ListPatientsQuery{
		Name:      c.Query("name"),
		PatientNo: c.Query("patient_no"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	// Doctors see only their own roster.
	if claims.Role == domain.RoleDoctor && claims.DoctorID != nil {
		q.DoctorID = claims.DoctorID
	}
	if raw := c.Query("stage"); raw != "" {
		st := patient.Stage(raw)
		if !st.IsValid() {
			respondError(c, 400, "invalid stage filter")
			return
		}
		q.CurrentStage = &st
	}
	if raw := c.Query("status"); raw != "" {
		st := patient.Status(raw)
		if !st.IsValid() {
			respondError(c, 400, "invalid status filter")
			return
		}
		q.Status = &st
	}

	page, err := h.patientSvc.ListPatients(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *PatientHandler) CompletionStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	status, err := h.stageSvc.GetStageCompletionStatus(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, status)
}

type windowDTO struct {
	Stage       patient.Stage `json:"stage"`
	WindowStart *time.Time    `json:"windowStart,omitempty"`
	WindowEnd   *time.Time    `json:"windowEnd,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

func (h *PatientHandler) TimeWindows(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.stageSvc.GetTimeWindows(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	windows := make([]windowDTO, 0, 4)
	for _, st := range []patient.Stage{patient.StageV1, patient.StageV2, patient.StageV3, patient.StageV4} {
		start, end := p.Window(st)
		windows = append(windows, windowDTO{
			Stage:       st,
			WindowStart: start,
			WindowEnd:   end,
			CompletedAt: p.CompletedAt(st),
		})
	}
	respondOK(c, gin.H{
		"patientId":      p.ID,
		"enrollmentDate": p.EnrollmentDate,
		"currentStage":   p.CurrentStage,
		"windows":        windows,
	})
}

func (h *PatientHandler) SubmitForReview(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.reviewSvc.SubmitForReview(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.ReviewSubmissions.Inc()
	respondOK(c, p)
}

type completeStageRequest struct {
	Stage        string  `json:"stage" binding:"required"`
	Decision     string  `json:"decision" binding:"required,oneof=approve reject"`
	Remark       string  `json:"remark"`
	RejectReason string  `json:"reject_reason"`
	WindowStart  *string `json:"window_start"` // YYYY-MM-DD, optional override
	WindowEnd    *string `json:"window_end"`
}

func (h *PatientHandler) CompleteStage(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req completeStageRequest
	if !bindJSON(c, &req) {
		return
	}

	stage := patient.Stage(req.Stage)
	if !stage.IsVisit() {
		respondError(c, 400, "invalid stage: must be one of V1, V2, V3, V4")
		return
	}

	in := service.CompleteStageInput{
		Stage:        stage,
		Decision:     service.Decision(req.Decision),
		Remark:       req.Remark,
		RejectReason: req.RejectReason,
		AuditedBy:    claims.UserID,
	}
	if req.WindowStart != nil && req.WindowEnd != nil {
		start, err1 := time.ParseInLocation("2006-01-02", *req.WindowStart, time.Local)
		end, err2 := time.ParseInLocation("2006-01-02", *req.WindowEnd, time.Local)
		if err1 != nil || err2 != nil || end.Before(start) {
			respondError(c, 400, "invalid window override: expected YYYY-MM-DD dates with start <= end")
			return
		}
		in.WindowOverride = &protocol.Window{Start: start, End: end}
	}

	p, err := h.stageSvc.CompleteStage(c.Request.Context(), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.StageCompletionsTotal.WithLabelValues(string(stage), req.Decision).Inc()
	respondOK(c, p)
}

func (h *PatientHandler) CheckWithdrawal(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	el, err := h.withdrawalSvc.CheckWithdrawal(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, el)
}

type withdrawRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *PatientHandler) Withdraw(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req withdrawRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.withdrawalSvc.ExecuteWithdrawal(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.WithdrawalsTotal.WithLabelValues(string(p.WithdrawStage)).Inc()
	respondOK(c, p)
}
