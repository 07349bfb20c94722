package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"github.com/trialflow/trialflow/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var preErr *service.PreconditionError
	if errors.As(err, &preErr) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: preErr.Error(),
			Code:  "PRECONDITION_FAILED",
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, scale.ErrConfigNotFound),
		errors.Is(err, scale.ErrRecordNotFound),
		errors.Is(err, medication.ErrRecordNotFound),
		errors.Is(err, medfile.ErrFileNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDoctorNotFound),
		errors.Is(err, domain.ErrHospitalNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, service.ErrAlreadyPendingReview),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "the patient was updated concurrently, retry with fresh state",
			Code:  "CONCURRENT_UPDATE",
		})

	case errors.Is(err, patient.ErrInvalidStage),
		errors.Is(err, patient.ErrInvalidStatus),
		errors.Is(err, scale.ErrConfigInactive),
		errors.Is(err, scale.ErrAnswerCountWrong):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is inactive"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})

	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// parseStage validates the :stage path parameter.
func parseStage(c *gin.Context) (patient.Stage, bool) {
	s := patient.Stage(c.Param("stage"))
	if !s.IsVisit() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stage: must be one of V1, V2, V3, V4"})
		return "", false
	}
	return s, true
}

// claimsFrom pulls the authenticated claims set by the auth middleware.
func claimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authentication"})
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authentication"})
		return nil, false
	}
	return claims, true
}
