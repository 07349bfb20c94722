package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Name         string `gorm:"column:name;type:varchar(100);not null"`
	Phone        string `gorm:"column:phone;type:varchar(20)"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// For doctor role, links to the doctor record
	DoctorID *uuid.UUID `gorm:"column:doctor_id;type:uuid;index"`
	// For patient role, links to the patient record
	PatientID *uuid.UUID `gorm:"column:patient_id;type:uuid;index"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

type DoctorAuditStatus string

const (
	DoctorPending  DoctorAuditStatus = "pending"
	DoctorApproved DoctorAuditStatus = "approved"
	DoctorRejected DoctorAuditStatus = "rejected"
)

// Doctor is a clinician profile. Only approved doctors may enroll patients.
type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	HospitalID uuid.UUID `gorm:"column:hospital_id;type:uuid;not null;index"`

	Title      string `gorm:"column:title;type:varchar(50)"`
	Department string `gorm:"column:department;type:varchar(100)"`

	AuditStatus DoctorAuditStatus `gorm:"column:audit_status;type:varchar(20);not null;default:'pending';index"`
	AuditRemark string            `gorm:"column:audit_remark;type:text"`
	AuditedBy   *uuid.UUID        `gorm:"column:audited_by;type:uuid"`
	AuditedAt   *time.Time        `gorm:"column:audited_at"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

type HospitalStatus string

const (
	HospitalActive   HospitalStatus = "active"
	HospitalInactive HospitalStatus = "inactive"
)

type Hospital struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Name   string         `gorm:"column:name;type:varchar(200);not null"`
	Code   string         `gorm:"column:code;type:varchar(50);uniqueIndex"`
	Status HospitalStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
}

func (Hospital) TableName() string {
	return "clinical.hospitals"
}

type PushMessageType string

const (
	PushStageApproved      PushMessageType = "stage_approved"
	PushAuditResult        PushMessageType = "audit_result"
	PushSubmittedForReview PushMessageType = "submitted_for_review"
	PushWithdrawalNotice   PushMessageType = "withdrawal_notice"
	PushStageExpiring      PushMessageType = "stage_expiring"
)

// PushMessage is a persisted notification intent. Delivery transport is
// external; a message row is the engine's only obligation.
type PushMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	UserID  uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Type    PushMessageType `gorm:"column:type;type:varchar(50);not null;index"`
	Title   string          `gorm:"column:title;type:varchar(200);not null"`
	Content string          `gorm:"column:content;type:text;not null"`

	PatientID *uuid.UUID    `gorm:"column:patient_id;type:uuid;index"`
	Stage     patient.Stage `gorm:"column:stage;type:varchar(10)"`

	ReadAt *time.Time `gorm:"column:read_at"`
}

func (PushMessage) TableName() string {
	return "messaging.push_messages"
}

type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionRead     AuditAction = "read"
	ActionUpdate   AuditAction = "update"
	ActionApprove  AuditAction = "approve"
	ActionReject   AuditAction = "reject"
	ActionWithdraw AuditAction = "withdraw"
	ActionLogin    AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`
	Changes    string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID    uuid.UUID  `json:"sub"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}
