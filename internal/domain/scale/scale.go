package scale

import (
	"time"

	"github.com/google/uuid"
	"github.com/trialflow/trialflow/internal/domain/patient"
)

type ConfigStatus string

const (
	ConfigActive   ConfigStatus = "active"
	ConfigInactive ConfigStatus = "inactive"
)

// ScoringRange maps a total-score interval to a severity level.
type ScoringRange struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

type ScoringRules struct {
	Ranges []ScoringRange `json:"ranges"`
}

// Config is a catalog entry for an assessment scale (AIS, PHQ9, ...).
// The protocol references scales by code; records reference the catalog id.
type Config struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Code       string        `gorm:"column:code;type:varchar(20);uniqueIndex;not null"`
	Name       string        `gorm:"column:name;type:varchar(100);not null"`
	TotalItems int           `gorm:"column:total_items;not null"`
	MaxScore   int           `gorm:"column:max_score;not null"`
	Scoring    *ScoringRules `gorm:"column:scoring_rules;serializer:json"`
	Status     ConfigStatus  `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
}

func (Config) TableName() string {
	return "clinical.scale_configs"
}

// Score resolves a total score against the scoring ranges. Returns empty
// strings when no range matches or no rules are configured.
func (c *Config) Score(total int) (level, description string) {
	if c.Scoring == nil {
		return "", ""
	}
	for _, r := range c.Scoring.Ranges {
		if total >= r.Min && total <= r.Max {
			return r.Level, r.Description
		}
	}
	return "", ""
}

// Record is a submitted scale for (patient, scale, stage). Its existence is
// what the completion checker cares about; the score is informational.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PatientID uuid.UUID     `gorm:"column:patient_id;type:uuid;not null;index:idx_scale_records_lookup"`
	ScaleID   uuid.UUID     `gorm:"column:scale_id;type:uuid;not null;index:idx_scale_records_lookup"`
	Stage     patient.Stage `gorm:"column:stage;type:varchar(10);not null;index:idx_scale_records_lookup"`

	Answers     []int     `gorm:"column:answers;serializer:json;not null"`
	TotalScore  int       `gorm:"column:total_score;not null"`
	Level       string    `gorm:"column:level;type:varchar(50)"`
	Description string    `gorm:"column:description;type:text"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`
}

func (Record) TableName() string {
	return "clinical.scale_records"
}

type SubmitRecordCommand struct {
	PatientID uuid.UUID
	ScaleCode string
	Stage     patient.Stage
	Answers   []int
}
