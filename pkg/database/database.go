package database

import (
	"fmt"
	"time"

	"github.com/trialflow/trialflow/internal/config"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/internal/domain/medfile"
	"github.com/trialflow/trialflow/internal/domain/medication"
	"github.com/trialflow/trialflow/internal/domain/patient"
	"github.com/trialflow/trialflow/internal/domain/scale"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DNS(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit", "messaging"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.Doctor{},
		&domain.Hospital{},
		&domain.AuditLog{},
		&domain.PushMessage{},
		&patient.Patient{},
		&scale.Config{},
		&scale.Record{},
		&medication.Record{},
		&medication.Concomitant{},
		&medfile.File{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Patient search: trigram index for fuzzy name lookup
		{
			name:  "idx_patients_name_search",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin (name gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		// Doctor worklist: patients awaiting review, newest first
		{
			name:  "idx_patients_pending_review",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_pending_review ON clinical.patients (doctor_id, updated_at) WHERE deleted_at IS NULL AND pending_review = true`,
		},
		// Sweep scan: active patients by stage window end
		{
			name:  "idx_patients_active_windows",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_active_windows ON clinical.patients (status, current_stage) WHERE deleted_at IS NULL AND status = 'active'`,
		},
		// Unread message badge
		{
			name:  "idx_push_messages_unread",
			query: `CREATE INDEX IF NOT EXISTS idx_push_messages_unread ON messaging.push_messages (user_id, created_at) WHERE read_at IS NULL`,
		},
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("enabling pg_trgm extension: %w", err)
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
