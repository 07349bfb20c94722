package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/trialflow/trialflow/internal/config"
	v1 "github.com/trialflow/trialflow/internal/handler/v1"
	"github.com/trialflow/trialflow/internal/protocol"
	"github.com/trialflow/trialflow/internal/service"
	gormstore "github.com/trialflow/trialflow/internal/storage/gorm"
	"github.com/trialflow/trialflow/pkg/auth"
	"github.com/trialflow/trialflow/pkg/database"
	"github.com/trialflow/trialflow/pkg/logger"
	"github.com/trialflow/trialflow/pkg/metrics"
	"github.com/trialflow/trialflow/pkg/tracer"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	col := metrics.NewCollector("trialflow")
	jwtManager := auth.NewJWTManager(cfg.JWT)
	proto := protocol.Default()

	// Storage
	patientRepo := gormstore.NewPatientRepository(db)
	scaleRepo := gormstore.NewScaleRepository(db)
	medicationRepo := gormstore.NewMedicationRepository(db)
	medfileRepo := gormstore.NewMedFileRepository(db)
	userRepo := gormstore.NewUserRepository(db)
	directoryRepo := gormstore.NewDirectoryRepository(db)
	auditRepo := gormstore.NewAuditRepository(db)
	pushRepo := gormstore.NewPushMessageRepository(db)

	// Async workers
	auditSvc := service.NewAuditService(auditRepo, col.AuditEntriesTotal, col.AuditBufferDropped, log)
	defer auditSvc.Shutdown()
	pushSvc := service.NewPushService(pushRepo, col.PushBufferDropped, log)
	defer pushSvc.Shutdown()

	// Core services
	checker := service.NewRequirementChecker(proto, scaleRepo, medicationRepo, medfileRepo, log)
	resolver := &service.EventDrivenResolver{}
	authSvc := service.NewAuthService(userRepo, jwtManager, auditSvc, log)
	patientSvc := service.NewPatientService(patientRepo, userRepo, directoryRepo, proto, auditSvc, log)
	stageSvc := service.NewStageService(patientRepo, checker, proto, resolver, pushSvc, auditSvc, log)
	reviewSvc := service.NewReviewService(patientRepo, checker, directoryRepo, pushSvc, log)
	withdrawalSvc := service.NewWithdrawalService(patientRepo, scaleRepo, directoryRepo, pushSvc, auditSvc, log)
	scaleSvc := service.NewScaleService(scaleRepo, patientRepo, reviewSvc, log)
	recordSvc := service.NewRecordService(patientRepo, medicationRepo, medfileRepo, reviewSvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweepSvc := service.NewSweepService(patientRepo, pushSvc, cfg.Sweep.RunAt, col.SweepRemindersTotal, log)
		sweepSvc.Start(ctx)
		// Cancel the context before waiting, or an early server error would
		// leave the sweep loop running and Wait blocked forever.
		defer func() {
			stop()
			sweepSvc.Wait()
		}()
	}

	router := v1.NewRouter(v1.RouterDeps{
		Auth:     v1.NewAuthHandler(authSvc),
		Patients: v1.NewPatientHandler(patientSvc, stageSvc, reviewSvc, withdrawalSvc, col),
		Scales:   v1.NewScaleHandler(scaleSvc),
		Records:  v1.NewRecordHandler(recordSvc),
		Messages: v1.NewMessageHandler(pushRepo),
		JWT:      jwtManager,
		Metrics:  col,
		Log:      log,
		Cfg:      cfg,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
