package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trialflow/trialflow/internal/config"
	"github.com/trialflow/trialflow/internal/domain"
	"github.com/trialflow/trialflow/pkg/auth"
	"github.com/trialflow/trialflow/pkg/metrics"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Auth     *AuthHandler
	Patients *PatientHandler
	Scales   *ScaleHandler
	Records  *RecordHandler
	Messages *MessageHandler

	JWT     *auth.JWTManager
	Metrics *metrics.Collector
	Log     *zap.Logger
	Cfg     *config.Config
}

// NewRouter wires the full HTTP surface. Patients touch only their own data;
// stage decisions are doctor or admin territory.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(Metrics(d.Metrics))
	r.Use(corsMiddleware(d.Cfg.CORS))
	r.Use(RateLimit(d.Cfg.RateLimit))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Cfg.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(AuthRateLimit(d.Cfg.RateLimit))
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/refresh", d.Auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(Authenticate(d.JWT))
	{
		protected.POST("/auth/change-password", d.Auth.ChangePassword)

		patients := protected.Group("/patients")
		{
			patients.POST("", RequireRole(domain.RoleDoctor, domain.RoleAdmin), d.Patients.Register)
			patients.GET("", RequireRole(domain.RoleDoctor, domain.RoleAdmin), d.Patients.List)
			patients.GET("/:id", d.Patients.Get)
			patients.GET("/:id/completion", d.Patients.CompletionStatus)
			patients.GET("/:id/windows", d.Patients.TimeWindows)
			patients.POST("/:id/submit-review", d.Patients.SubmitForReview)
			patients.POST("/:id/complete-stage", RequireRole(domain.RoleDoctor, domain.RoleAdmin), d.Patients.CompleteStage)
			patients.GET("/:id/withdrawal-check", d.Patients.CheckWithdrawal)
			patients.POST("/:id/withdraw", d.Patients.Withdraw)
			patients.GET("/:id/scales/:stage", d.Scales.ListPatientRecords)
		}

		scales := protected.Group("/scales")
		{
			scales.GET("", d.Scales.ListCatalog)
			scales.POST("/records", d.Scales.SubmitRecord)
		}

		records := protected.Group("/records")
		{
			records.POST("/medications", d.Records.CreateMedication)
			records.POST("/concomitant-medications", d.Records.CreateConcomitant)
			records.POST("/medical-files", d.Records.CreateMedicalFile)
		}

		messages := protected.Group("/messages")
		{
			messages.GET("", d.Messages.List)
			messages.POST("/:id/read", d.Messages.MarkRead)
		}
	}

	return r
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			c.Header("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
