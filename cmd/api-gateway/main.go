package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/padel-waitlist-api/api/swagger"
	"github.com/noah-isme/padel-waitlist-api/internal/handler"
	internalmiddleware "github.com/noah-isme/padel-waitlist-api/internal/middleware"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	"github.com/noah-isme/padel-waitlist-api/internal/repository"
	"github.com/noah-isme/padel-waitlist-api/internal/service"
	"github.com/noah-isme/padel-waitlist-api/pkg/cache"
	"github.com/noah-isme/padel-waitlist-api/pkg/claimtoken"
	"github.com/noah-isme/padel-waitlist-api/pkg/config"
	"github.com/noah-isme/padel-waitlist-api/pkg/database"
	"github.com/noah-isme/padel-waitlist-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/padel-waitlist-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/padel-waitlist-api/pkg/middleware/requestid"
	"github.com/noah-isme/padel-waitlist-api/pkg/phone"
	"github.com/noah-isme/padel-waitlist-api/pkg/whatsapp"
)

// @title Padel Waitlist API
// @version 1.0.0
// @description Waitlist and timed enrollment links for padel club classes.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type handlers struct {
	claims       *handler.ClaimHandler
	occurrences  *handler.OccurrenceHandler
	participants *handler.ParticipantHandler
	tokens       *handler.TokenHandler
	metrics      *handler.MetricsHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Sugar().Infow("redis not configured, channel cache and claim rate limit disabled")
	case err != nil:
		logr.Sugar().Warnw("redis unavailable, channel cache and claim rate limit disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	classRepo := repository.NewClassRepository(db)
	clubRepo := repository.NewClubRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var (
		cacheRepo   service.CacheRepository
		rateLimiter internalmiddleware.HitCounter
	)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
		rateLimiter = repository.NewRateLimitRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Clubs.ChannelCacheTTL, logr)

	signer := claimtoken.NewSigner(cfg.Waitlist.TokenSecret)
	sender := whatsapp.New(cfg.Messaging.BaseURL, cfg.Messaging.APIKey, cfg.Messaging.Timeout)
	normalizer := phone.NewNormalizer(cfg.Messaging.DefaultRegion)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	capacitySvc := service.NewCapacityService(classRepo, participantRepo, tokenRepo, logr)
	waitlistSvc := service.NewWaitlistService(waitlistRepo, classRepo, studentRepo, participantRepo, validate, logr)
	tokenSvc := service.NewTokenService(tokenRepo, notificationRepo, signer, service.TokenConfig{
		TTL:           cfg.Waitlist.TokenTTL,
		PublicBaseURL: cfg.Waitlist.PublicBaseURL,
	}, metricsSvc, logr)
	directorySvc := service.NewClubDirectoryService(clubRepo, cacheSvc, cfg.Clubs.ChannelCacheTTL, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, classRepo, directorySvc, sender, normalizer, service.NotificationConfig{
		DefaultChannel: cfg.Messaging.DefaultChannel,
	}, metricsSvc, logr)

	var retryWorker *service.NotificationRetryWorker
	var scheduler interface{ ScheduleResend(token string) error }
	if cfg.Notify.AutoRetry {
		retryWorker = service.NewNotificationRetryWorker(service.RetryConfig{
			Attempts: cfg.Notify.RetryAttempts,
			Delay:    cfg.Notify.RetryDelay,
		}, metricsSvc, logr)
		scheduler = retryWorker
	}

	workflowSvc := service.NewWaitlistWorkflowService(capacitySvc, waitlistSvc, tokenSvc, notificationSvc, scheduler, repository.NewOccurrenceLockRepository(db), metricsSvc, logr)
	participantSvc := service.NewParticipantService(participantRepo, classRepo, studentRepo, workflowSvc, validate, logr)
	claimSvc := service.NewClaimService(claimRepo, tokenRepo, classRepo, studentRepo, signer, metricsSvc, logr)
	rosterSvc := service.NewRosterService(classRepo, participantRepo, waitlistRepo)

	if retryWorker != nil {
		retryWorker.Start(ctx, workflowSvc)
		defer retryWorker.Stop()
	}
	waitlistSvc.StartExpirySweep(ctx, cfg.Waitlist.SweepInterval)

	h := handlers{
		claims:       handler.NewClaimHandler(claimSvc, cfg.Waitlist.ClaimSuccessRedirect, logr),
		occurrences:  handler.NewOccurrenceHandler(capacitySvc, waitlistSvc, participantSvc, workflowSvc, rosterSvc),
		participants: handler.NewParticipantHandler(participantSvc),
		tokens:       handler.NewTokenHandler(tokenSvc, workflowSvc),
		metrics:      handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient)),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg.APIPrefix, h, authSvc, auditRepo, rateLimiter, cfg.RateLimit.ClaimPerMinute, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// registerRoutes mounts the enrollment link at the root, where claimtoken.ClaimURL
// points, and the staff API under apiPrefix.
func registerRoutes(r gin.IRouter, apiPrefix string, h handlers, auth internalmiddleware.TokenValidator, audit internalmiddleware.AuditWriter, limiter internalmiddleware.HitCounter, claimLimit int, logr *zap.Logger) {
	// the claim handler renders its own body for missing or non-student callers
	claim := []gin.HandlerFunc{
		internalmiddleware.OptionalJWT(auth),
		internalmiddleware.RateLimit(limiter, "claim", claimLimit, time.Minute, logr, h.claims.RateLimited),
		h.claims.Claim,
	}
	r.GET("/enroll/:token", claim...)
	r.POST("/enroll/:token", claim...)

	authed := r.Group(apiPrefix)
	authed.Use(internalmiddleware.JWT(auth))

	occurrences := authed.Group("/classes/:classId/occurrences/:date")
	occurrences.GET("/availability", h.occurrences.Availability)
	occurrences.POST("/waitlist",
		internalmiddleware.RBAC(models.RoleAdmin, models.RoleTrainer, models.RoleStudent),
		internalmiddleware.Audit(audit, logr, "WAITLIST_JOIN", "waitlist", "classId"),
		h.occurrences.JoinWaitlist)

	staff := occurrences.Group("")
	staff.Use(internalmiddleware.RequireStaff())
	staff.GET("/waitlist", h.occurrences.Waitlist)
	staff.GET("/roster", h.occurrences.Roster)
	staff.POST("/participants", internalmiddleware.Audit(audit, logr, "PARTICIPANT_ENROLL", "participant", "classId"), h.occurrences.Enroll)
	staff.POST("/notify-waitlist", internalmiddleware.Audit(audit, logr, "WAITLIST_NOTIFY", "occurrence", "classId"), h.occurrences.NotifyWaitlist)

	participants := authed.Group("/participants/:id")
	participants.Use(internalmiddleware.RequireStaff())
	participants.POST("/cancel", internalmiddleware.Audit(audit, logr, "PARTICIPANT_CANCEL", "participant", "id"), h.participants.Cancel)
	participants.POST("/absence", internalmiddleware.Audit(audit, logr, "PARTICIPANT_ABSENCE", "participant", "id"), h.participants.ConfirmAbsence)

	tokens := authed.Group("/tokens/:token")
	tokens.Use(internalmiddleware.RequireStaff())
	tokens.GET("", h.tokens.Get)
	tokens.POST("/resend", internalmiddleware.Audit(audit, logr, "TOKEN_RESEND", "enrollment_token", "token"), h.tokens.Resend)
	tokens.POST("/invalidate", internalmiddleware.Audit(audit, logr, "TOKEN_INVALIDATE", "enrollment_token", "token"), h.tokens.Invalidate)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
