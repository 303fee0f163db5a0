// Package main runs the hackathon platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackhub/backend/config"
	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/certificates"
	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/export"
	"github.com/hackhub/backend/internal/invites"
	"github.com/hackhub/backend/internal/judges"
	"github.com/hackhub/backend/internal/leaderboard"
	"github.com/hackhub/backend/internal/messaging"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notify"
	"github.com/hackhub/backend/internal/profiles"
	"github.com/hackhub/backend/internal/realtime"
	"github.com/hackhub/backend/internal/registrations"
	"github.com/hackhub/backend/internal/submissions"
	"github.com/hackhub/backend/internal/worker"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/queue"
	"github.com/hackhub/backend/pkg/redis"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArtifactsBucket:      cfg.AWS.ArtifactsBucket,
			CertificatesBucket:   cfg.AWS.CertificatesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	} else {
		logger.Warn("s3 disabled: AWS_REGION not set")
	}
	// Interface values stay nil when S3 is off so services can detect it.
	var subStorage submissions.Storage
	var certStorage certificates.Storage
	if s3Client != nil {
		subStorage = s3Client
		certStorage = s3Client
	}

	var sheetsExport registrations.SheetsAppender
	if cfg.Sheets.Enabled() {
		sh, err := export.NewSheets(ctx, cfg.Sheets.ServiceAccountJSON, cfg.Sheets.SpreadsheetID, logger)
		if err != nil {
			logger.Warn("sheets export disabled", zap.Error(err))
		} else {
			sheetsExport = sh
		}
	}

	var announcer messaging.Announcer
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn("telegram mirror disabled", zap.Error(err))
		} else {
			announcer = tg
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth and profiles
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	profileHandler := profiles.NewHandler(profiles.NewRepository(pool), logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(events.NewService(eventRepo), logger)

	// Registrations and invites
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrations.NewService(registrationRepo), sheetsExport, logger)
	inviteSvc := invites.NewService(invites.NewRepository(pool), eventRepo, registrationRepo,
		cfg.Invites.TeamTTL, cfg.Invites.JudgeTTL, logger)
	inviteHandler := invites.NewHandler(inviteSvc, logger)

	// Judges
	judgeRepo := judges.NewRepository(pool)
	judgeHandler := judges.NewHandler(judgeRepo, logger)

	// Leaderboard and submissions
	leaderboardCache := leaderboard.NewRedisCache(rdb.Client, cfg.Leaderboard.CacheTTL)
	leaderboardHandler := leaderboard.NewHandler(
		leaderboard.NewService(leaderboard.NewRepository(pool), leaderboardCache, logger), logger)
	submissionSvc := submissions.NewService(submissions.NewRepository(pool), eventRepo, registrationRepo,
		judgeRepo, leaderboardCache, subStorage, logger)
	submissionHandler := submissions.NewHandler(submissionSvc, logger)

	// Certificates
	certificateRepo := certificates.NewRepository(pool)
	certificateHandler := certificates.NewHandler(
		certificates.NewService(certificateRepo, eventRepo, jobQueue, certStorage, logger), logger)

	// Messaging
	messagingSvc := messaging.NewService(messaging.NewRepository(pool), eventRepo, registrationRepo,
		judgeRepo, hub, announcer, logger)
	messagingHandler := messaging.NewHandler(messagingSvc, logger)

	authenticate := func(token string) (messaging.Caller, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return messaging.Caller{}, err
		}
		return messaging.Caller{UserID: claims.UserID, Email: claims.Email, FullName: claims.FullName}, nil
	}

	inviteLimiter := middleware.NewRateLimiter(cfg.RateLimit.InviteBurst, cfg.RateLimit.InvitePerMinute)
	requireOwner := events.RequireOwner(eventRepo)
	loadEvent := events.LoadEvent(eventRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, authenticate, messagingSvc, logger))

	v1 := router.Group("/api/v1")

	// Public
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	v1.GET("/users/:id/profile", profileHandler.Public)
	v1.GET("/certificates/verify/:code", certificateHandler.Verify)
	v1.GET("/invites/:code", middleware.RateLimit(inviteLimiter), inviteHandler.Preview)

	// Public reads that show more to a signed-in organizer
	optional := v1.Group("")
	optional.Use(middleware.OptionalJWT(jwtService))
	{
		optional.GET("/events", eventHandler.List)
		optional.GET("/events/:id", eventHandler.Get)
		optional.GET("/events/:id/leaderboard", loadEvent, leaderboardHandler.Get)
	}

	// Protected API (JWT required)
	api := v1.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Me
		api.GET("/me/profile", profileHandler.Me)
		api.PATCH("/me/profile", profileHandler.Update)
		api.GET("/me/registrations", registrationHandler.ListMine)
		api.GET("/me/judging", judgeHandler.Mine)
		api.GET("/me/certificates", certificateHandler.Mine)

		// Events (organizer)
		api.POST("/events", middleware.RequireRole(models.RoleOrganizer), eventHandler.Create)
		api.PATCH("/events/:id", requireOwner, eventHandler.Update)
		api.POST("/events/:id/status", requireOwner, eventHandler.SetStatus)
		api.DELETE("/events/:id", requireOwner, eventHandler.Delete)
		api.GET("/events/:id/stats", requireOwner, eventHandler.Stats)
		api.POST("/events/:id/rounds", requireOwner, eventHandler.AddRound)
		api.PUT("/events/:id/rounds/:roundId", requireOwner, eventHandler.UpdateRound)
		api.DELETE("/events/:id/rounds/:roundId", requireOwner, eventHandler.DeleteRound)

		// Registrations
		api.POST("/events/:id/register", loadEvent, registrationHandler.Register)
		api.GET("/events/:id/registrations/me", registrationHandler.Mine)
		api.GET("/events/:id/registrations", requireOwner, registrationHandler.ListByEvent)
		api.DELETE("/events/:id/registrations/:regId", requireOwner, registrationHandler.Delete)
		api.GET("/events/:id/registrations/export.csv", requireOwner, registrationHandler.ExportCSV)
		api.POST("/events/:id/registrations/export/sheets", requireOwner, registrationHandler.ExportSheets)

		// Invites
		api.POST("/events/:id/invites/team", inviteHandler.CreateTeam)
		api.POST("/events/:id/invites/judge", requireOwner, inviteHandler.CreateJudge)
		api.GET("/events/:id/invites", requireOwner, inviteHandler.ListByEvent)
		api.POST("/invites/:code/accept", middleware.RateLimit(inviteLimiter), inviteHandler.Accept)
		api.POST("/invites/:code/revoke", inviteHandler.Revoke)

		// Judges
		api.GET("/events/:id/judges", requireOwner, judgeHandler.ListByEvent)
		api.DELETE("/events/:id/judges/:userId", requireOwner, judgeHandler.Remove)

		// Submissions and reviews
		api.POST("/events/:id/rounds/:roundId/submission", loadEvent, submissionHandler.Submit)
		api.POST("/events/:id/rounds/:roundId/artifact-url", loadEvent, submissionHandler.ArtifactURL)
		api.GET("/events/:id/submissions", submissionHandler.ListByEvent)
		api.GET("/events/:id/submissions/me", submissionHandler.Mine)
		api.GET("/submissions/:id", submissionHandler.Get)
		api.DELETE("/submissions/:id", submissionHandler.Delete)
		api.POST("/submissions/:id/reviews", submissionHandler.Review)
		api.GET("/submissions/:id/reviews", submissionHandler.Reviews)
		api.POST("/submissions/:id/decision", submissionHandler.Decide)
		api.GET("/submissions/:id/artifact-url", submissionHandler.ArtifactDownload)

		// Certificates
		api.POST("/events/:id/certificates/generate", requireOwner, certificateHandler.Generate)
		api.GET("/events/:id/certificates", requireOwner, certificateHandler.ListByEvent)
		api.GET("/certificates/:id/download-url", certificateHandler.DownloadURL)

		// Messaging
		api.GET("/events/:id/channels", loadEvent, messagingHandler.Channels)
		api.GET("/channels/:id/messages", messagingHandler.Messages)
		api.POST("/channels/:id/messages", messagingHandler.Post)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Background certificate rendering needs somewhere to put the files.
	if s3Client != nil {
		processor := worker.NewCertificateProcessor(certificateRepo, s3Client, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("certificate worker started")
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				inviteLimiter.Sweep(10 * time.Minute)
			}
		}
	}()

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
