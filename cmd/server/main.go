package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hackutd/harp-sub001/internal/applications"
	"github.com/hackutd/harp-sub001/internal/auth"
	"github.com/hackutd/harp-sub001/internal/checkin"
	"github.com/hackutd/harp-sub001/internal/config"
	internalhttp "github.com/hackutd/harp-sub001/internal/http"
	"github.com/hackutd/harp-sub001/internal/jobs"
	"github.com/hackutd/harp-sub001/internal/logger"
	"github.com/hackutd/harp-sub001/internal/mailer"
	"github.com/hackutd/harp-sub001/internal/metrics"
	"github.com/hackutd/harp-sub001/internal/notify"
	"github.com/hackutd/harp-sub001/internal/ratelimit"
	"github.com/hackutd/harp-sub001/internal/refresh"
	"github.com/hackutd/harp-sub001/internal/store"
	"github.com/hackutd/harp-sub001/internal/wizard"
)

func main() {
	cfg := config.Load()
	log := logger.New("portal", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("auth init failed: %v", err)
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	db := store.OpenDB(pool)
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatalf("db migration failed: %v", err)
		}
	}
	storage := store.NewStorage(db)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Warn("redis close error")
			}
		}()
	}

	m := metrics.New()
	refreshSignal := refresh.NewSignal()
	refreshSignal.OnTrigger(func(uint64) { m.RefreshTriggers.Inc() })
	relay := refresh.NewRedisRelay(redisClient, cfg.RefreshChannel, refreshSignal, log.WithField("component", "refresh"))
	go relay.Run(ctx)

	var limiter *ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.New(redisClient, cfg.RateLimit, cfg.RateLimitWindow, log.WithField("component", "ratelimit"))
	}

	var mail mailer.Client = mailer.NewLogMailer(log.WithField("component", "mailer"))
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom)
	}

	notices := notify.NewCenter(0)
	wizards := wizard.NewRegistry(cfg.WizardSessionTTL)
	go wizards.Run(ctx, time.Minute, func(removed int) {
		m.WizardSessions.Set(float64(wizards.Len()))
		log.WithField("removed", removed).Debug("expired wizard sessions")
	})

	service := applications.NewService(storage.Applications, storage.Settings, refreshSignal, notices, log.WithField("component", "applications"))
	server := internalhttp.NewServer(internalhttp.Deps{
		Config:       cfg,
		Log:          log.WithField("component", "http"),
		Verifier:     verifier,
		Users:        storage.Users,
		Applications: service,
		CheckIn:      checkin.NewService(storage.Settings, storage.Scans, log.WithField("component", "checkin")),
		Scans:        storage.Scans,
		Queries:      storage.Applications,
		Settings:     storage.Settings,
		Reviews:      storage.Reviews,
		Wizards:      wizards,
		Signal:       refreshSignal,
		Notices:      notices,
		Limiter:      limiter,
		Metrics:      m,
		Mailer:       mail,
	})
	httpServer := server.HTTPServer(ctx, cfg.HTTPAddr)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	jobs.StartReviewAssignJob(ctx, cfg, storage.Reviews, storage.Settings, log.WithField("component", "jobs"), func(created int) {
		m.ReviewsAssigned.Add(float64(created))
		refreshSignal.Trigger()
	})

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("portal http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen error: %v", err)
		}
		log.WithField("addr", cfg.GRPCAddr).Info("portal grpc health listening")
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("grpc server error: %v", err)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	grpcServer.GracefulStop()
	log.WithFields(logrus.Fields{"refresh_key": refreshSignal.Key()}).Info("portal stopped")
}
