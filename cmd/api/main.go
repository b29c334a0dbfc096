package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/social-media/backend/internal/auth"
	"github.com/emilythestrangee/social-media/backend/internal/cache"
	"github.com/emilythestrangee/social-media/backend/internal/comments"
	"github.com/emilythestrangee/social-media/backend/internal/communities"
	"github.com/emilythestrangee/social-media/backend/internal/config"
	"github.com/emilythestrangee/social-media/backend/internal/database"
	"github.com/emilythestrangee/social-media/backend/internal/handlers"
	"github.com/emilythestrangee/social-media/backend/internal/middleware"
	"github.com/emilythestrangee/social-media/backend/internal/posts"
	"github.com/emilythestrangee/social-media/backend/internal/server"
	"github.com/emilythestrangee/social-media/backend/internal/storage"
	"github.com/emilythestrangee/social-media/backend/internal/views"
	"github.com/emilythestrangee/social-media/backend/internal/votes"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database.DSN(), database.Options{Verbose: cfg.Level() <= slog.LevelDebug})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.Migrate(ctx, db.SQL()); err != nil {
		return err
	}

	backend, closeBackend, err := newCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeBackend()
	queryCache := cache.New(backend,
		cache.WithStaleAfter(cfg.Cache.StaleAfter),
		cache.WithVoteRefresh(cfg.Cache.VoteRefresh),
		cache.WithLogger(logger),
	)

	bucket, uploadsDir, err := newBucket(cfg, logger)
	if err != nil {
		return err
	}

	gdb := db.GetDB()
	sessionRepo := database.NewSessionRepository(gdb)

	notifier, err := newNotifier(cfg, db, logger)
	if err != nil {
		return err
	}
	manager := auth.NewManager(auth.ManagerConfig{
		Store:      sessionRepo,
		Notifier:   notifier,
		Provider:   auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, strings.TrimRight(cfg.BaseURL, "/")+"/auth/github/callback"),
		Tokens:     auth.NewTokenIssuer(cfg.Auth.JWTSecret),
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	})
	if err := manager.Start(ctx); err != nil {
		_ = notifier.Close()
		return err
	}
	defer func() {
		if err := manager.Stop(); err != nil {
			logger.Warn("failed to stop auth manager", "error", err)
		}
	}()

	cookies, err := auth.NewCookieStore(cfg.Auth.CookieSecret, strings.HasPrefix(cfg.BaseURL, "https://"), int(cfg.Auth.SessionTTL.Seconds()))
	if err != nil {
		return err
	}

	renderer, err := views.New()
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.Limits.PerSecond, cfg.Limits.Burst)
	go limiter.Cleanup(ctx, time.Minute)
	go expireSessions(ctx, sessionRepo, logger)

	h := handlers.NewHandler(handlers.Services{
		Posts:       posts.NewService(database.NewPostRepository(gdb), bucket, queryCache, logger),
		Votes:       votes.NewService(database.NewVoteRepository(gdb), queryCache, logger),
		Comments:    comments.NewService(database.NewCommentRepository(gdb), queryCache, logger),
		Communities: communities.NewService(database.NewCommunityRepository(gdb), queryCache, logger),
		Sessions:    manager,
		Cookies:     cookies,
		Logger:      logger,
	})

	srv := server.NewServer(h, server.Options{
		Addr:         cfg.Addr(),
		AllowOrigins: cfg.AllowOrigins,
		Authenticate: middleware.AuthMiddleware(manager, cookies),
		RateLimit:    limiter.Middleware(),
		HTMLRender:   renderer,
		DB:           db,
		UploadsDir:   uploadsDir,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCacheBackend(ctx context.Context, cfg config.CacheConfig) (cache.Backend, func(), error) {
	if cfg.Driver == "redis" {
		rb := cache.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.TTL)
		if err := rb.Ping(ctx); err != nil {
			_ = rb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rb, func() { _ = rb.Close() }, nil
	}
	return cache.NewMemoryBackend(cfg.Size, cfg.TTL), func() {}, nil
}

// newBucket returns the image bucket and, for the filesystem driver, the
// directory to serve under /storage.
func newBucket(cfg config.Config, logger *slog.Logger) (storage.Bucket, string, error) {
	if cfg.Storage.Driver == "supabase" {
		return storage.NewSupabaseBucket(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.Bucket, logger), "", nil
	}
	bucket, err := storage.NewFileBucket(cfg.Storage.Dir, cfg.Storage.Bucket, strings.TrimRight(cfg.BaseURL, "/")+"/storage")
	if err != nil {
		return nil, "", err
	}
	return bucket, cfg.Storage.Dir, nil
}

func newNotifier(cfg config.Config, db database.Service, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.Auth.Notifier == "local" {
		return auth.NewLocalNotifier(64), nil
	}
	return auth.NewPGNotifier(db.SQL(), cfg.Database.DSN(), logger)
}

// expireSessions deletes expired session rows every hour.
func expireSessions(ctx context.Context, repo *database.SessionRepository, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Warn("failed to delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("deleted expired sessions", "count", n)
			}
		}
	}
}
