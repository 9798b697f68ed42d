package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"clientlance/internal/auth"
	"clientlance/internal/config"
	"clientlance/internal/database"
	"clientlance/internal/email"
	"clientlance/internal/logging"
	redisx "clientlance/internal/redis"
	"clientlance/internal/server"
	"clientlance/internal/sso"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return oops.Code("LOG_SETUP_FAILED").With("path", cfg.LogFile).Wrap(err)
		}
		rf, err := logging.OpenRotatingFile(cfg.LogFile, logging.DefaultMaxLogBytes, logging.DefaultMaxLogBackups)
		if err != nil {
			return err
		}
		defer rf.Close()
		logOutput = io.MultiWriter(os.Stdout, rf)
	}
	logger := logging.Setup("clientlance", cfg.LogFormat, cfg.LogLevel, logOutput)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redisx.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	signer, err := auth.NewJWTSigner(cfg.Tokens.AccessSecret, cfg.Tokens.RefreshSecret, cfg.Tokens.ResendSecret)
	if err != nil {
		return err
	}

	metrics := server.NewMetrics()
	dispatcher := email.NewDispatcher(email.NewSMTPMailer(cfg.Email), logger)
	dispatcher.Outcomes = metrics.EmailOutcomes
	if !cfg.Email.Enabled() {
		logger.Warn("SMTP is not configured, outgoing mail will fail")
	}

	accounts := auth.NewAccountRepository(db)
	hasher := auth.NewBcryptHasher()

	sessions := &auth.SessionManager{
		Store:      accounts,
		Hasher:     hasher,
		Signer:     signer,
		AccessTTL:  cfg.Tokens.AccessTTL,
		RefreshTTL: cfg.Tokens.RefreshTTL,
	}
	recovery := &auth.RecoveryManager{
		Store:     accounts,
		Hasher:    hasher,
		Signer:    signer,
		Tokens:    auth.RandomTokenIssuer{},
		Mailer:    dispatcher,
		Links:     auth.Links{VerifyEmailURL: cfg.Links.VerifyEmailURL, ResetPasswordURL: cfg.Links.ResetPasswordURL},
		ResendTTL: cfg.Tokens.ResendTTL,
		ResetTTL:  cfg.Tokens.ResetTTL,
		Logger:    logger,
	}

	api := server.NewServer(cfg, server.Deps{
		Sessions:    sessions,
		Recovery:    recovery,
		Reconciler:  &auth.Reconciler{Store: accounts, Sessions: sessions},
		Profiles:    &auth.ProfileManager{Store: accounts, Hasher: hasher, Recovery: recovery},
		RateLimiter: &auth.RateLimiter{Redis: redisClient, Attempts: cfg.RateLimit.Attempts, Window: cfg.RateLimit.Window},
		OAuthStates: &auth.OAuthStateStore{Redis: redisClient},
		Audit:       &auth.AuditLogger{Redis: redisClient},
		Providers:   []sso.Provider{sso.NewGoogleProvider(cfg.OAuth.Google)},
		Metrics:     metrics,
		Logger:      logger,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("addr", addr).Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(shutdownCtx, logger, "graceful shutdown failed", err)
	}
	dispatcher.Close()
	return nil
}
