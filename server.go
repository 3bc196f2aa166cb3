package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindly/handler"
	"remindly/repository"
	"remindly/services"
	"remindly/usecase"
	"remindly/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the reminder dispatcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.close(closeCtx)
	}()

	if a.useMongo {
		if err := repository.SetupIndexes(ctx, utils.MongoClient.Database(cfg.Database.DatabaseName), a.collections()); err != nil {
			return err
		}
	}

	redisClient, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	tokens := services.NewTokenService(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.JWTExpiry, services.NewTokenBlacklist(redisClient))
	otps := services.NewOTPStore(redisClient, cfg.JWTIssuer, cfg.OTPTTL, cfg.OTPMaxAttempts)

	taskService := usecase.NewTaskService(a.tasks, a.users, a.dispatcher, cfg.Location)
	adminService := usecase.NewAdminService(a.tasks, a.users, a.dispatcher, a.dispatcher, cfg.Location)
	authService := usecase.NewAuthService(a.users, services.NewGoogleVerifier(cfg.GoogleClientID), otps, a.mailer, tokens, cfg.AdminEmails, cfg.OTPTTL)

	router := handler.SetupRouter(handler.Handlers{
		Tasks:  handler.NewTaskHandler(taskService),
		Admin:  handler.NewAdminHandler(adminService, a.dispatcher),
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(redisClient, a.useMongo),
	}, handler.RouterConfig{
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	if err := a.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start reminder dispatcher: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	utils.Info("server shutdown complete")
	return nil
}
