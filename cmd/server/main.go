package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"grumblr/internal/config"
	"grumblr/internal/db"
	"grumblr/internal/feed"
	"grumblr/internal/logger"
	"grumblr/internal/realtime"
	"grumblr/internal/render"
	"grumblr/internal/router"
	"grumblr/internal/services"
	"grumblr/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		color.Yellow("No .env file found, finding env vars from system")
	}

	rootCmd := &cobra.Command{
		Use:   "grumblr",
		Short: "grumblr - a tiny microblog with a live stream",
		Long: `grumblr serves the web UI, the paging API and the WebSocket stream.

Run without a subcommand to start the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func createMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the SQL schema (postgres only)",
	}

	run := func(down bool) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		cfg.Database.AutoMigrate = false

		gdb, err := db.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		m, err := db.NewMigrator(gdb, log)
		if err != nil {
			return err
		}
		if down {
			err = m.Down()
		} else {
			err = m.Up()
		}
		if err != nil {
			return err
		}
		color.Green("✅ Migrations applied")
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  func(cmd *cobra.Command, args []string) error { return run(false) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE:  func(cmd *cobra.Command, args []string) error { return run(true) },
	})
	return cmd
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Log), nil
}

func serve() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	st := store.New(gdb)

	renderer, err := render.New()
	if err != nil {
		return err
	}
	mailer, err := services.NewMailService(cfg.Mail, log)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log)
	engine, err := router.NewEngine(router.Deps{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Feed:     feed.NewService(st, cfg.Stream.PageSize, log),
		Renderer: renderer,
		Hub:      hub,
		Mailer:   mailer,
		Captcha:  services.NewCaptchaService(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	color.Green("🚀 grumblr listening on :%s", cfg.Server.Port)
	log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Env).Msg("Server started")

	select {
	case <-sigChan:
		color.Yellow("\n🛑 Received interrupt signal, shutting down...")
	case err := <-errChan:
		color.Red("❌ Server error: %v", err)
		return err
	}

	// 先断开所有 stream 连接，Shutdown 不会等待被 hijack 的连接
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	color.Green("✅ grumblr stopped gracefully")
	return nil
}
