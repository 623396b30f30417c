// Package main is the entry point for the playback-engine server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/sbsp/playback-engine/internal/config"
	"github.com/sbsp/playback-engine/internal/controller"
	"github.com/sbsp/playback-engine/internal/database"
	"github.com/sbsp/playback-engine/internal/database/models"
	"github.com/sbsp/playback-engine/internal/database/repositories"
	"github.com/sbsp/playback-engine/internal/engine/audio"
	"github.com/sbsp/playback-engine/internal/engine/wait"
	"github.com/sbsp/playback-engine/internal/executor"
	"github.com/sbsp/playback-engine/internal/manager"
	"github.com/sbsp/playback-engine/internal/pubsub"
	"github.com/sbsp/playback-engine/internal/transport"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const lastShowPathSettingKey = "last_show_path"

func main() {
	cmd := &cli.Command{
		Name:  "playback-engine",
		Usage: "run the show-control playback engine server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP/WebSocket listen port (default 5800)"},
			&cli.StringFlag{Name: "show", Usage: "path to a show file to auto-load at boot"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = strconv.FormatInt(port, 10)
	}
	if show := cmd.String("show"); show != "" {
		cfg.ShowPath = show
	}

	printBanner(cfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close() }()

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Println("Database migrations complete")

	settingRepo := repositories.NewSettingRepository(db)

	hub := pubsub.New()
	mgr, handle := manager.New(hub)
	go mgr.Run()

	showPath := resolveShowPath(ctx, settingRepo, cfg)
	if showPath != "" {
		if err := handle.Send(manager.LoadFromFile{Path: showPath}); err != nil {
			log.Printf("Warning: failed to queue show load for %s: %v", showPath, err)
		}
	}

	audioEvents := make(chan audio.Event, 64)
	waitEvents := make(chan wait.Event, 64)
	audioEngine := audio.New(audioEvents)
	waitEngine := wait.New(waitEvents)
	go audioEngine.Run()
	go waitEngine.Run()

	executorEvents := make(chan executor.Event, 64)
	exec := executor.New(handle, audioEngine.CommandChannel(), waitEngine.CommandChannel(), audioEvents, waitEvents, executorEvents)
	go exec.Run()

	uiSub := hub.Subscribe(64)
	defer hub.Unsubscribe(uiSub)
	ctrl := controller.New(handle, hub, exec.CommandChannel(), executorEvents, uiSub.Ch)
	go ctrl.Run()

	server := transport.NewServer(cfg, ctrl.CommandChannel(), handle, ctrl.Watch(), hub)

	var advertiser *transport.Advertiser
	if cfg.MDNSEnabled {
		port, _ := strconv.Atoi(cfg.Port)
		advertiser, err = transport.Advertise(cfg.MDNSServiceName, port)
		if err != nil {
			log.Printf("Warning: mDNS advertisement failed: %v", err)
		}
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down server...")
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if advertiser != nil {
		advertiser.Shutdown()
	}
	ctrl.Stop()
	exec.Stop()
	waitEngine.Stop()
	audioEngine.Stop()
	handle.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// resolveShowPath picks the show file to auto-load at boot: the --show
// flag / SHOW_PATH env var take priority over the last-opened path cached
// in the settings database.
func resolveShowPath(ctx context.Context, settingRepo *repositories.SettingRepository, cfg *config.Config) string {
	if cfg.ShowPath != "" {
		if _, err := settingRepo.Upsert(ctx, lastShowPathSettingKey, cfg.ShowPath); err != nil {
			log.Printf("Warning: failed to persist last show path: %v", err)
		}
		return cfg.ShowPath
	}
	setting, err := settingRepo.FindByKey(ctx, lastShowPathSettingKey)
	if err != nil {
		log.Printf("Warning: failed to read last show path: %v", err)
		return ""
	}
	if setting == nil {
		return ""
	}
	return setting.Value
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Playback Engine Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  mDNS:        %v (%s)\n", cfg.MDNSEnabled, cfg.MDNSServiceName)
	fmt.Println("============================================")
}
