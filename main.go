package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anthropics/feishu-keyword-watch/feishu"
	"github.com/anthropics/feishu-keyword-watch/internal/biz"
	"github.com/anthropics/feishu-keyword-watch/internal/conf"
	"github.com/anthropics/feishu-keyword-watch/internal/data"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
	"github.com/anthropics/feishu-keyword-watch/internal/server"
	"github.com/anthropics/feishu-keyword-watch/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	repos, err := data.NewRepositories(client, cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	ucs := biz.NewUsecases(repos.Reminder, repos.Ignore, repos.Chat, cfg.Watch.CaseInsensitive)
	scheduler := service.NewReconcileScheduler(ucs.Lifecycle, cfg.Watch.ReconcileCron)

	srv := server.NewFeishuServer(
		client,
		repos.Chat,
		ucs.Notify,
		ucs.Reminder,
		ucs.Ignore,
		ucs.Lifecycle,
		scheduler,
		cfg.Messages,
		cfg.Watch.CommandPrefix,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		repos.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting keyword watch bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
