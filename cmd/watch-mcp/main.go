package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
	"github.com/anthropics/feishu-keyword-watch/internal/conf"
	"github.com/anthropics/feishu-keyword-watch/internal/data"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
	"github.com/anthropics/feishu-keyword-watch/mcpserver"
)

// Standalone stdio MCP server exposing reminder and ignore management over
// the shared sqlite store. Runs alongside the bot process, which picks up
// store changes on its next reconcile.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	bot := os.Getenv("WATCH_BOT_ID")
	if bot == "" {
		log.Fatal("WATCH_BOT_ID is required")
	}

	db, err := data.OpenDatabase(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	reminderRepo, err := data.NewReminderRepo(db)
	if err != nil {
		log.Fatalf("Failed to init reminder store: %v", err)
	}
	ignoreRepo, err := data.NewIgnoreRepo(db)
	if err != nil {
		log.Fatalf("Failed to init ignore store: %v", err)
	}

	keywordCache := usecase.NewKeywordCache(reminderRepo)
	ignoreCache := usecase.NewIgnoreCache(ignoreRepo)
	reminderUC := usecase.NewReminderUsecase(reminderRepo, keywordCache)
	ignoreUC := usecase.NewIgnoreUsecase(ignoreRepo, ignoreCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	srv := mcpserver.NewServer(reminderUC, ignoreUC, bot)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
