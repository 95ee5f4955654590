package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/chore"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/forward"
	"github.com/dukerupert/bywater/internal/gateway"
	"github.com/dukerupert/bywater/internal/logging"
	"github.com/dukerupert/bywater/internal/proof"
	"github.com/dukerupert/bywater/internal/reminder"
	"github.com/dukerupert/bywater/internal/store"
)

func main() {
	logger := logging.Setup(os.Getenv("BYWATER_LOG_LEVEL"))

	dbPath := os.Getenv("BYWATER_DB_PATH")
	if dbPath == "" {
		dbPath = "bywater.db"
	}

	gatewayURL := os.Getenv("BYWATER_GATEWAY_URL")
	if gatewayURL == "" {
		log.Fatal("BYWATER_GATEWAY_URL is required")
	}
	token := os.Getenv("BYWATER_TOKEN")
	if token == "" {
		log.Fatal("BYWATER_TOKEN is required")
	}

	interval := 15 * time.Minute
	if v := os.Getenv("BYWATER_REMINDER_INTERVAL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			log.Fatalf("invalid BYWATER_REMINDER_INTERVAL_MINUTES: %q", v)
		}
		interval = time.Duration(minutes) * time.Minute
	}

	loc := time.Local
	if tz := os.Getenv("BYWATER_TZ"); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("invalid BYWATER_TZ: %v", err)
		}
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	chores := store.NewChoreStore(db)
	submissions := store.NewSubmissionStore(db)
	settings := store.NewSettingsStore(db)
	users := store.NewUserStore(db)
	events := store.NewEventStore(db)

	s3Cfg := proof.S3Config{
		Endpoint:  os.Getenv("BYWATER_S3_ENDPOINT"),
		Bucket:    os.Getenv("BYWATER_S3_BUCKET"),
		Region:    os.Getenv("BYWATER_S3_REGION"),
		AccessKey: os.Getenv("BYWATER_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("BYWATER_S3_SECRET_KEY"),
		PublicURL: os.Getenv("BYWATER_S3_PUBLIC_URL"),
	}
	mirror := proof.NewMirror(proof.Config{
		S3:          s3Cfg,
		FileBaseURL: os.Getenv("BYWATER_FILE_BASE_URL"),
		FileToken:   token,
	}, logger.With("component", "proof"))

	directory := gateway.NewDirectory()
	client := gateway.NewClient(gateway.Config{URL: gatewayURL, Token: token},
		directory, nil, logger.With("component", "gateway"))

	var proofMirror forward.ProofMirror
	if mirror.Enabled() {
		proofMirror = mirror
	}
	forwarder := forward.New(settings, users, events, client, proofMirror,
		logger.With("component", "forward"))
	choreSvc := chore.NewService(chores, submissions, forwarder, loc,
		logger.With("component", "chore"))

	dispatcher := gateway.NewDispatcher(choreSvc, chores, users, settings,
		directory, client, loc, logger.With("component", "dispatch"))
	client.SetHandler(dispatcher)

	engine := reminder.NewEngine(chores, events, client, gateway.RenderReminder,
		logger.With("component", "reminder"))
	scheduler := reminder.NewScheduler(engine, interval, logger.With("component", "reminder"))

	backups := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  s3Cfg.Endpoint,
			Bucket:    s3Cfg.Bucket,
			Region:    s3Cfg.Region,
			AccessKey: s3Cfg.AccessKey,
			SecretKey: s3Cfg.SecretKey,
		},
		Passphrase: os.Getenv("BYWATER_BACKUP_PASSPHRASE"),
	}, db, logger.With("component", "backup"))

	ctx := context.Background()
	client.Start(ctx)
	scheduler.Start(ctx)
	backups.Start(ctx)

	fmt.Println("Bywater running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	backups.Stop()
	scheduler.Stop()
	client.Stop()
}
