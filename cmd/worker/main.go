package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"eventdesk/internal/config"
	"eventdesk/internal/logging"
	"eventdesk/internal/mailer"
	"eventdesk/internal/observability"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
	"eventdesk/internal/store"
)

// Worker consumes the delivery queue and mails participants their QR codes.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logg.Closer()
	logger := logg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "eventdesk-worker")
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "eventdesk:deliveries")
	}

	repo := participant.NewRepository(db.Client)
	post := mailer.New(cfg.MailerBaseURL, cfg.MailerSkip)

	if !cfg.MailerSkip {
		if err := post.Health(ctx); err != nil {
			logger.Warn("mailer not available, deliveries will retry as messages arrive", zap.Error(err))
		} else {
			logger.Info("mailer connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != participant.MsgQREmail {
			continue
		}

		var job participant.QRJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			logger.Warn("malformed qr job", zap.Error(err))
			continue
		}

		p, err := repo.GetByID(ctx, job.ParticipantID)
		if err != nil {
			logger.Warn("fetch participant failed", zap.String("participant_id", job.ParticipantID), zap.Error(err))
			continue
		}

		err = post.SendQR(ctx, mailer.QREmail{Name: p.Name, Email: p.Email, Code: p.Code})
		if err != nil {
			logger.Warn("qr email failed", zap.String("participant_id", p.ID), zap.Error(err))
			observability.CaptureErr(err)
			if derr := repo.SetQRStatus(ctx, p.ID, participant.QRError); derr != nil {
				logger.Error("qr status update failed", zap.Error(derr))
			}
			continue
		}

		if err := repo.SetQRStatus(ctx, p.ID, participant.QRSent); err != nil {
			logger.Error("qr status update failed", zap.Error(err))
			continue
		}
		logger.Info("qr email sent", zap.String("participant_id", p.ID))
	}

	logger.Info("worker stopped")
}
