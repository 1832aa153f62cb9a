package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Convoy/Config"
	"Convoy/Controllers"
	"Convoy/CronJobs"
	"Convoy/FiberConfig"
	"Convoy/Metrics"
	"Convoy/Models"
	"Convoy/Scheduler"
	"Convoy/Slack"
	"Convoy/email"
	"Convoy/middleware"

	log "github.com/sirupsen/logrus"
)

const (
	planLockKey    = "convoy:plan-lock"
	planLockTTL    = 2 * time.Minute
	keptBackups    = 14
	shutdownWindow = 10 * time.Second
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	cfg.SetupLogging()
	middleware.SetSecret(cfg.JWTSecret)

	if err := Models.Connect(cfg); err != nil {
		log.WithError(err).Fatal("database connection failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lock Scheduler.RunLock = Scheduler.NewLocalLock()
	if cfg.RedisURL != "" {
		client, err := Scheduler.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer client.Close()
		lock = Scheduler.NewRedisLock(client, planLockKey, planLockTTL)
		log.Info("planning runs are serialised through redis")
	}

	recorder := Metrics.NewRecorder()
	service := Scheduler.NewService(Models.DB, lock, cfg.Policy, recorder)

	var backups *CronJobs.BackupJob
	if cfg.DBDriver == "sqlite" {
		backups = CronJobs.NewBackupJob(Models.DB, cfg.DBPath, cfg.BackupDir, cfg.BackupSchedule, keptBackups)
		if _, err := backups.Snapshot("STARTUP"); err != nil {
			log.WithError(err).Error("startup backup failed")
		}
		if err := backups.Start(); err != nil {
			log.WithError(err).Fatal("backup scheduler failed to start")
		}
	}

	var mailer, chat Controllers.SnagNotifier
	mail := Models.EmailConfig{
		SMTPServer:   cfg.Mail.Server,
		SMTPPort:     cfg.Mail.Port,
		Username:     cfg.Mail.Username,
		Password:     cfg.Mail.Password,
		FromEmail:    cfg.Mail.From,
		FromName:     cfg.Mail.FromName,
		TLSEnabled:   cfg.Mail.TLS,
		SkipTLSCheck: cfg.Mail.SkipTLSCheck,
	}
	if mail.Configured() {
		mailer = email.NewSnagMailer(mail)
	} else {
		log.Warn("MAIL_SERVER not set, snag emails are off")
	}
	if cfg.SlackBotToken != "" && cfg.SlackSnagChannel != "" {
		chat = Slack.NewNotifier(cfg.SlackBotToken, cfg.SlackSnagChannel)
	}

	app := FiberConfig.New(cfg)
	FiberConfig.SetupRoutes(app, FiberConfig.Deps{
		DB:            Models.DB,
		Service:       service,
		Metrics:       recorder,
		PlanRateLimit: cfg.PlanRateLimit,
		PlanRateBurst: cfg.PlanRateBurst,
		Backups:       backups,
		SnagMailer:    mailer,
		SnagChat:      chat,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownWindow); err != nil {
			log.WithError(err).Error("server shutdown")
		}
	}()

	log.WithField("port", cfg.Port).Info("Server Up...")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}

	if backups != nil {
		backups.Stop()
	}
	if sqlDB, err := Models.DB.DB(); err == nil {
		sqlDB.Close()
	}
	if backups != nil {
		if _, err := backups.Snapshot("SHUTDOWN"); err != nil {
			log.WithError(err).Error("shutdown backup failed")
		}
	}
}
