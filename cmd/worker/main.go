package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/onboardhub/engine/internal/app"
	"github.com/onboardhub/engine/internal/queue/tasks"
	"github.com/onboardhub/engine/pkg/config"
	"github.com/onboardhub/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	// The worker is the queue's consumer, so its own entries are written directly.
	a, err := app.New(ctx, cfg, app.Options{ActivityMode: app.ActivityAsync, SkipBlobs: true})
	if err != nil {
		log.Fatal("failed to initialise application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	if err := a.PingRedis(ctx); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	redisOpt := app.AsynqRedisOpt(cfg)
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			tasks.QueueDefault: 6,
			tasks.QueueLow:     3,
		},
		Logger: zapAsynqLogger{log.Sugar()},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeActivityAppend, tasks.NewActivityTaskHandler(a.ActivityWriter).HandleAppend)
	mux.HandleFunc(tasks.TypeReminderRun, tasks.NewReminderTaskHandler(a.Reminders).HandleRun)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: zapAsynqLogger{log.Sugar()}})
	entryID, err := tasks.RegisterReminderSchedule(scheduler, cfg.ReminderCron)
	if err != nil {
		log.Fatal("invalid reminder schedule", zap.String("cron", cfg.ReminderCron), zap.Error(err))
	}
	log.Info("reminder schedule registered", zap.String("cron", cfg.ReminderCron), zap.String("entry_id", entryID))

	log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
	if err := srv.Start(mux); err != nil {
		log.Fatal("worker start failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		log.Fatal("scheduler start failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	scheduler.Shutdown()
	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}

// zapAsynqLogger adapts a sugared zap logger to asynq.Logger.
type zapAsynqLogger struct {
	s *zap.SugaredLogger
}

func (l zapAsynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }
