// Package app wires configuration, storage and services into one container
// shared by the API server, the worker and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/onboardhub/engine/internal/blob"
	"github.com/onboardhub/engine/internal/mailer"
	"github.com/onboardhub/engine/internal/queue/tasks"
	"github.com/onboardhub/engine/internal/repository"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/config"
	"github.com/onboardhub/engine/pkg/database"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/utils"
)

const (
	ActivityAsync = "async"
	ActivityQueue = "queue"
)

// Options adjust what New builds.
type Options struct {
	// ActivityMode overrides cfg.ActivityMode when set.
	ActivityMode string
	// SkipRedis builds without a redis client; dedup and the queue sink are unavailable.
	SkipRedis bool
	// SkipBlobs leaves Blobs nil; portal uploads then fail upstream.
	SkipBlobs bool
}

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Repos  *repository.Set
	Blobs  *blob.Store

	Activity  services.ActivitySink
	Gate      services.AccessGate
	Templates services.TemplateService
	Tasks     services.TaskService
	Projects  services.ProjectService
	Tags      services.TagService
	Comments  services.CommentService
	Portal    services.PortalService
	Reminders services.ReminderService

	// ActivityWriter persists entries synchronously; the worker drains the queue through it.
	ActivityWriter *services.ActivityWriter

	closers []func() error
}

func RedisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0}
}

func AsynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0}
}

// New opens the database and builds every service. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.L()
	a := &App{Config: cfg}

	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	a.Repos = repository.NewSet(db)
	a.ActivityWriter = services.NewActivityWriter(a.Repos.Activity)

	if !opts.SkipRedis {
		a.Redis = redis.NewClient(RedisOptions(cfg))
		a.closers = append(a.closers, a.Redis.Close)
	}

	mode := cfg.ActivityMode
	if opts.ActivityMode != "" {
		mode = opts.ActivityMode
	}
	switch {
	case mode == ActivityQueue && a.Redis != nil:
		client := asynq.NewClient(AsynqRedisOpt(cfg))
		a.closers = append(a.closers, client.Close)
		a.Activity = tasks.NewQueueSink(client)
	default:
		if mode == ActivityQueue {
			log.Warn("activity queue needs redis, falling back to async writes")
		}
		sink := services.NewAsyncSink(a.ActivityWriter, 5*time.Second)
		// registered after the database so pending writes drain before it closes
		a.closers = append(a.closers, func() error { sink.Wait(); return nil })
		a.Activity = sink
	}

	if !opts.SkipBlobs {
		store, err := blob.New(blob.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Blobs = store
	}

	var mail services.Mailer
	if cfg.SMTPConfigured() {
		mail = mailer.New(mailer.Config{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUsername,
			Password:      cfg.SMTPPassword,
			From:          cfg.SMTPFrom,
			FromName:      cfg.SMTPFromName,
			PortalBaseURL: cfg.PortalBaseURL,
		})
	} else {
		log.Warn("smtp not configured, invites and reminders will not be sent")
	}

	var dedup services.Deduper
	if a.Redis != nil && cfg.ReminderDedupTTL > 0 {
		dedup = utils.NewDeduper(a.Redis, "reminder:", cfg.ReminderDedupTTL, log)
	}

	var blobs services.BlobStore
	if a.Blobs != nil {
		blobs = a.Blobs
	}

	a.Gate = services.NewAccessGate(services.AccessGateConfig{
		AdminSecret: cfg.AdminSecret,
		CRMSecret:   cfg.CRMSecret,
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenTTL:    cfg.StaffTokenTTL,
	}, a.Repos)
	a.Templates = services.NewTemplateService(a.Repos)
	a.Tasks = services.NewTaskService(a.Repos, a.Activity)
	a.Projects = services.NewProjectService(a.Repos, a.Templates, mail, a.Activity)
	a.Tags = services.NewTagService(a.Repos, a.Activity)
	a.Comments = services.NewCommentService(a.Repos, a.Activity)
	a.Portal = services.NewPortalService(a.Gate, a.Repos, a.Tasks, blobs, a.Activity)
	a.Reminders = services.NewReminderService(a.Repos, mail, dedup, a.Activity, cfg.ReminderWindow)

	log.Info("application wired",
		zap.String("db_driver", cfg.DBDriver),
		zap.String("activity_mode", mode),
		zap.Bool("redis", a.Redis != nil),
		zap.Bool("blobs", a.Blobs != nil),
		zap.Bool("smtp", mail != nil),
	)
	return a, nil
}

// PingDB reports whether the database answers.
func (a *App) PingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingRedis reports whether redis answers.
func (a *App) PingRedis(ctx context.Context) error {
	if a.Redis == nil {
		return errors.New("redis not configured")
	}
	return a.Redis.Ping(ctx).Err()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
