package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lexdesk/internal/ai"
	"lexdesk/internal/app"
	"lexdesk/internal/billing"
	"lexdesk/internal/cache"
	"lexdesk/internal/config"
	"lexdesk/internal/email"
	"lexdesk/internal/model"
	postgresClient "lexdesk/internal/platform/postgres"
	rabbitmqClient "lexdesk/internal/platform/rabbitmq"
	redisClient "lexdesk/internal/platform/redis"
	"lexdesk/internal/repository"
	"lexdesk/internal/storage"
	"lexdesk/internal/worker"
)

type Services struct {
	Auth          *app.AuthService
	PasswordReset *app.PasswordResetService
	Chat          *app.ChatService
	Document      *app.DocumentService
	Case          *app.CaseService
	CaseFile      *app.CaseFileService
	Vectorize     *app.VectorizeService
	Lookup        *app.LookupService
	Lawyer        *app.LawyerService
	Billing       *app.BillingService
}

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Postgres *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Services Services

	MessageWorker   *worker.MessagePersistWorker
	VectorizeWorker *worker.VectorizeWorker
	Scheduler       *worker.Scheduler

	StartedAt time.Time
}

// OpenDatabase connects to Postgres and migrates the schema.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.Postgres.LogSQL {
		level = gormlogger.Info
	}
	db, err := postgresClient.New(ctx, cfg.Postgres.URL, level)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return db, nil
}

// OpenRedis connects using the URL when set, otherwise the address fields.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return redisClient.New(ctx, redisClient.Options{
		URL:      cfg.Redis.URL,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func NewStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "cloudinary":
		return storage.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	default:
		return storage.NewLocalStore(cfg.LocalDir)
	}
}

// NewMailer sends through Resend when a key is configured and only logs
// otherwise.
func NewMailer(cfg *config.Config, log *zap.Logger) *email.Mailer {
	var sender email.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
	} else {
		log.Warn("RESEND_API_KEY not set, emails are only logged")
		sender = email.NewLogSender(log)
	}
	return email.NewMailer(sender, cfg.App.Name)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Postgres = db

	redisCli, err := OpenRedis(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue, cfg.RabbitMQ.VectorizeQueue)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.MQConn = mqConn

	store, err := NewStore(cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init storage failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	geoRepo := repository.NewGeoRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	fileRepo := repository.NewCaseFileRepository(db)

	mailer := NewMailer(cfg, log)
	llm := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	gateway := billing.NewStripeGateway(billing.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		PriceBasic:    cfg.Stripe.PriceBasic,
		PricePro:      cfg.Stripe.PricePro,
	})
	vectorizeQueue := rabbitmqClient.NewVectorizePublisher(mqConn, cfg.RabbitMQ.VectorizeQueue)
	maxUpload := int64(cfg.Storage.MaxUploadMB) << 20

	caseFiles := app.NewCaseFileService(caseRepo, fileRepo, store, vectorizeQueue, llm, maxUpload, log)
	a.Services = Services{
		Auth: app.NewAuthService(
			userRepo, subRepo, geoRepo, mailer,
			cfg.Auth.Secret,
			time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
			log,
		),
		PasswordReset: app.NewPasswordResetService(resetRepo, userRepo, mailer, log),
		Chat: app.NewChatService(
			chatRepo,
			messageRepo,
			caseRepo,
			rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue),
			cache.NewHistoryCache(redisCli, seconds(cfg.Redis.HistoryTTLSeconds), seconds(cfg.Redis.HistoryDirtyTTLSeconds)),
			llm,
			caseFiles,
			app.Entitlements{
				User:      cfg.Limits.MessagesPerDayUser,
				Lawyer:    cfg.Limits.MessagesPerDayLawyer,
				LawyerPro: cfg.Limits.MessagesPerDayLawyerPro,
			},
			cfg.LLM.MaxContextMessage,
			log,
		),
		Document:  app.NewDocumentService(docRepo),
		Case:      app.NewCaseService(caseRepo, fileRepo, chatRepo, store, log),
		CaseFile:  caseFiles,
		Vectorize: app.NewVectorizeService(fileRepo, store, llm, vectorizeQueue, maxUpload, log),
		Lookup:    app.NewLookupService(geoRepo, cache.NewLookupCache(redisCli, seconds(cfg.Redis.LookupTTLSeconds)), log),
		Lawyer:    app.NewLawyerService(userRepo),
		Billing:   app.NewBillingService(userRepo, subRepo, gateway, cfg.App.PublicURL, cfg.Stripe.PublishableKey, log),
	}

	if err := a.startWorkers(ctx, messageRepo); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) startWorkers(ctx context.Context, messageRepo *repository.MessageRepository) error {
	cfg := a.Config

	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, a.Log)
	if err := a.MessageWorker.Start(ctx); err != nil {
		return fmt.Errorf("start message worker failed: %w", err)
	}

	a.VectorizeWorker = worker.NewVectorizeWorker(a.MQConn, a.Services.Vectorize, cfg.RabbitMQ.VectorizeQueue, a.Log)
	if err := a.VectorizeWorker.Start(ctx); err != nil {
		return fmt.Errorf("start vectorize worker failed: %w", err)
	}

	a.Scheduler = worker.NewScheduler(a.Log)
	for _, job := range worker.MaintenanceJobs(a.Services.PasswordReset.PurgeExpired, a.Services.Vectorize.RequeueStale, a.Log) {
		if err := a.Scheduler.Add(job); err != nil {
			return err
		}
	}
	a.Scheduler.Start(ctx)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.VectorizeWorker != nil {
		a.VectorizeWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		sqlDB, err := a.Postgres.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
