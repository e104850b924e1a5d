// Package sweeper assembles the trial-expiry sweep worker: storage, the
// subscription administration service and the broker publisher behind a
// cron schedule.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/trainrup/billing/internal/config"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
	"github.com/trainrup/billing/internal/rabbitmq"
	subscriptionservice "github.com/trainrup/billing/internal/services/subscription"
	sweeperservice "github.com/trainrup/billing/internal/services/sweeper"
	"github.com/trainrup/billing/internal/storage/repository"
)

// App is the assembled sweep worker.
type App struct {
	cron    *cron.Cron
	logger  *slog.Logger
	db      *repository.Storage
	conn    *amqp.Connection
	channel *amqp.Channel
}

type amqpPublisher struct {
	channel *amqp.Channel
}

func (p *amqpPublisher) PublishTrialExpired(notice models.TrialExpiredNotice) error {
	return rabbitmq.PublishMessage(p.channel, rabbitmq.Exchange, "trial-expired", notice)
}

// New builds the worker: storage, broker channel and the cron entry
// running the sweep on the configured schedule.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		return nil, err
	}

	subscriptionSvc := subscriptionservice.New(db, logger)
	sweepSvc := sweeperservice.New(db, subscriptionSvc, &amqpPublisher{channel: channel}, logger)

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepCronSpec, func() {
		if err := sweepSvc.Sweep(context.Background()); err != nil {
			logger.Error("trial sweep failed", sl.Err(err))
		}
	}); err != nil {
		return nil, err
	}

	return &App{
		cron:    c,
		logger:  logger,
		db:      db,
		conn:    conn,
		channel: channel,
	}, nil
}

// Run starts the schedule and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("trial sweeper started")
	a.cron.Start()
	<-ctx.Done()

	stopCtx := a.cron.Stop()
	<-stopCtx.Done()

	if err := a.channel.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close broker connection", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	a.logger.Info("trial sweeper stopped")
	return nil
}
