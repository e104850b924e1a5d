// Package sender assembles the notification worker: broker consumer plus
// the SMTP transport.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/trainrup/billing/internal/config"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/lib/smtp"
	"github.com/trainrup/billing/internal/rabbitmq"
	senderservice "github.com/trainrup/billing/internal/services/sender"
)

// App is the assembled notification worker.
type App struct {
	logger  *slog.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
	service *senderservice.Service
}

// New builds the worker: broker channel, SMTP transport and the sender
// service.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	service := senderservice.New(transport, logger)

	return &App{
		logger:  logger,
		conn:    conn,
		channel: channel,
		service: service,
	}, nil
}

// Run consumes the notification queues until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.channel, "notifications.trial-expired", a.service.SendTrialExpired)
	if err != nil {
		return err
	}

	a.logger.Info("notification sender started")
	<-ctx.Done()

	if err := a.channel.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close broker connection", sl.Err(err))
	}
	a.logger.Info("notification sender stopped")
	return nil
}
