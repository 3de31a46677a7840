package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// GamePublisher публикует события партий.
type GamePublisher interface {
	PublishGameEvent(ctx context.Context, event GameEvent) error
	Close() error
}

// channel - подмножество *amqp.Channel, нужное паблишеру.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type rabbitMQGamePublisher struct {
	mu        sync.Mutex
	channel   channel
	open      func() (channel, error)
	closeConn func() error
	queueName string
	logger    *zap.Logger
}

var _ GamePublisher = (*rabbitMQGamePublisher)(nil)

// NewRabbitMQGamePublisher opens a channel on conn and declares the durable queue.
// The publisher owns conn: after a broker restart the next publish redials rawURL
// once and reopens the channel, and Close closes the current connection.
func NewRabbitMQGamePublisher(conn *amqp.Connection, rawURL, queueName string, logger *zap.Logger) (GamePublisher, error) {
	session := &amqpSession{
		conn:      conn,
		queueName: queueName,
		dial: func() (*amqp.Connection, error) {
			return Connect(rawURL, 1, 0, logger)
		},
		logger: logger,
	}
	p := newGamePublisher(session.openChannel, session.close, queueName, logger)

	p.mu.Lock()
	err := p.ensureChannel()
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	logger.Info("Game events queue declared", zap.String("queue", queueName))
	return p, nil
}

func newGamePublisher(open func() (channel, error), closeConn func() error, queueName string, logger *zap.Logger) *rabbitMQGamePublisher {
	return &rabbitMQGamePublisher{
		open:      open,
		closeConn: closeConn,
		queueName: queueName,
		logger:    logger.Named("GamePublisher"),
	}
}

func (p *rabbitMQGamePublisher) PublishGameEvent(ctx context.Context, event GameEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга события %s: %w", event.Type, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		AppId:        "geopolitics-server",
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp-канал не рассчитан на параллельную публикацию
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// Канал закрылся между проверкой и публикацией: одна повторная попытка на новом канале
		p.logger.Warn("RabbitMQ channel closed during publish, reopening", zap.Error(err))
		_ = p.channel.Close()
		p.channel = nil
		err = p.publish(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("ошибка публикации в очередь %s: %w", p.queueName, err)
	}
	p.logger.Debug("Game event published", zap.String("type", string(event.Type)), zap.Int64("gameID", event.GameID))
	return nil
}

func (p *rabbitMQGamePublisher) publish(ctx context.Context, msg amqp.Publishing) error {
	if err := p.ensureChannel(); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		msg,
	)
}

// ensureChannel открывает новый канал, если текущего нет или он закрыт. Вызывается под mu.
func (p *rabbitMQGamePublisher) ensureChannel() error {
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	if p.channel != nil {
		p.logger.Warn("RabbitMQ channel is closed, reopening", zap.String("queue", p.queueName))
		_ = p.channel.Close()
		p.channel = nil
	}
	ch, err := p.open()
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

func (p *rabbitMQGamePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil && !p.channel.IsClosed() {
		errs = append(errs, p.channel.Close())
	}
	p.channel = nil
	if p.closeConn != nil {
		errs = append(errs, p.closeConn())
	}
	return errors.Join(errs...)
}

// amqpSession держит текущее соединение и переподключается после его разрыва.
type amqpSession struct {
	conn      *amqp.Connection
	dial      func() (*amqp.Connection, error)
	queueName string
	logger    *zap.Logger
}

func (s *amqpSession) openChannel() (channel, error) {
	if s.conn == nil || s.conn.IsClosed() {
		conn, err := s.dial()
		if err != nil {
			return nil, fmt.Errorf("game publisher: не удалось переподключиться: %w", err)
		}
		s.conn = conn
	}

	ch, err := s.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("game publisher: не удалось открыть канал: %w", err)
	}
	_, err = ch.QueueDeclare(
		s.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("game publisher: не удалось объявить очередь '%s': %w", s.queueName, err)
	}
	return ch, nil
}

func (s *amqpSession) close() error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}

// NoopPublisher используется, когда RabbitMQ не настроен.
type NoopPublisher struct{}

func (NoopPublisher) PublishGameEvent(context.Context, GameEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
