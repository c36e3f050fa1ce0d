package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Wireflow/internal/telemetry"
)

// Ошибки соединения.
var (
	// ErrNoChannel — канал ещё не открыт или соединение восстанавливается.
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrClosed — соединение закрыто вызовом Close.
	ErrClosed = errors.New("amqp connection closed")

	// ErrNoURL — не указан адрес брокера.
	ErrNoURL = errors.New("amqp url is required")
)

const (
	defaultHeartbeat  = 10 * time.Second
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// ConnectionConfig — параметры соединения с RabbitMQ.
type ConnectionConfig struct {
	URL string

	// Name — connection_name, под которым сервис виден в RabbitMQ.
	Name string

	// Heartbeat — интервал heartbeat AMQP (по умолчанию 10s).
	Heartbeat time.Duration

	// MinBackoff, MaxBackoff — границы задержки между попытками
	// восстановления (по умолчанию 1s и 30s).
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// OnReconnect вызывается с новым каналом до того, как о восстановлении
	// узнают consumers. Сервисы передают сюда DeclareTopology.
	OnReconnect func(ch *amqp.Channel) error

	Logger *slog.Logger
}

// Connection — соединение с RabbitMQ, которое само восстанавливается.
//
// Канал один на соединение. Закрытие канала брокером (например, из-за
// ошибки объявления) переоткрывает только канал, разрыв соединения
// переподключает целиком. Publish сериализуется pubMu: amqp.Channel
// не допускает конкурентных публикаций.
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu      sync.RWMutex
	pubMu   sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	closedCh chan struct{}

	// reconnected закрывается после каждого восстановления и заменяется
	// новым, так что сигнал получают все consumers сразу.
	reconnected chan struct{}
}

// NewConnection подключается к брокеру и запускает наблюдение за
// соединением. Первая неудачная попытка возвращается как ошибка.
func NewConnection(cfg ConnectionConfig) (*Connection, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = max(defaultMaxBackoff, cfg.MinBackoff)
	}

	c := &Connection{
		cfg:         cfg,
		logger:      cfg.Logger.With("amqp_connection", cfg.Name),
		closedCh:    make(chan struct{}),
		reconnected: make(chan struct{}),
	}

	if err := c.restore(false); err != nil {
		return nil, err
	}
	c.logger.Info("connected to RabbitMQ")

	go c.supervise()
	return c, nil
}

// dialConfig собирает amqp.Config: heartbeat и имя соединения.
func dialConfig(cfg ConnectionConfig) amqp.Config {
	props := amqp.NewConnectionProperties()
	if cfg.Name != "" {
		props.SetClientConnectionName(cfg.Name)
	}
	return amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Locale:     "en_US",
		Properties: props,
	}
}

// restore открывает недостающее: соединение (если оно разорвано) и канал.
// withHook вызывает OnReconnect на новом канале.
func (c *Connection) restore(withHook bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.DialConfig(c.cfg.URL, dialConfig(c.cfg))
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if withHook && c.cfg.OnReconnect != nil {
		if err := c.cfg.OnReconnect(ch); err != nil {
			ch.Close()
			return fmt.Errorf("on reconnect: %w", err)
		}
	}

	c.channel = ch
	return nil
}

// supervise ждёт закрытия соединения или канала и восстанавливает их.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn, ch := c.conn, c.channel
		c.mu.RUnlock()

		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-connClosed:
			c.logger.Warn("connection lost", "error", err)
		case err := <-chClosed:
			c.logger.Warn("channel closed", "error", err)
		}

		if !c.reestablish() {
			return
		}
	}
}

// reestablish повторяет restore с растущей задержкой, пока не получится или
// пока соединение не закроют. Возвращает false после Close.
func (c *Connection) reestablish() bool {
	b := backoff{min: c.cfg.MinBackoff, max: c.cfg.MaxBackoff}

	for {
		err := c.restore(true)
		if errors.Is(err, ErrClosed) {
			return false
		}
		telemetry.ObserveAMQPReconnect(err)
		if err == nil {
			c.logger.Info("reconnected to RabbitMQ")
			c.mu.Lock()
			close(c.reconnected)
			c.reconnected = make(chan struct{})
			c.mu.Unlock()
			return true
		}

		delay := b.next()
		c.logger.Warn("reconnect failed", "error", err, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-c.closedCh:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// backoff — экспоненциальная задержка с ограничением сверху.
type backoff struct {
	min, max time.Duration
	cur      time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.min
	} else {
		b.cur = min(b.cur*2, b.max)
	}
	return b.cur
}

// Channel возвращает текущий AMQP канал.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify возвращает канал, который закроется при следующем
// восстановлении. Для каждого ожидания канал запрашивается заново.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnected
}

// IsConnected сообщает, открыты ли соединение и канал.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.conn == nil || c.channel == nil {
		return false
	}
	return !c.conn.IsClosed() && !c.channel.IsClosed()
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("connection closed")
	return errors.Join(errs...)
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch, closed := c.channel, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}
	return fn(ch)
}

// Publish публикует сообщение в exchange. Реализует Broker.
func (c *Connection) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error {
	return c.WithChannel(ctx, func(ch *amqp.Channel) error {
		c.pubMu.Lock()
		defer c.pubMu.Unlock()
		return ch.PublishWithContext(ctx, string(exchange), string(key), false, false, msg)
	})
}
