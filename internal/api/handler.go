package api

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shaiso/Wireflow/internal/editor"
	"github.com/shaiso/Wireflow/internal/mq"
)

// WebhookQueue — очередь вызовов webhook-триггеров. *mq.Publisher её реализует.
type WebhookQueue interface {
	PublishWebhookReceived(ctx context.Context, payload mq.WebhookReceivedPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	session  *editor.Session
	webhooks WebhookQueue
	validate *validator.Validate
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Session *editor.Session

	// Webhooks — очередь вызовов webhook'ов. Без неё приём webhook'ов
	// отвечает 503.
	Webhooks WebhookQueue

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Handler{
		session:  cfg.Session,
		webhooks: cfg.Webhooks,
		validate: validate,
		logger:   logger,
	}
}

// bearerToken извлекает токен пользователя из Authorization.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
