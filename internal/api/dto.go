package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/editor"
)

// maxBodyBytes — предел размера тела запроса.
const maxBodyBytes = 4 << 20

// Project DTOs

// ProjectRequest — создание или изменение проекта.
type ProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Flow DTOs

// CreateFlowRequest — запрос на создание flow.
type CreateFlowRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateFlowRequest — запрос на изменение имени и описания flow.
type UpdateFlowRequest struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Canvas DTOs

// AddNodeRequest — запрос на добавление узла. Пустой ID генерируется.
type AddNodeRequest struct {
	ID       string          `json:"id"`
	Type     domain.NodeKind `json:"type" validate:"required"`
	Position domain.Position `json:"position"`
	Data     domain.NodeData `json:"data"`
}

// AddEdgeRequest — запрос на добавление ребра. Пустой ID генерируется.
type AddEdgeRequest struct {
	ID     string          `json:"id"`
	Source string          `json:"source" validate:"required"`
	Target string          `json:"target" validate:"required"`
	Data   domain.EdgeData `json:"data"`
}

// UpdateStateRequest — новая конфигурация узла.
type UpdateStateRequest struct {
	State map[string]any `json:"state"`
}

// RunRequest — параметры запуска узла или flow.
type RunRequest struct {
	Payload any `json:"payload,omitempty"`
}

// HistoryResponse — результат undo/redo.
type HistoryResponse struct {
	editor.State
	Applied bool `json:"applied"`
}

// TestNodeResponse — результат выполнения узла. Error дублирует data.error.
type TestNodeResponse struct {
	Node  domain.Node `json:"node"`
	Error string      `json:"error,omitempty"`
}

// RunFlowResponse — результат запуска flow.
type RunFlowResponse struct {
	Executed []string `json:"executed"`
	Error    string   `json:"error,omitempty"`
}

// NodeDataResponse — входной или выходной контекст узла.
type NodeDataResponse struct {
	NodeID    string `json:"nodeId"`
	Direction string `json:"direction"`
	Data      any    `json:"data"`
}

// WebhookAccepted — ответ на принятый вызов webhook'а.
type WebhookAccepted struct {
	FlowID string `json:"flowId"`
	NodeID string `json:"nodeId"`
}

// decode читает JSON тело запроса и проверяет теги validate.
// Пустое тело допустимо, если allowEmpty.
func (h *Handler) decode(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" is "+fe.Tag())
			}
			return errors.New(strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}
