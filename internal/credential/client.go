// Package credential получает расшифрованные секреты у backend'а.
//
// Секреты не кешируются: каждый запуск узла запрашивает значение заново
// с токеном пользователя, инициировавшего запуск.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Ошибки клиента.
var (
	// ErrNotFound — credential не найден.
	ErrNotFound = errors.New("credential not found")

	// ErrUnauthorized — токен пользователя отклонён.
	ErrUnauthorized = errors.New("credential access denied")

	// ErrEmptyID — не указан ID credential'а.
	ErrEmptyID = errors.New("credential id is required")
)

// dataResponse — конверт {data: ...}.
type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// Client — HTTP-клиент credential API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API по адресу baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve возвращает credential по ID.
//
// GET {base}/api/v1/credential/{id} с Authorization: Bearer <token>.
// Ответ принимается как в конверте {data}, так и без него.
func (c *Client) Resolve(ctx context.Context, id, token string) (*domain.Credential, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/credential/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credential request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read credential response: %w", err)
	}

	if err := checkError(resp.StatusCode, body, id); err != nil {
		return nil, err
	}

	raw := json.RawMessage(body)
	var dr dataResponse
	if err := json.Unmarshal(body, &dr); err == nil && len(dr.Data) > 0 && string(dr.Data) != "null" {
		raw = dr.Data
	}

	var cred domain.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if cred.ID == "" {
		cred.ID = id
	}
	return &cred, nil
}

func checkError(status int, body []byte, id string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, status)
	}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error.Message != "" {
			return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
		}
		if er.Detail != "" {
			return fmt.Errorf("credential API error: %s", er.Detail)
		}
	}
	return fmt.Errorf("credential API error: HTTP %d", status)
}
