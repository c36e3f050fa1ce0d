package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPExecutor — executor узла http-programming-tool.
//
// State (после подстановки шаблонов):
//   - url (string): адрес запроса, обязателен
//   - httpMethod (string): метод, по умолчанию GET
//   - headers, queryParams ([]{key, value, enabled}): таблицы заголовков и параметров
//   - bodyContent (any): тело запроса, отправляется JSON'ом; строка с JSON
//     разбирается до подстановки шаблонов
//   - includeHeaders, includeQueryParams, includeBody (bool): по умолчанию true
//   - authType, credentialId: способ авторизации и ссылка на секрет
//   - timeoutSec (number): таймаут запроса
//
// Output: разобранный JSON ответа или {status_code, text}, если ответ не JSON.
type HTTPExecutor struct {
	Client      *http.Client
	Credentials CredentialResolver
}

// Execute выполняет HTTP-запрос.
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	var state domain.HTTPState
	if err := resolveState(withParsedBody(req), &state); err != nil {
		return nil, err
	}
	return e.Do(ctx, state, req.Token)
}

// withParsedBody разбирает строковый JSON в bodyContent до подстановки.
//
// Шаблон захватывает окружающие кавычки, поэтому подстановка по тексту
// превратила бы "{{ $trigger.name }}" в голое значение и сломала JSON.
// Разобранное тело резолвится по значениям, как testInput у скрипта.
// Строка, не являющаяся JSON до подстановки, остаётся текстом.
func withParsedBody(req *Request) *Request {
	raw, ok := req.Node.Data.State["bodyContent"].(string)
	if !ok {
		return req
	}
	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return req
	}

	state := make(map[string]any, len(req.Node.Data.State))
	for k, v := range req.Node.Data.State {
		state[k] = v
	}
	state["bodyContent"] = parsed

	cp := *req
	cp.Node.Data.State = state
	return &cp
}

// Do выполняет запрос по уже разрешённому state.
func (e *HTTPExecutor) Do(ctx context.Context, state domain.HTTPState, token string) (*Result, error) {
	target, err := buildURL(state)
	if err != nil {
		return nil, err
	}

	// Секрет запрашивается до запроса: без авторизации запрос не уходит
	auth, err := authHeaders(ctx, e.Credentials, state.AuthType, state.CredentialID, token)
	if err != nil {
		return nil, err
	}

	if state.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(state.TimeoutSec*float64(time.Second)))
		defer cancel()
	}

	var bodyReader io.Reader
	if state.SendsBody() {
		body, err := encodeBody(state.BodyContent)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, state.Method(), target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}

	if state.SendsHeaders() {
		for _, h := range state.Headers {
			if h.IsEnabled() && h.Key != "" {
				httpReq.Header.Set(h.Key, h.Value)
			}
		}
	}
	for key, val := range auth {
		httpReq.Header.Set(key, val)
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(respBody), 200))
	}

	output := parseResponse(resp.StatusCode, respBody)
	if err := checkAPIErrors(output); err != nil {
		return nil, err
	}
	return &Result{Output: output}, nil
}

func (e *HTTPExecutor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// buildURL собирает адрес: origin и path из state.URL плюс включённые
// query-параметры. Параметры, уже записанные в URL, сохраняются.
func buildURL(state domain.HTTPState) (string, error) {
	raw := strings.TrimSpace(state.URL)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", ErrHTTPRequest, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: url must be absolute: %q", ErrHTTPRequest, raw)
	}

	if state.SendsQueryParams() && len(state.QueryParams) > 0 {
		q := u.Query()
		for _, p := range state.QueryParams {
			if p.IsEnabled() && p.Key != "" {
				q.Set(p.Key, p.Value)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody сериализует тело. Строка, уже являющаяся JSON, уходит как есть.
func encodeBody(body any) ([]byte, error) {
	if s, ok := body.(string); ok {
		trimmed := strings.TrimSpace(s)
		if json.Valid([]byte(trimmed)) {
			return []byte(trimmed), nil
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrHTTPRequest, err)
	}
	return b, nil
}

// parseResponse разбирает тело ответа.
//
// JSON возвращается как есть, остальное — {status_code, text}.
func parseResponse(status int, body []byte) any {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return map[string]any{
			"status_code": status,
			"text":        string(body),
		}
	}
	return parsed
}

// checkAPIErrors возвращает ошибку, если JSON-ответ содержит непустой errors.
func checkAPIErrors(output any) error {
	m, ok := output.(map[string]any)
	if !ok {
		return nil
	}
	errs, ok := m["errors"]
	if !ok || errs == nil {
		return nil
	}
	switch v := errs.(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
	case string:
		if v == "" {
			return nil
		}
	}
	b, _ := json.Marshal(errs)
	return fmt.Errorf("%w: %s", ErrAPIResponse, truncate(string(b), 200))
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
