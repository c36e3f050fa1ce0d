package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

// --- Request/response types (CLI не импортирует internal/api) ---

// CanvasState — открытый flow и состояние журнала.
type CanvasState struct {
	Flow      domain.Flow `json:"flow"`
	CanUndo   bool        `json:"canUndo"`
	CanRedo   bool        `json:"canRedo"`
	NeedsSave bool        `json:"needsSave"`
}

// HistoryResult — ответ на undo/redo.
type HistoryResult struct {
	CanvasState
	Applied bool `json:"applied"`
}

// RunResult — ответ на запуск flow.
type RunResult struct {
	Executed []string `json:"executed"`
	Error    string   `json:"error,omitempty"`
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type runRequest struct {
	Payload any `json:"payload,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Wireflow API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. Непустой token передаётся как Bearer.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Projects ---

// ListProjects возвращает проекты с их flow.
func (c *Client) ListProjects() ([]domain.Project, error) {
	var projects []domain.Project
	err := c.list("/api/v1/projects", nil, &projects)
	return projects, err
}

// CreateProject создаёт проект.
func (c *Client) CreateProject(name, description string) (*domain.Project, error) {
	var p domain.Project
	err := c.post("/api/v1/projects", projectRequest{Name: name, Description: description}, &p)
	return &p, err
}

// OpenFlow делает flow текущим в редакторе.
func (c *Client) OpenFlow(projectID, flowID string) (*CanvasState, error) {
	var st CanvasState
	err := c.post("/api/v1/projects/"+url.PathEscape(projectID)+"/flows/"+url.PathEscape(flowID)+"/open", nil, &st)
	return &st, err
}

// --- Canvas ---

// Canvas возвращает открытый flow.
func (c *Client) Canvas() (*CanvasState, error) {
	var st CanvasState
	err := c.get("/api/v1/canvas", &st)
	return &st, err
}

// Undo отменяет последнее действие.
func (c *Client) Undo() (*HistoryResult, error) {
	var res HistoryResult
	err := c.post("/api/v1/canvas/undo", nil, &res)
	return &res, err
}

// Redo повторяет отменённое действие.
func (c *Client) Redo() (*HistoryResult, error) {
	var res HistoryResult
	err := c.post("/api/v1/canvas/redo", nil, &res)
	return &res, err
}

// Run выполняет открытый flow.
func (c *Client) Run(payload any) (*RunResult, error) {
	var res RunResult
	err := c.post("/api/v1/canvas/run", runRequest{Payload: payload}, &res)
	return &res, err
}

// Save сохраняет открытый flow.
func (c *Client) Save() (*domain.Flow, error) {
	var f domain.Flow
	err := c.post("/api/v1/canvas/save", nil, &f)
	return &f, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
