package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Wireflow/internal/domain"
)

// stubResolver — CredentialResolver с фиксированным набором секретов.
type stubResolver struct {
	creds  map[string]*domain.Credential
	err    error
	calls  int
	tokens []string
}

func (s *stubResolver) Resolve(_ context.Context, id, token string) (*domain.Credential, error) {
	s.calls++
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.creds[id]
	if !ok {
		return nil, errors.New("credential not found")
	}
	return c, nil
}

func httpNode(state map[string]any) domain.Node {
	return domain.Node{
		ID:   "http-1",
		Type: domain.KindHTTP,
		Data: domain.NodeData{State: state},
	}
}

func TestHTTPExecutor_GET_ResolvesTemplates(t *testing.T) {
	var gotPath, gotQuery, gotHeader, gotDisabled string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotHeader = r.Header.Get("X-User")
		gotDisabled = r.Header.Get("X-Off")
		json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	req := &Request{
		Node: httpNode(map[string]any{
			"url":        server.URL + "/users/{{ $trigger.id }}",
			"httpMethod": "get",
			"queryParams": []any{
				map[string]any{"key": "q", "value": "{{ $trigger.name }}"},
			},
			"headers": []any{
				map[string]any{"key": "X-User", "value": "{{ $trigger.name }}", "enabled": true},
				map[string]any{"key": "X-Off", "value": "1", "enabled": false},
			},
		}),
		Input: map[string]any{
			"trigger": map[string]any{"id": float64(42), "name": "ann"},
		},
	}

	result, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/users/42" {
		t.Errorf("expected path /users/42, got %q", gotPath)
	}
	if gotQuery != "ann" {
		t.Errorf("expected q=ann, got %q", gotQuery)
	}
	if gotHeader != "ann" {
		t.Errorf("expected X-User=ann, got %q", gotHeader)
	}
	if gotDisabled != "" {
		t.Errorf("disabled header must not be sent, got %q", gotDisabled)
	}

	out, ok := result.Output.(map[string]any)
	if !ok {
		t.Fatalf("output should be map, got %T", result.Output)
	}
	if out["result"] != "ok" {
		t.Errorf("expected result=ok, got %v", out["result"])
	}
}

func TestHTTPExecutor_QueryParamsExcluded(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{
		"url":                server.URL + "?keep=1",
		"includeQueryParams": false,
		"queryParams":        []any{map[string]any{"key": "q", "value": "x"}},
	})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rawQuery != "keep=1" {
		t.Errorf("expected only URL query, got %q", rawQuery)
	}
}

func TestHTTPExecutor_POST_WithBody(t *testing.T) {
	var receivedBody map[string]any
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	req := &Request{
		Node: httpNode(map[string]any{
			"url":         server.URL,
			"httpMethod":  "POST",
			"bodyContent": map[string]any{"email": "{{ $form-trigger.email }}"},
		}),
		Input: map[string]any{
			"form-trigger": map[string]any{"email": "a@b.c"},
		},
	}

	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected application/json, got %q", receivedContentType)
	}
	if receivedBody["email"] != "a@b.c" {
		t.Errorf("expected resolved email, got %v", receivedBody["email"])
	}
}

func TestHTTPExecutor_POST_StringJSONBody(t *testing.T) {
	var raw []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	body := `{"name": "{{ $trigger.name }}", "tags": ["{{ $trigger.tag }}", "fixed"], "n": 1}`
	state := map[string]any{
		"url":         server.URL,
		"httpMethod":  "POST",
		"bodyContent": body,
	}
	exec := &HTTPExecutor{Client: server.Client()}
	req := &Request{
		Node:  httpNode(state),
		Input: map[string]any{"trigger": map[string]any{"name": "Ann", "tag": "vip"}},
	}

	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("body is not a JSON object: %s", raw)
	}
	if got["name"] != "Ann" {
		t.Errorf("expected name Ann, got %v", got["name"])
	}
	tags, _ := got["tags"].([]any)
	if len(tags) != 2 || tags[0] != "vip" || tags[1] != "fixed" {
		t.Errorf("unexpected tags: %v", got["tags"])
	}
	if got["n"] != float64(1) {
		t.Errorf("expected n=1, got %v", got["n"])
	}
	if state["bodyContent"] != body {
		t.Errorf("node state was mutated: %v", state["bodyContent"])
	}
}

func TestHTTPExecutor_POST_PlainTextBody(t *testing.T) {
	var raw []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	req := &Request{
		Node: httpNode(map[string]any{
			"url":         server.URL,
			"httpMethod":  "POST",
			"bodyContent": "hello {{ $trigger.name }}",
		}),
		Input: map[string]any{"trigger": map[string]any{"name": "Ann"}},
	}

	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `"hello Ann"` {
		t.Errorf("expected JSON string body, got %s", raw)
	}
}

func TestHTTPExecutor_GET_IgnoresBody(t *testing.T) {
	var bodyLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodyLen = len(b)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{
		"url":         server.URL,
		"bodyContent": map[string]any{"a": 1},
	})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bodyLen != 0 {
		t.Errorf("GET must not carry a body, got %d bytes", bodyLen)
	}
}

func TestHTTPExecutor_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{"url": server.URL})})
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("expected status in message, got %q", err.Error())
	}
	if len(err.Error()) > 300 {
		t.Errorf("body should be truncated, message length %d", len(err.Error()))
	}
}

func TestHTTPExecutor_APIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "bad field"}]}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{"url": server.URL})})
	if !errors.Is(err, ErrAPIResponse) {
		t.Fatalf("expected ErrAPIResponse, got %v", err)
	}
}

func TestHTTPExecutor_EmptyErrorsIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [], "ok": true}`))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	if _, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{"url": server.URL})}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPExecutor_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer server.Close()

	exec := &HTTPExecutor{Client: server.Client()}
	result, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{"url": server.URL})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := result.Output.(map[string]any)
	if out["status_code"] != http.StatusOK {
		t.Errorf("expected status_code 200, got %v", out["status_code"])
	}
	if out["text"] != "plain text" {
		t.Errorf("expected text, got %v", out["text"])
	}
}

func TestHTTPExecutor_BearerAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	resolver := &stubResolver{creds: map[string]*domain.Credential{
		"c1": {ID: "c1", Type: domain.CredentialBearerToken, BearerToken: "secret"},
	}}
	exec := &HTTPExecutor{Client: server.Client(), Credentials: resolver}
	req := &Request{
		Node: httpNode(map[string]any{
			"url":          server.URL,
			"authType":     "bearer",
			"credentialId": "c1",
		}),
		Token: "user-token",
	}

	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if len(resolver.tokens) != 1 || resolver.tokens[0] != "user-token" {
		t.Errorf("expected user token forwarded, got %v", resolver.tokens)
	}
}

func TestHTTPExecutor_CredentialFailureSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	exec := &HTTPExecutor{
		Client:      server.Client(),
		Credentials: &stubResolver{err: errors.New("backend down")},
	}
	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{
		"url":          server.URL,
		"authType":     "api-key",
		"credentialId": "c1",
	})})
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("expected ErrCredential, got %v", err)
	}
	if called {
		t.Error("request must not be sent without credentials")
	}
}

func TestHTTPExecutor_InvalidState(t *testing.T) {
	exec := &HTTPExecutor{}

	_, err := exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{})})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	_, err = exec.Execute(context.Background(), &Request{Node: httpNode(map[string]any{"url": "/relative"})})
	if !errors.Is(err, ErrHTTPRequest) {
		t.Fatalf("expected ErrHTTPRequest, got %v", err)
	}
}

func TestMailExecutor_SendsResendRequest(t *testing.T) {
	var body map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id": "email-1"}`))
	}))
	defer server.Close()

	resolver := &stubResolver{creds: map[string]*domain.Credential{
		"resend": {ID: "resend", BearerToken: "re_123"},
	}}
	exec := &MailExecutor{
		HTTP:     &HTTPExecutor{Client: server.Client(), Credentials: resolver},
		Endpoint: server.URL,
	}
	req := &Request{
		Node: domain.Node{ID: "m", Type: domain.KindMail, Data: domain.NodeData{State: map[string]any{
			"fromEmail":    "bot@example.com",
			"toEmails":     []any{"{{ $trigger.email }}"},
			"subject":      "Hi {{ $trigger.name }}",
			"body":         "<p>hello</p>",
			"credentialId": "resend",
		}}},
		Input: map[string]any{"trigger": map[string]any{"email": "ann@example.com", "name": "Ann"}},
	}

	result, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer re_123" {
		t.Errorf("expected bearer auth by default, got %q", gotAuth)
	}
	if body["subject"] != "Hi Ann" {
		t.Errorf("expected resolved subject, got %v", body["subject"])
	}
	to, _ := body["to"].([]any)
	if len(to) != 1 || to[0] != "ann@example.com" {
		t.Errorf("expected resolved recipient, got %v", body["to"])
	}
	if body["html"] != "<p>hello</p>" {
		t.Errorf("expected html body, got %v", body["html"])
	}
	if cc, ok := body["cc"].([]any); !ok || len(cc) != 0 {
		t.Errorf("expected empty cc list, got %v", body["cc"])
	}
	if result.Output.(map[string]any)["id"] != "email-1" {
		t.Errorf("unexpected output %v", result.Output)
	}
}

func TestMailExecutor_MissingFields(t *testing.T) {
	exec := &MailExecutor{HTTP: &HTTPExecutor{}}
	_, err := exec.Execute(context.Background(), &Request{Node: domain.Node{
		ID: "m", Type: domain.KindMail,
		Data: domain.NodeData{State: map[string]any{"fromEmail": "a@b.c"}},
	}})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
