package executor

import (
	"context"

	"github.com/shaiso/Wireflow/internal/domain"
)

// DefaultMailEndpoint — API отправки писем Resend.
const DefaultMailEndpoint = "https://api.resend.com/emails"

// MailExecutor — executor узла mail-other-tool.
//
// Письмо отправляется POST-запросом через HTTPExecutor; по умолчанию
// авторизация bearer по credentialId узла.
type MailExecutor struct {
	HTTP     *HTTPExecutor
	Endpoint string
}

// Execute отправляет письмо.
func (e *MailExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	var state domain.MailState
	if err := resolveState(req, &state); err != nil {
		return nil, err
	}
	return e.HTTP.Do(ctx, e.request(state), req.Token)
}

// request переводит письмо в HTTP-запрос.
func (e *MailExecutor) request(state domain.MailState) domain.HTTPState {
	endpoint := e.Endpoint
	if endpoint == "" {
		endpoint = DefaultMailEndpoint
	}
	authType := state.AuthType
	if authType == "" {
		authType = domain.AuthBearer
	}
	includeBody := true

	return domain.HTTPState{
		URL:        endpoint,
		HTTPMethod: "POST",
		BodyContent: map[string]any{
			"from":    state.FromEmail,
			"to":      nonNil(state.ToEmails),
			"cc":      nonNil(state.CCEmails),
			"bcc":     nonNil(state.BCCEmails),
			"subject": state.Subject,
			"html":    state.Body,
		},
		IncludeBody:  &includeBody,
		AuthType:     authType,
		CredentialID: state.CredentialID,
	}
}

// nonNil заменяет nil-слайс пустым, чтобы в JSON ушёл [] вместо null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
