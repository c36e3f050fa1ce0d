package executor

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/shaiso/Wireflow/internal/domain"
)

// DefaultAPIKeyHeader — заголовок api-key, если в credential не задано имя.
const DefaultAPIKeyHeader = "x-api-key"

// CredentialResolver — источник расшифрованных секретов.
//
// Значение запрашивается на каждое выполнение и не кешируется.
type CredentialResolver interface {
	Resolve(ctx context.Context, id, token string) (*domain.Credential, error)
}

// AuthHeader возвращает заголовок авторизации для выбранного способа.
//
// none или пустой authType — пустая map. Пустое значение секрета
// считается ошибкой: запрос без авторизации молча не отправляется.
func AuthHeader(authType domain.AuthType, cred *domain.Credential) (map[string]string, error) {
	if authType == "" || authType == domain.AuthNone {
		return map[string]string{}, nil
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: credential is required for %s auth", ErrCredential, authType)
	}

	switch authType {
	case domain.AuthBearer:
		if cred.BearerToken == "" {
			return nil, fmt.Errorf("%w: bearer_token is empty", ErrCredential)
		}
		return map[string]string{"Authorization": "Bearer " + cred.BearerToken}, nil

	case domain.AuthCustom:
		if cred.CustomToken == "" {
			return nil, fmt.Errorf("%w: custom_token is empty", ErrCredential)
		}
		return map[string]string{"Authorization": cred.CustomToken}, nil

	case domain.AuthAPIKey:
		if cred.APIKeyValue == "" {
			return nil, fmt.Errorf("%w: api_key_value is empty", ErrCredential)
		}
		name := cred.APIKeyName
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		return map[string]string{name: cred.APIKeyValue}, nil

	case domain.AuthBasic:
		if cred.BasicUsername == "" {
			return nil, fmt.Errorf("%w: basic_username is empty", ErrCredential)
		}
		raw := cred.BasicUsername + ":" + cred.BasicPassword
		return map[string]string{
			"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)),
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown auth type %q", ErrCredential, authType)
	}
}

// authHeaders запрашивает credential и строит заголовок.
//
// Авторизация применяется, только если выбран способ и указан credentialId.
func authHeaders(ctx context.Context, resolver CredentialResolver, authType domain.AuthType, credentialID, token string) (map[string]string, error) {
	if authType == "" || authType == domain.AuthNone || credentialID == "" {
		return map[string]string{}, nil
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: no credential resolver configured", ErrCredential)
	}

	cred, err := resolver.Resolve(ctx, credentialID, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredential, err)
	}
	return AuthHeader(authType, cred)
}
