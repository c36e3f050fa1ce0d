package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Wireflow/internal/domain"
)

func TestAuthHeader(t *testing.T) {
	tests := []struct {
		name     string
		authType domain.AuthType
		cred     *domain.Credential
		want     map[string]string
	}{
		{"none", domain.AuthNone, nil, map[string]string{}},
		{"empty", "", nil, map[string]string{}},
		{
			name:     "bearer",
			authType: domain.AuthBearer,
			cred:     &domain.Credential{BearerToken: "tok"},
			want:     map[string]string{"Authorization": "Bearer tok"},
		},
		{
			name:     "custom",
			authType: domain.AuthCustom,
			cred:     &domain.Credential{CustomToken: "Token abc"},
			want:     map[string]string{"Authorization": "Token abc"},
		},
		{
			name:     "api key default header",
			authType: domain.AuthAPIKey,
			cred:     &domain.Credential{APIKeyValue: "k"},
			want:     map[string]string{"x-api-key": "k"},
		},
		{
			name:     "api key named header",
			authType: domain.AuthAPIKey,
			cred:     &domain.Credential{APIKeyName: "X-Token", APIKeyValue: "k"},
			want:     map[string]string{"X-Token": "k"},
		},
		{
			name:     "basic",
			authType: domain.AuthBasic,
			cred:     &domain.Credential{BasicUsername: "user", BasicPassword: "pass"},
			want:     map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AuthHeader(tt.authType, tt.cred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %s: expected %q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestAuthHeader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		authType domain.AuthType
		cred     *domain.Credential
	}{
		{"missing credential", domain.AuthBearer, nil},
		{"empty bearer", domain.AuthBearer, &domain.Credential{}},
		{"empty custom", domain.AuthCustom, &domain.Credential{}},
		{"empty api key", domain.AuthAPIKey, &domain.Credential{APIKeyName: "X"}},
		{"empty basic user", domain.AuthBasic, &domain.Credential{BasicPassword: "p"}},
		{"unknown type", domain.AuthType("oauth"), &domain.Credential{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AuthHeader(tt.authType, tt.cred)
			if !errors.Is(err, ErrCredential) {
				t.Errorf("expected ErrCredential, got %v", err)
			}
		})
	}
}

func TestAuthHeaders_SkipsWithoutCredentialID(t *testing.T) {
	resolver := &stubResolver{}

	got, err := authHeaders(context.Background(), resolver, domain.AuthBearer, "", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no headers, got %v", got)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver must not be called, got %d calls", resolver.calls)
	}
}
