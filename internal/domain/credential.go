package domain

// CredentialType — тип сохранённого секрета.
type CredentialType string

const (
	CredentialBearerToken CredentialType = "bearer-token"
	CredentialCustomToken CredentialType = "custom-token"
	CredentialAPIKey      CredentialType = "api-key"
	CredentialBasicAuth   CredentialType = "basic-auth"
	CredentialGoogleOAuth CredentialType = "google-oauth"
)

// AuthType — способ авторизации исходящего запроса, выбранный в узле.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api-key"
	AuthBasic  AuthType = "basic"
	AuthCustom AuthType = "custom"
)

// Credential — расшифрованный секрет, полученный от backend'а.
//
// Никогда не хранится в state узла: state содержит только CredentialID,
// значение запрашивается на время одного выполнения.
type Credential struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          CredentialType `json:"type"`
	BearerToken   string         `json:"bearer_token,omitempty"`
	CustomToken   string         `json:"custom_token,omitempty"`
	APIKeyName    string         `json:"api_key_name,omitempty"`
	APIKeyValue   string         `json:"api_key_value,omitempty"`
	BasicUsername string         `json:"basic_username,omitempty"`
	BasicPassword string         `json:"basic_password,omitempty"`
}
