package httpclient

import (
	"fmt"
	"time"
)

// AuthType represents the type of authentication a Config applies to outbound requests.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
)

// KeyValue is an ordered header or query parameter entry. A slice (rather than
// a map) preserves the caller's ordering and allows duplicate keys.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// BasicAuthConfig holds HTTP Basic Authentication credentials.
type BasicAuthConfig struct {
	Username string       `json:"username" yaml:"username"`
	Password SecureString `json:"password" yaml:"password"`
}

// TokenAuthConfig holds a bearer token.
type TokenAuthConfig struct {
	Token SecureString `json:"token" yaml:"token"`
}

// APIKeyAuthConfig holds an API key credential placed in a header or query parameter.
type APIKeyAuthConfig struct {
	Key      string       `json:"key" yaml:"key"`
	Value    SecureString `json:"value" yaml:"value"`
	Location string       `json:"location" yaml:"location"` // "header" or "query"
}

// AuthConfig selects and configures one authentication mechanism.
type AuthConfig struct {
	Type      AuthType          `json:"type,omitempty" yaml:"type,omitempty"`
	BasicAuth *BasicAuthConfig  `json:"basic_auth,omitempty" yaml:"basic_auth,omitempty"`
	Token     *TokenAuthConfig  `json:"token,omitempty" yaml:"token,omitempty"`
	APIKey    *APIKeyAuthConfig `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// NetworkConfig holds connection-pooling and timeout settings.
type NetworkConfig struct {
	Timeout             time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxIdleConns        int           `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host,omitempty" yaml:"max_idle_conns_per_host,omitempty"`
	MaxConnsPerHost     int           `json:"max_conns_per_host,omitempty" yaml:"max_conns_per_host,omitempty"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout,omitempty" yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout,omitempty" yaml:"tls_handshake_timeout,omitempty"`
	DisableKeepAlives   bool          `json:"disable_keep_alives,omitempty" yaml:"disable_keep_alives,omitempty"`
}

// SecurityConfig holds SSRF protection and response-size limits. It mirrors
// security.SSRFConfig's shape so a Config can be built directly from the
// engine-wide pkg/config.Config network-access settings.
type SecurityConfig struct {
	MaxRedirects       int      `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty"`
	MaxResponseSize    int64    `json:"max_response_size,omitempty" yaml:"max_response_size,omitempty"`
	FollowRedirects    bool     `json:"follow_redirects,omitempty" yaml:"follow_redirects,omitempty"`
	AllowedDomains     []string `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	BlockPrivateIPs    bool     `json:"block_private_ips,omitempty" yaml:"block_private_ips,omitempty"`
	BlockLocalhost     bool     `json:"block_localhost,omitempty" yaml:"block_localhost,omitempty"`
	BlockLinkLocal     bool     `json:"block_link_local,omitempty" yaml:"block_link_local,omitempty"`
	BlockCloudMetadata bool     `json:"block_cloud_metadata,omitempty" yaml:"block_cloud_metadata,omitempty"`
}

// Config is the configuration for a single named HTTP client.
type Config struct {
	UID         string         `json:"uid" yaml:"uid"`
	Auth        AuthConfig     `json:"auth,omitempty" yaml:"auth,omitempty"`
	Headers     []KeyValue     `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryParams []KeyValue     `json:"query_params,omitempty" yaml:"query_params,omitempty"`
	Network     NetworkConfig  `json:"network,omitempty" yaml:"network,omitempty"`
	Security    SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.UID == "" {
		return fmt.Errorf("client UID is required")
	}

	switch c.Auth.Type {
	case "", AuthTypeNone:
	case AuthTypeBasic:
		if c.Auth.BasicAuth == nil {
			return fmt.Errorf("basic_auth configuration is required for auth type basic")
		}
		if c.Auth.BasicAuth.Username == "" {
			return fmt.Errorf("username is required for basic auth")
		}
		if c.Auth.BasicAuth.Password.IsEmpty() {
			return fmt.Errorf("password is required for basic auth")
		}
	case AuthTypeBearer:
		if c.Auth.Token == nil {
			return fmt.Errorf("token configuration is required for auth type bearer")
		}
		if c.Auth.Token.Token.IsEmpty() {
			return fmt.Errorf("token is required for bearer auth")
		}
	case AuthTypeAPIKey:
		if c.Auth.APIKey == nil {
			return fmt.Errorf("api_key configuration is required for auth type api_key")
		}
		if c.Auth.APIKey.Key == "" {
			return fmt.Errorf("api_key.key is required")
		}
		if c.Auth.APIKey.Location != "header" && c.Auth.APIKey.Location != "query" {
			return fmt.Errorf("api_key.location must be one of: header, query")
		}
	default:
		return fmt.Errorf("invalid auth_type: %s (must be one of: none, basic, bearer, api_key)", c.Auth.Type)
	}

	if c.Network.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Security.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects cannot be negative")
	}
	if c.Security.MaxResponseSize < 0 {
		return fmt.Errorf("max_response_size cannot be negative")
	}

	return nil
}

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Auth.Type == "" {
		c.Auth.Type = AuthTypeNone
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = 30 * time.Second
	}
	if c.Network.MaxIdleConns == 0 {
		c.Network.MaxIdleConns = 100
	}
	if c.Network.MaxIdleConnsPerHost == 0 {
		c.Network.MaxIdleConnsPerHost = 10
	}
	if c.Network.MaxConnsPerHost == 0 {
		c.Network.MaxConnsPerHost = 100
	}
	if c.Network.IdleConnTimeout == 0 {
		c.Network.IdleConnTimeout = 90 * time.Second
	}
	if c.Network.TLSHandshakeTimeout == 0 {
		c.Network.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.Security.MaxRedirects == 0 {
		c.Security.MaxRedirects = 10
	}
	if c.Security.MaxResponseSize == 0 {
		c.Security.MaxResponseSize = 10 * 1024 * 1024
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Headers != nil {
		clone.Headers = make([]KeyValue, len(c.Headers))
		copy(clone.Headers, c.Headers)
	}
	if c.QueryParams != nil {
		clone.QueryParams = make([]KeyValue, len(c.QueryParams))
		copy(clone.QueryParams, c.QueryParams)
	}
	if c.Security.AllowedDomains != nil {
		clone.Security.AllowedDomains = make([]string, len(c.Security.AllowedDomains))
		copy(clone.Security.AllowedDomains, c.Security.AllowedDomains)
	}
	if c.Auth.BasicAuth != nil {
		basicAuth := *c.Auth.BasicAuth
		clone.Auth.BasicAuth = &basicAuth
	}
	if c.Auth.Token != nil {
		token := *c.Auth.Token
		clone.Auth.Token = &token
	}
	if c.Auth.APIKey != nil {
		apiKey := *c.Auth.APIKey
		clone.Auth.APIKey = &apiKey
	}

	return &clone
}

// SecurityFromNetworkAccess builds a Config's SecurityConfig from the engine-wide
// network-access settings, so an HTTP node inherits the same zero-trust
// posture as the rest of the engine unless it names its own client.
func SecurityFromNetworkAccess(allowPrivateIPs, allowLocalhost, allowLinkLocal, allowCloudMetadata bool, allowedDomains []string) SecurityConfig {
	return SecurityConfig{
		FollowRedirects:    true,
		BlockPrivateIPs:    !allowPrivateIPs,
		BlockLocalhost:     !allowLocalhost,
		BlockLinkLocal:     !allowLinkLocal,
		BlockCloudMetadata: !allowCloudMetadata,
		AllowedDomains:     allowedDomains,
	}
}
