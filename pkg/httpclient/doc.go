// Package httpclient provides a configurable HTTP client builder for the workflow engine.
//
// Workflow authors define named clients once — auth, headers, timeouts,
// SSRF policy — and HTTP nodes reference them by UID instead of repeating
// that configuration on every node.
//
// # Authentication
//
// AuthConfig selects one of none, basic, bearer, or api_key. Credentials are
// held in a SecureString, which redacts itself in logs, JSON, and YAML.
//
// # Example
//
//	cfg := &httpclient.Config{
//	    UID: "github-api",
//	    Auth: httpclient.AuthConfig{
//	        Type:  httpclient.AuthTypeBearer,
//	        Token: &httpclient.TokenAuthConfig{Token: httpclient.NewSecureString(token)},
//	    },
//	    Security: httpclient.SecurityConfig{
//	        BlockPrivateIPs: true,
//	        BlockLocalhost:  true,
//	    },
//	}
//
//	client, err := httpclient.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := httpclient.NewRegistry()
//	registry.Register(cfg.UID, client)
//
// # Security
//
//   - SSRF protection is delegated to pkg/security.SSRFProtection and applied
//     both to the initial request and to every redirect hop.
//   - Response size limits (Security.MaxResponseSize) are advisory — callers
//     reading the response body are expected to bound it with io.LimitReader.
//   - Credentials should be sourced from environment variables or a secret
//     store, never hardcoded into workflow definitions.
package httpclient
