package httpclient

import (
	"context"
	"fmt"
	"net/http"
)

// New creates a new HTTP client from the given configuration.
//
// The context parameter is currently unused but included for future extensibility
// (e.g., for context-based timeout configuration or tracing).
func New(ctx context.Context, config *Config) (*http.Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        config.Network.MaxIdleConns,
		MaxIdleConnsPerHost: config.Network.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.Network.MaxConnsPerHost,
		IdleConnTimeout:     config.Network.IdleConnTimeout,
		TLSHandshakeTimeout: config.Network.TLSHandshakeTimeout,
		DisableKeepAlives:   config.Network.DisableKeepAlives,
	}

	var middlewares []Middleware

	if config.Security.BlockPrivateIPs || config.Security.BlockLocalhost || config.Security.BlockLinkLocal ||
		config.Security.BlockCloudMetadata || len(config.Security.AllowedDomains) > 0 {
		middlewares = append(middlewares, ssrfProtectionMiddleware(config))
	}

	if len(config.QueryParams) > 0 {
		middlewares = append(middlewares, queryParamsMiddleware(config.QueryParams))
	}

	if len(config.Headers) > 0 {
		middlewares = append(middlewares, headersMiddleware(config.Headers))
	}

	if config.Auth.Type != AuthTypeNone {
		middlewares = append(middlewares, authMiddleware(config))
	}

	var finalTransport http.RoundTripper = transport
	if len(middlewares) > 0 {
		finalTransport = Chain(middlewares...)(transport)
	}

	client := &http.Client{
		Timeout:   config.Network.Timeout,
		Transport: finalTransport,
	}

	if !config.Security.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.Security.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", config.Security.MaxRedirects)
			}
			if err := validateURL(req.URL.String(), config); err != nil {
				return fmt.Errorf("redirect URL validation failed: %w", err)
			}
			return nil
		}
	}

	return client, nil
}
