// Package security provides SSRF protection for outbound HTTP requests made
// by workflow nodes.
//
// # Overview
//
// SSRFProtection validates a URL (and, for redirects, each hop) against a
// zero-trust-by-default policy: private IP ranges, loopback/localhost, and
// cloud metadata endpoints are blocked unless explicitly allowed, and an
// optional domain allowlist can scope requests further.
//
// # Usage
//
//	protection := security.NewSSRFProtectionWithConfig(security.SSRFConfig{
//	    BlockPrivateIPs:    true,
//	    BlockLocalhost:     true,
//	    BlockLinkLocal:     true,
//	    BlockCloudMetadata: true,
//	    AllowedDomains:     []string{"api.example.com"},
//	})
//
//	if err := protection.ValidateURL(url); err != nil {
//	    return fmt.Errorf("URL not allowed: %w", err)
//	}
//
// DefaultSSRFConfig returns the fully-locked-down posture (all four
// categories blocked); callers relax individual fields for trusted
// environments rather than disabling protection wholesale.
//
// # Integration
//
// pkg/httpclient builds its SSRF validation directly on
// security.SSRFProtection, so any HTTP node's outbound requests (and
// redirects) are checked against the same policy documented above without
// the executor package depending on security details beyond that one call.
//
// # Thread Safety
//
// SSRFProtection holds no mutable state after construction and is safe for
// concurrent use from multiple goroutines.
package security
