package httpclient

import (
	"github.com/flowcore/workflowengine/pkg/security"
)

// validateURL validates a URL against a Config's SecurityConfig, delegating
// the actual scheme/IP/domain classification to security.SSRFProtection so
// the engine has one SSRF policy implementation rather than two.
func validateURL(urlStr string, config *Config) error {
	protection := security.NewSSRFProtectionWithConfig(security.SSRFConfig{
		AllowedSchemes:     []string{"http", "https"},
		BlockPrivateIPs:    config.Security.BlockPrivateIPs,
		BlockLocalhost:     config.Security.BlockLocalhost,
		BlockLinkLocal:     config.Security.BlockLinkLocal,
		BlockCloudMetadata: config.Security.BlockCloudMetadata,
		AllowedDomains:     config.Security.AllowedDomains,
	})
	return protection.ValidateURL(urlStr)
}
