// Package config provides configuration management for the workflow execution engine.
//
// # Overview
//
// The config package centralizes all configuration for the workflow engine,
// providing a pluggable, replaceable configuration system with validation,
// defaults, and environment variable support.
//
// # Features
//
//   - Centralized configuration: Single source of truth
//   - Type-safe: Strongly typed configuration options
//   - Validation: Automatic validation of configuration values
//   - Defaults: Sensible default values
//   - Environment variables: Override from environment
//   - File-based: Load from JSON/YAML files
//   - Thread-safe: Concurrent access support
//
// # Configuration Structure
//
// The configuration is organized into logical sections:
//
//   - Execution limits: Timeouts and iteration limits
//   - HTTP settings: HTTP request configuration
//   - Security: Network access control and restrictions
//   - Cache settings: Cache TTL and size limits
//   - Resource limits: Memory and size constraints
//   - Retry settings: Retry and backoff configuration
//
// # Basic Usage
//
//import "github.com/flowcore/workflowengine/pkg/config"
//
//// Create default configuration
//cfg := config.Default()
//
//// Or one of the environment presets
//cfg := config.Development()
//cfg := config.Production()
//cfg := config.Testing()
//
// # Loading From a File
//
// Load reads a JSON/YAML/TOML file (via spf13/viper) layered on top of
// Default(), then applies WORKFLOWENGINE_* environment variable overrides:
//
//cfg, err := config.Load("config.yaml")
//if err != nil {
//    log.Fatal(err)
//}
//
// Passing an empty path skips the file and applies only Default() plus any
// WORKFLOWENGINE_* environment variables present.
//
// # Default Configuration
//
// The default configuration provides secure, production-ready defaults:
//
//MaxExecutionTime: 5 minutes
//MaxNodeExecutionTime: 30 seconds
//MaxIterations: 10000
//HTTPTimeout: 30 seconds
//MaxHTTPRedirects: 10
//MaxResponseSize: 10MB
//AllowHTTP: false (HTTPS only)
//AllowPrivateIPs: false
//AllowLocalhost: false
//AllowLinkLocal: false
//AllowCloudMetadata: false
//DefaultCacheTTL: 1 hour
//MaxCacheSize: 1000
//MaxNodes: 1000
//MaxEdges: 5000
//DefaultMaxAttempts: 3
//DefaultBackoff: 1 second
//
// # Thread Safety
//
// Configuration objects are safe for concurrent read access.
package config
