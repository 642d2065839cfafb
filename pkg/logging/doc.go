// Package logging provides structured logging capabilities for the workflow engine.
//
// # Overview
//
// The logging package wraps log/slog with helpers that attach workflow
// execution fields (workflow, execution and node ids) to log entries.
//
// # Features
//
//   - Structured logging: JSON (default) and text (Config.Pretty) output
//   - Log levels: debug, info, warn, error, chosen by Config.Level
//   - Execution fields: WithWorkflowID, WithExecutionID, WithNodeID, WithNodeType
//   - Context propagation: store and fetch the Logger in a context.Context
//   - Thread-safe: Safe for concurrent use
//   - Flexible output: Write to any io.Writer
//
// # Log Levels
//
// The package supports standard log levels:
//
//   - DEBUG: Detailed diagnostic information
//   - INFO: General informational messages
//   - WARN: Warning messages for potential issues
//   - ERROR: Error messages for failures
//
// # Basic Usage
//
//	import "github.com/flowcore/workflowengine/pkg/logging"
//
//	// Create logger
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Output: os.Stdout,
//	})
//
//	// Log messages; fields are attached with the With* helpers
//	logger.WithWorkflowID("wf-123").
//	    WithField("node_count", 42).
//	    Info("Workflow started")
//
//	logger.WithNodeID("node-5").WithError(err).Error("Execution failed")
//
// # Context Integration
//
// WithContext stores the logger in a context; FromContext fetches it back,
// or returns a logger built from DefaultConfig when the context holds none:
//
//	ctx = logger.WithExecutionID("exec-456").WithContext(ctx)
//	logging.FromContext(ctx).WithNodeType("http").Info("Node executing")
//
// # Structured Fields
//
// WithFields attaches several fields at once:
//
//	logger.WithFields(map[string]interface{}{
//	    "method":      "GET",
//	    "url":         "https://api.example.com",
//	    "status":      200,
//	    "duration_ms": 145,
//	}).Info("HTTP request completed")
//
// # Output Formats
//
// JSON (default), one object per line:
//
//	{"time":"2024-01-15T10:30:00Z","level":"INFO","msg":"Workflow started","workflow_id":"wf-123","execution_id":"exec-456"}
//
// Text (Config.Pretty = true):
//
//	time=2024-01-15T10:30:00.000Z level=INFO msg="Workflow started" workflow_id=wf-123 execution_id=exec-456
//
// # Configuration
//
// Logger configuration options:
//
//	config := logging.Config{
//	    Level:         "debug",   // Minimum level: debug, info, warn, error (default info)
//	    Output:        os.Stdout, // Where to write logs (nil means os.Stdout)
//	    Pretty:        false,     // Text output instead of JSON
//	    IncludeCaller: true,      // Include file:line
//	}
//
// # Common Logging Patterns
//
// Node execution:
//
//	logger.WithNodeID(node.ID).WithNodeType(node.Type).Debug("Node executing")
//
// Error logging:
//
//	logger.WithNodeID(node.ID).WithError(err).
//	    WithField("retry_count", retries).
//	    Error("Node execution failed")
//
// Formatted messages:
//
//	logger.Infof("Workflow %s completed in %dms", workflow.ID, elapsed.Milliseconds())
//
// # Best Practices
//
//   - Use structured fields instead of string formatting
//   - Include execution context (workflow_id, node_id, etc.)
//   - Log at appropriate levels (avoid debug in production)
//   - Add timing information for performance analysis
//   - Include error context (not just error message)
//   - Use consistent field names across the codebase
//
// # Thread Safety
//
// All logger operations are thread-safe and can be used concurrently
// from multiple goroutines without additional synchronization.
//
// # Testing
//
// For testing, use a logger with a buffer:
//
//	buf := &bytes.Buffer{}
//	logger := logging.New(logging.Config{
//	    Output: buf,
//	})
//
//	// Execute code
//	// Verify log output
//	assert.Contains(t, buf.String(), "expected message")
package logging
