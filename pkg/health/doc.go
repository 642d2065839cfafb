// Package health provides liveness and readiness probes for the workflow
// engine's HTTP server.
//
// Checker aggregates named checks registered with RegisterCheck; Readiness
// runs them all and combines results (a critical check's failure makes the
// whole service unhealthy, a non-critical one only degrades it). Liveness
// reports the process is running without exercising any check.
package health
