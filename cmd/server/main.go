// Command server starts a workflow engine HTTP server.
//
// Usage:
//
//	server [flags]
//
// Flags:
//
//	-addr string
//	    Server address (default ":8080")
//	-read-timeout duration
//	    HTTP read timeout (default 30s)
//	-write-timeout duration
//	    HTTP write timeout (default 30s)
//	-max-execution-time duration
//	    Maximum workflow execution time (default 5m)
//	-max-node-executions int
//	    Maximum node executions per workflow (0 = unlimited)
//	-max-http-calls int
//	    Maximum HTTP calls per execution
//	-max-loop-iterations int
//	    Default max iterations for loop nodes that don't set their own
//	-config string
//	    Path to a config file (JSON/YAML/TOML), layered under flags and
//	    WORKFLOWENGINE_* environment variables
//	-credit-store string
//	    Credit ledger backend: memory or redis (default "memory")
//	-redis-addr string
//	    Redis address, used when -credit-store=redis (default "localhost:6379")
//	-redis-password string
//	    Redis password, used when -credit-store=redis
//	-redis-db int
//	    Redis logical DB index, used when -credit-store=redis
//
// The server exposes:
//
//	POST /api/v1/workflow/build     - Compile nodes/edges into a BuiltWorkflow
//	POST /api/v1/workflow/execute   - Build and execute a workflow in one call
//	POST /api/v1/workflow/resume    - Resume a paused execution
//	POST /api/v1/workflow/cancel/{executionId} - Cancel a running execution
//	GET  /health                    - Readiness check (alias of /health/ready)
//	GET  /health/live                - Liveness probe (always healthy once running)
//	GET  /health/ready                - Readiness probe (exercises dependency checks)
//	GET  /metrics                   - Prometheus metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/flowcore/workflowengine/pkg/config"
	"github.com/flowcore/workflowengine/pkg/credit"
	"github.com/flowcore/workflowengine/pkg/dag"
	"github.com/flowcore/workflowengine/pkg/engine"
	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/executor"
	"github.com/flowcore/workflowengine/pkg/health"
	"github.com/flowcore/workflowengine/pkg/httpclient"
	"github.com/flowcore/workflowengine/pkg/logging"
	"github.com/flowcore/workflowengine/pkg/snapshotstore"
	"github.com/flowcore/workflowengine/pkg/types"
)

func main() {
	addr := flag.String("addr", ":8080", "Server address")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	maxExecutionTime := flag.Duration("max-execution-time", 5*time.Minute, "Maximum workflow execution time")
	maxNodeExecutions := flag.Int("max-node-executions", 0, "Maximum node executions per workflow (0 = unlimited)")
	maxHTTPCalls := flag.Int("max-http-calls", 100, "Maximum HTTP calls per execution")
	maxLoopIterations := flag.Int("max-loop-iterations", 10000, "Default max iterations for loop nodes")
	snapshotPath := flag.String("snapshot-db", "", "Path to a SQLite file for pause-snapshot persistence (empty = in-memory)")
	configPath := flag.String("config", "", "Path to a config file (JSON/YAML/TOML); overrides Default(), overridden by flags and WORKFLOWENGINE_* env vars")
	creditStore := flag.String("credit-store", "memory", "Credit ledger backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis address, used when -credit-store=redis")
	redisPassword := flag.String("redis-password", "", "Redis password, used when -credit-store=redis")
	redisDB := flag.Int("redis-db", 0, "Redis logical DB index, used when -credit-store=redis")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString("failed to load config file: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.MaxExecutionTime = *maxExecutionTime
	cfg.MaxNodeExecutions = *maxNodeExecutions
	cfg.MaxHTTPCallsPerExec = *maxHTTPCalls
	cfg.MaxIterations = *maxLoopIterations
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(logging.DefaultConfig())

	var snapshots snapshotstore.Store
	if *snapshotPath != "" {
		store, err := snapshotstore.NewSQLiteStore(*snapshotPath)
		if err != nil {
			log.WithError(err).Fatal("failed to open snapshot store")
		}
		snapshots = store
	} else {
		snapshots = snapshotstore.NewMemoryStore()
	}

	httpSecurity := httpclient.SecurityFromNetworkAccess(cfg.AllowPrivateIPs, cfg.AllowLocalhost, cfg.AllowLinkLocal, cfg.AllowCloudMetadata, cfg.AllowedDomains)
	httpSecurity.MaxRedirects = cfg.MaxHTTPRedirects
	httpSecurity.MaxResponseSize = cfg.MaxResponseSize

	nodeExecutor, err := executor.NewReferenceRegistryWithHTTP(httpclient.NewRegistry(), httpSecurity)
	if err != nil {
		log.WithError(err).Fatal("failed to build node executor registry")
	}

	var creditService credit.Service
	switch *creditStore {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr, Password: *redisPassword, DB: *redisDB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis credit store")
		}
		creditService = credit.NewRedisService(rdb)
	case "memory":
		creditService = credit.NewMemoryService(nil)
	default:
		log.Fatalf("unknown -credit-store %q: want memory or redis", *creditStore)
	}

	eng := engine.New(
		&dag.Builder{},
		nodeExecutor,
		creditService,
		events.NewEmitter(&events.MemorySink{}),
		snapshots,
	)

	h := &handlers{engine: eng, config: cfg, log: log}

	checker := health.NewChecker("workflowengine", "dev")
	checker.RegisterCheck("snapshotstore", func(ctx context.Context) error {
		_, err := snapshots.List(ctx, "healthcheck")
		if errors.Is(err, snapshotstore.ErrNotFound) {
			return nil
		}
		return err
	}, 2*time.Second, true)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflow/build", h.build)
	mux.HandleFunc("POST /api/v1/workflow/execute", h.execute)
	mux.HandleFunc("POST /api/v1/workflow/resume", h.resume)
	mux.HandleFunc("POST /api/v1/workflow/cancel/{executionId}", h.cancel)
	mux.HandleFunc("GET /health", checker.ReadinessHandler())
	mux.HandleFunc("GET /health/live", checker.LivenessHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadinessHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("workflow engine server listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.WithError(err).Fatal("server error")
	case sig := <-sigChan:
		log.Infof("received signal %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Fatal("shutdown error")
		}
		log.Info("server stopped")
	}
}

type handlers struct {
	engine *engine.Engine
	config *config.Config
	log    *logging.Logger
}

// buildRequest is the wire shape for /workflow/build and /workflow/execute:
// a raw node/edge list the caller wants compiled (and, for execute, run).
type buildRequest struct {
	Nodes              []types.Node `json:"nodes"`
	Edges              []types.Edge `json:"edges"`
	MaxConcurrentNodes int          `json:"maxConcurrentNodes"`
}

func (h *handlers) build(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	workflow, err := h.engine.Build(req.Nodes, req.Edges, req.MaxConcurrentNodes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

type executeRequest struct {
	buildRequest
	ExecutionID     string         `json:"executionId"`
	WorkflowID      string         `json:"workflowId"`
	WorkspaceID     string         `json:"workspaceId"`
	UserID          string         `json:"userId"`
	Inputs          map[string]any `json:"inputs"`
	SkipCreditCheck bool           `json:"skipCreditCheck"`
}

func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	workflow, err := h.engine.Build(req.Nodes, req.Edges, req.MaxConcurrentNodes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.engine.Execute(r.Context(), engine.ExecuteParams{
		Workflow:        workflow,
		ExecutionID:     req.ExecutionID,
		WorkflowID:      req.WorkflowID,
		WorkspaceID:     req.WorkspaceID,
		UserID:          req.UserID,
		Inputs:          req.Inputs,
		SkipCreditCheck: req.SkipCreditCheck || h.config.SkipCreditCheck,
	})
	if err != nil {
		h.log.WithError(err).WithExecutionID(req.ExecutionID).Error("execution failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type resumeRequest struct {
	ExecutionID  string         `json:"executionId"`
	ResumeInputs map[string]any `json:"resumeInputs"`
}

func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := h.engine.Resume(r.Context(), engine.ResumeParams{
		ExecutionID:  req.ExecutionID,
		ResumeInputs: req.ResumeInputs,
	})
	if err != nil {
		h.log.WithError(err).WithExecutionID(req.ExecutionID).Error("resume failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	executionID := r.PathValue("executionId")
	cancelled := h.engine.Cancel(executionID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
