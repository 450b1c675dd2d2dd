package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/outbank-dev/outbank-mcp/internal/audit"
	"github.com/outbank-dev/outbank-mcp/internal/config"
)

// RPCPath is the HTTP endpoint serving JSON-RPC requests.
const RPCPath = "/mcp"

// NewRouter builds the HTTP routing table. The RPC endpoint sits behind
// the full middleware chain (request ID, bearer auth, size limit, rate
// limit); /healthz stays open for liveness probes.
func NewRouter(cfg *config.Config, svc *Service, auditLog *audit.Logger, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler(svc)).Methods(http.MethodGet)

	api := r.PathPrefix(RPCPath).Subrouter()
	api.Use(requestIDMiddleware)
	api.Use(authMiddleware(cfg.HTTP.AuthToken))
	api.Use(maxBytesMiddleware(int64(cfg.HTTP.MaxRequestSize)))
	if rps, ok := cfg.RatePerSecond(); ok {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(rps), burst)))
	}
	api.HandleFunc("", rpcHandler(svc, auditLog, log)).Methods(http.MethodPost)

	return r
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func NewHTTPServer(cfg *config.Config, svc *Service, auditLog *audit.Logger, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           NewRouter(cfg, svc, auditLog, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func rpcHandler(svc *Service, auditLog *audit.Logger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusOK, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: fmt.Sprintf("parse error: %v", err)},
			})
			return
		}

		if err := auditLog.Append(audit.Entry{
			RequestID:  requestIDFrom(r.Context()),
			Tool:       req.Method,
			Parameters: req.Params,
			ClientIP:   clientIP(r),
		}); err != nil {
			log.Warn("audit log write failed", "error", err)
		}

		start := time.Now()
		resp := svc.Handle(req)
		log.Info("rpc call",
			"method", req.Method,
			"request_id", requestIDFrom(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
			"ok", resp.Error == nil)

		writeJSON(w, http.StatusOK, resp)
	}
}

func healthHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.HealthCheck()
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTTPError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
