package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/outbank-dev/outbank-mcp/internal/audit"
)

// maxLineBytes bounds a single stdio request line (10 MiB).
const maxLineBytes = 10 << 20

// ServeStdio answers newline-delimited JSON-RPC requests on in/out until
// EOF or context cancellation. Startup output goes to stderr elsewhere so
// out stays pure JSON-RPC.
func ServeStdio(ctx context.Context, svc *Service, in io.Reader, out io.Writer, auditLog *audit.Logger, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: fmt.Sprintf("parse error: %v", err)},
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
			continue
		}

		if err := auditLog.Append(audit.Entry{
			RequestID:  uuid.NewString(),
			Tool:       req.Method,
			Parameters: req.Params,
		}); err != nil {
			log.Warn("audit log write failed", "error", err)
		}

		resp := svc.Handle(req)
		if req.ID == nil {
			// Notification; no response goes back.
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}
