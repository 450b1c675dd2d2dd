package server

import (
	"encoding/json"
	"fmt"

	"github.com/outbank-dev/outbank-mcp/internal/errs"
)

// JSON-RPC 2.0 message types.

// Request is an incoming JSON-RPC 2.0 request. Params are by-name.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
// Result must NOT have omitempty — clients block on missing results.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result"`
	Error   *RPCError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeConfigError    = -32001
)

// Handle dispatches one request and builds the response envelope.
func (s *Service) Handle(req Request) Response {
	result, err := s.dispatch(req.Method, req.Params)
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

// dispatch routes a method name to its implementation.
func (s *Service) dispatch(method string, params json.RawMessage) (any, error) {
	switch method {
	case "search_transactions":
		var p SearchParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.SearchTransactions(p)
	case "aggregate_transactions":
		var p AggregateParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.AggregateTransactions(p)
	case "describe_fields":
		return s.DescribeFields()
	case "reload_transactions":
		return s.ReloadTransactions()
	case "health_check":
		return s.HealthCheck()
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: "unknown method: " + method}
	}
}

// MethodNames lists the exposed operations.
func MethodNames() []string {
	return []string{
		"search_transactions",
		"aggregate_transactions",
		"describe_fields",
		"reload_transactions",
		"health_check",
	}
}

func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func toRPCError(err error) *RPCError {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr
	}
	switch {
	case errs.IsValidation(err):
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	case errs.IsConfiguration(err):
		return &RPCError{Code: codeConfigError, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
