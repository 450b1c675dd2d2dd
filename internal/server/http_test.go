package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbank-dev/outbank-mcp/internal/audit"
)

const testToken = "kQ9vX2mRfLp7TzWc4bNyE8dHs6gJa3Uw"

func newTestServer(t *testing.T, configure func(svc *Service)) *httptest.Server {
	t.Helper()
	svc := newTestService(t)
	svc.cfg.Transport = "http"
	svc.cfg.HTTP.AuthToken = testToken
	if configure != nil {
		configure(svc)
	}
	ts := httptest.NewServer(NewRouter(svc.cfg, svc, nil, nil))
	t.Cleanup(ts.Close)
	return ts
}

func postRPC(t *testing.T, ts *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+RPCPath, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeRPC(t *testing.T, resp *http.Response) Response {
	t.Helper()
	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthzIsOpen(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "http", health.TransportMode)
}

func TestRPCRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postRPC(t, ts, "", `{"jsonrpc":"2.0","method":"health_check","id":1}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postRPC(t, ts, "wrong-token-wrong-token", `{"jsonrpc":"2.0","method":"health_check","id":1}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRPCWithValidToken(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postRPC(t, ts, testToken, `{"jsonrpc":"2.0","method":"search_transactions","params":{"query":"rent"},"id":7}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	out := decodeRPC(t, resp)
	assert.Equal(t, "2.0", out.JSONRPC)
	assert.Nil(t, out.Error)
	assert.Equal(t, float64(7), out.ID)
	assert.NotNil(t, out.Result)
}

func TestRPCErrorsKeepHTTP200(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postRPC(t, ts, testToken, `{"jsonrpc":"2.0","method":"no_such_method","id":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "RPC errors travel in the envelope")

	out := decodeRPC(t, resp)
	require.NotNil(t, out.Error)
	assert.Equal(t, codeMethodNotFound, out.Error.Code)
}

func TestRPCParseError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postRPC(t, ts, testToken, `{not json`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeRPC(t, resp)
	require.NotNil(t, out.Error)
	assert.Equal(t, codeParseError, out.Error.Code)
}

func TestRPCRejectsOversizedPayload(t *testing.T) {
	ts := newTestServer(t, func(svc *Service) {
		svc.cfg.HTTP.MaxRequestSize = 64
	})

	body := `{"jsonrpc":"2.0","method":"search_transactions","params":{"query":"` +
		strings.Repeat("x", 200) + `"},"id":1}`
	resp := postRPC(t, ts, testToken, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRPCRateLimit(t *testing.T) {
	ts := newTestServer(t, func(svc *Service) {
		svc.cfg.HTTP.RateLimit = "1/second"
	})

	resp := postRPC(t, ts, testToken, `{"jsonrpc":"2.0","method":"health_check","id":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The burst of one is spent; the immediate follow-up gets throttled.
	resp = postRPC(t, ts, testToken, `{"jsonrpc":"2.0","method":"health_check","id":2}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRPCAuditsCalls(t *testing.T) {
	svc := newTestService(t)
	svc.cfg.Transport = "http"
	svc.cfg.HTTP.AuthToken = testToken
	logPath := svc.cfg.CSVDir + "/audit.log"
	auditLog := audit.NewLogger(logPath)

	ts := httptest.NewServer(NewRouter(svc.cfg, svc, auditLog, nil))
	defer ts.Close()

	resp := postRPC(t, ts, testToken, `{"jsonrpc":"2.0","method":"health_check","id":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entries, err := audit.Read(logPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "health_check", entries[0].Tool)
	assert.NotEmpty(t, entries[0].RequestID)
	assert.NotEmpty(t, entries[0].ClientIP)
}
