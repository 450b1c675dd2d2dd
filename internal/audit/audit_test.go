package audit

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	log := NewLogger(path)

	require.NoError(t, log.Append(Entry{
		RequestID:  "req-1",
		Tool:       "search_transactions",
		Parameters: json.RawMessage(`{"query":"rent"}`),
		ClientIP:   "127.0.0.1",
	}))
	require.NoError(t, log.Append(Entry{Tool: "health_check"}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "search_transactions", entries[0].Tool)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.JSONEq(t, `{"query":"rent"}`, string(entries[0].Parameters))
	assert.False(t, entries[0].Timestamp.IsZero(), "timestamp is filled in on append")

	assert.Equal(t, "health_check", entries[1].Tool)
	assert.Empty(t, entries[1].ClientIP)
}

func TestNilLoggerDiscards(t *testing.T) {
	var log *Logger
	assert.NoError(t, log.Append(Entry{Tool: "reload_transactions"}))
}

func TestReadMissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}
