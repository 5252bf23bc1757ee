package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/internal/engine"
	"tradingdesk/internal/loader"
	"tradingdesk/internal/obs"
	"tradingdesk/internal/registry"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

type noop struct{}

func (noop) Tick([]ledger.Position, []market.Price) ([]sdk.Instruction, error) { return nil, nil }

type lib struct{ reg *sdk.Registration }

func (l lib) Lookup(string) (any, error) { return l.reg, nil }

type staticStatus []engine.Status

func (s staticStatus) Status() []engine.Status { return s }

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sma"+registry.LibraryExt)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	reg := sdk.Export("sma", "moving average crossover", sdk.Fixed(20), sdk.Variable(), func() sdk.Algorithm { return noop{} })
	r := registry.New(loader.New(loader.WithOpener(func(string) (loader.Library, error) {
		return lib{reg: &reg}, nil
	})))
	require.NoError(t, r.Load(path))
	return r
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestServer(t *testing.T) {
	id := uuid.New()
	metrics := obs.NewMetrics()
	metrics.IncFault()
	h := NewServer(newRegistry(t), staticStatus{{ID: id, Algorithm: "sma", Symbol: "AAPL", State: engine.StateTrading, Ticks: 3}}, metrics).Handler()

	var health map[string]any
	require.Equal(t, http.StatusOK, get(t, h, "/healthz", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(1), health["algorithms"])

	var algos []AlgorithmView
	require.Equal(t, http.StatusOK, get(t, h, "/algorithms", &algos))
	require.Len(t, algos, 1)
	assert.Equal(t, "sma", algos[0].Name)
	assert.Equal(t, "Fixed(20)", algos[0].MinDataLength)
	assert.Equal(t, "Variable", algos[0].MaxDataLength)

	var one AlgorithmView
	require.Equal(t, http.StatusOK, get(t, h, "/algorithms/sma", &one))
	assert.Equal(t, "moving average crossover", one.Description)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/algorithms/missing", nil))

	var sessions []map[string]any
	require.Equal(t, http.StatusOK, get(t, h, "/sessions", &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, id.String(), sessions[0]["id"])
	assert.Equal(t, "Trading", sessions[0]["state"])

	var snap obs.Snapshot
	require.Equal(t, http.StatusOK, get(t, h, "/metrics", &snap))
	assert.Equal(t, uint64(1), snap.Faults)
}

func TestServerWithoutSessions(t *testing.T) {
	h := NewServer(registry.New(nil), nil, nil).Handler()

	var sessions []engine.Status
	require.Equal(t, http.StatusOK, get(t, h, "/sessions", &sessions))
	assert.Empty(t, sessions)

	var algos []AlgorithmView
	require.Equal(t, http.StatusOK, get(t, h, "/algorithms", &algos))
	assert.Empty(t, algos)
}

func TestServerRun(t *testing.T) {
	s := NewServer(registry.New(nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
