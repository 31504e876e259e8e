package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

func newTestServer(t *testing.T, opts ...Option) (*engine.Engine, http.Handler) {
	t.Helper()
	e := engine.New(state.Initial(), nil)
	t.Cleanup(e.Close)
	return e, NewServer(e, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newTestServer(t)

	rr := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(t, h, "GET", "/info", "")
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "rewind", resp["app"])
	assert.Equal(t, ir.EngineVersion, resp["engine_version"])
}

func TestDispatchUndoRedo(t *testing.T) {
	e, h := newTestServer(t)

	rr := do(t, h, "POST", "/dispatch", `{"kind":"addToA","amount":5}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := decodeSnapshot(t, rr)
	assert.Equal(t, int64(18), snap.Tree.Thing.A)
	assert.Equal(t, int64(2), snap.Seq, "addToA and its PushUndo")

	rr = do(t, h, "POST", "/undo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(13), decodeSnapshot(t, rr).Tree.Thing.A)

	rr = do(t, h, "POST", "/redo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(18), decodeSnapshot(t, rr).Tree.Thing.A)

	assert.Equal(t, int64(18), e.State().Thing.A)
}

func TestDispatch_Rejected(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"kind":`},
		{"missing kind", `{"amount":1}`},
		{"unknown kind", `{"kind":"explode"}`},
		{"replay flag", `{"kind":"incA","replay":true}`},
		{"push undo", `{"kind":"PushUndo","record":{"inverse":{"kind":"setA","a":1},"forward":{"kind":"incA"},"description":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "POST", "/dispatch", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestStateAndSelect(t *testing.T) {
	e, h := newTestServer(t)
	e.Dispatch(ir.AppendToB{Suffix: " world"})

	rr := do(t, h, "GET", "/state", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var tree state.Tree
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tree))
	assert.Equal(t, "hello world", tree.Thing.B)

	rr = do(t, h, "GET", "/state/thing/b", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"hello world"`, rr.Body.String())

	rr = do(t, h, "GET", "/state/history/undo/0/description", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"append to B"`, rr.Body.String())

	rr = do(t, h, "GET", "/state/thing/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHistory(t *testing.T) {
	e, h := newTestServer(t)
	e.Dispatch(ir.IncA{})
	e.Dispatch(ir.Undo{})

	rr := do(t, h, "GET", "/history", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		CanUndo bool `json:"can_undo"`
		CanRedo bool `json:"can_redo"`
		Redo    []struct {
			Description string `json:"description"`
		} `json:"redo"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.CanUndo)
	assert.True(t, resp.CanRedo)
	require.Len(t, resp.Redo, 1)
	assert.Equal(t, "inc A", resp.Redo[0].Description)
}

func TestMount(t *testing.T) {
	extra := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	_, h := newTestServer(t, WithMount("/metrics", extra))

	rr := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestEvents(t *testing.T) {
	e, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	// The subscription exists once the ping has been written.
	assert.Equal(t, "connected", readData())

	e.Dispatch(ir.IncA{})

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal([]byte(readData()), &snap))
	assert.Equal(t, int64(14), snap.Tree.Thing.A)
	assert.Equal(t, int64(2), snap.Seq)
}

func TestCloseStreamsEndsEvents(t *testing.T) {
	e := engine.New(state.Initial(), nil)
	t.Cleanup(e.Close)
	server := NewServer(e)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	server.CloseStreams()
	server.CloseStreams()

	// The handler returns, so the body ends well before ctx expires.
	for lines.Scan() {
	}
	assert.NoError(t, ctx.Err())
}
