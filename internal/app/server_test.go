package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colstore-go/internal/colstore"
	"colstore-go/internal/redact"
)

func TestRouter_Healthz(t *testing.T) {
	rec := &fakeReconciler{}
	w := NewWatcher(rec, time.Hour, discardLogger())
	srv := httptest.NewServer(NewRouter(w, redact.Nop{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.InProgress)
	assert.Nil(t, body.LastRun)
}

func TestRouter_HealthzReportsRedactedFailure(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("open /srv/data/docs/a.md: permission denied")}
	w := NewWatcher(rec, time.Hour, discardLogger())
	w.RunOnce(context.Background())

	r := redact.NewPathRedactor().Add("/srv/data", redact.ContentRoot)
	srv := httptest.NewServer(NewRouter(w, r))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "open <content-root>/docs/a.md: permission denied", body.LastError)
	assert.NotNil(t, body.LastRun)
}

func TestRouter_Reconcile(t *testing.T) {
	rec := &fakeReconciler{results: []*colstore.ReconcileResult{{Collection: "docs", FilesAdded: 1}}}
	w := NewWatcher(rec, time.Hour, discardLogger())
	srv := httptest.NewServer(NewRouter(w, redact.Nop{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/reconcile", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body passResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, passResponse{Collections: 1, Added: 1}, body)

	get, err := http.Get(srv.URL + "/reconcile")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	w := NewWatcher(&fakeReconciler{}, time.Hour, discardLogger())
	w.RunOnce(context.Background())

	srv := httptest.NewServer(NewRouter(w, redact.Nop{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "colstore_watch_passes_total")
	assert.Contains(t, string(data), "colstore_reconcile_duration_seconds")
}

func TestServeListener_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serveListener(ctx, ln, http.NotFoundHandler(), discardLogger())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveListener did not return after cancel")
	}
}
