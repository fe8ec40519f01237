package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) (*gin.Engine, *Reporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := &Config{}
	config.SetDefaults()
	reporter := NewReporter()

	r, err := NewServer(config, reporter, nil)
	require.NoError(t, err)
	return r, reporter
}

func post(r http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestServerRoundTrip(t *testing.T) {
	r, reporter := newTestServer(t)
	input := []byte(strings.Repeat("go go gophers for the win!", 40))

	w := post(r, "/compress", input)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, strconv.Itoa(len(input)), w.Header().Get("X-Huffzip-Input-Size"))
	packed := w.Body.Bytes()
	require.Less(t, len(packed), len(input))

	w = post(r, "/decompress", packed)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, input, w.Body.Bytes())

	last, ok := reporter.Last()
	require.True(t, ok)
	require.Equal(t, "decompress", last.Op)
	require.Equal(t, int64(len(input)), last.OutputSize)
}

func TestServerEmptyBody(t *testing.T) {
	r, _ := newTestServer(t)

	w := post(r, "/compress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/decompress", w.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, w.Body.Len())
}

func TestServerBadPayload(t *testing.T) {
	r, reporter := newTestServer(t)

	w := post(r, "/decompress", []byte("definitely not huffzip"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Error, "format error")

	last, ok := reporter.Last()
	require.True(t, ok)
	require.NotEmpty(t, last.Error)
}

func TestServerIndex(t *testing.T) {
	r, _ := newTestServer(t)
	post(r, "/compress", []byte("hello"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<h1>huffzip</h1>")
	require.Contains(t, w.Body.String(), "Last job: compress")
}

func TestServerEvents(t *testing.T) {
	r, reporter := newTestServer(t)
	ts := httptest.NewServer(r)
	defer ts.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events/ws", "", ts.URL)
	require.NoError(t, err)
	defer ws.Close()

	dec := json.NewDecoder(ws)
	got := make(chan Report, 1)
	go func() {
		var report Report
		if err := dec.Decode(&report); err == nil {
			got <- report
		}
	}()

	// the subscription starts once the handshake is served
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case report := <-got:
			require.Equal(t, "compress", report.Op)
			return
		case <-tick.C:
			reporter.Broadcast(Report{Op: "compress", Input: "ws"})
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}

func TestServerIndexIRC(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := &Config{}
	config.SetDefaults()
	config.IRCChannel = "#jobs"
	reporter := NewReporter()

	r, err := NewServer(config, reporter, NewIRCBot(config, reporter))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "IRC: offline")
}
