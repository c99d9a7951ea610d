package events

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, bus Bus, scope string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(bus, logger, func(*http.Request) string { return scope }, time.Hour)
	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamForwardsScopedEvents(t *testing.T) {
	bus := NewLocalBus(nil)
	srv := newStreamServer(t, bus, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?topic=project_updated", nil)
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	_, err = bus.Publish(ctx, Event{Topic: TopicTenantScope, Scope: "s1"})
	require.NoError(t, err)
	_, err = bus.Publish(ctx, Event{Topic: TopicProjectUpdated, Scope: "s1", ProjectID: "p7"})
	require.NoError(t, err)

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(res.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case line, ok := <-lines:
			require.True(t, ok)
			if line != "" {
				got = append(got, line)
			}
		case <-timeout:
			t.Fatalf("stream stalled after %v", got)
		}
	}
	assert.Equal(t, "event: project_updated", got[0])
	assert.True(t, strings.HasPrefix(got[1], "data: "))
	assert.Contains(t, got[1], `"project_id":"p7"`)
}

func TestStreamRequiresScope(t *testing.T) {
	srv := newStreamServer(t, NewLocalBus(nil), "")

	res, err := srv.Client().Get(srv.URL + "/events")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestTopicsFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events?topic=tenant_scope&topic=bogus", nil)
	assert.Equal(t, []Topic{TopicTenantScope}, topicsFromQuery(r))
}

func TestStreamSignalsLogout(t *testing.T) {
	var signedIn atomic.Bool
	signedIn.Store(true)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(NewLocalBus(nil), logger, func(*http.Request) string { return "s1" }, 20*time.Millisecond).
		WithSignedIn(func(_ context.Context, scope string) bool {
			return scope == "s1" && signedIn.Load()
		})
	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	reader := bufio.NewReader(res.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", line)

	signedIn.Store(false)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: logout\ndata: {\"reason\":\"signed_out\"}\n\n")
}
