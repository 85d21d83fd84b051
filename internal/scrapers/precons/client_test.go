package precons

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"precon-scraper/internal/components/telemetry"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, server *httptest.Server, opts ClientOptions) *Client {
	t.Helper()

	opts.BaseUrl = server.URL
	opts.DisableCloudflareBypass = true
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 100
	}
	client, err := NewClient(opts, telemetry.NewTestAPI())
	if err != nil {
		t.Fatal(err)
	}
	client.Http.SetRetryWaitTime(time.Millisecond)
	client.Http.SetRetryMaxWaitTime(time.Millisecond * 10)
	return client
}

func TestClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/deck":
			w.Write([]byte(`<div class="container"><h4>Set (abc)</h4></div>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientOptions{})

	body, err := client.Fetch(context.Background(), server.URL+"/deck")
	require.NoError(t, err)
	require.Contains(t, string(body), "Set (abc)")

	doc, err := client.FetchDocument(context.Background(), server.URL+"/deck")
	require.NoError(t, err)
	require.Equal(t, "Set (abc)", doc.Find("h4").Text())

	_, err = client.Fetch(context.Background(), server.URL+"/missing")
	require.True(t, errors.Is(err, ErrFetchStatus), err)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientOptions{Retries: 2})

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientOptions{Retries: 2})

	_, err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server, ClientOptions{Timeout: time.Millisecond * 50})

	_, err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, isTimeout(err), err)
}
