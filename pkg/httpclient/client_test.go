package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newsclip-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := NewRestyClient(2*time.Second, WithUserAgent("newsclip-test"))
	resp, err := c.Get(context.Background(), ts.URL, map[string]string{"X-Api-Key": "abc"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "ok", string(resp.Body()))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewRestyClient(2*time.Second, WithRetry(2))
	resp, err := c.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	c := NewRestyClient(2 * time.Second)
	resp, err := c.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostSendsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(b))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	c := NewRestyClient(2 * time.Second)
	resp, err := c.Post(context.Background(), ts.URL, map[string]string{"Content-Type": "application/json"}, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode())
}
