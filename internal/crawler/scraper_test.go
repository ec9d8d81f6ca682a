package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
)

func TestEnrichFillsMissingContent(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/og":
			_, _ = w.Write([]byte(`<html><head><meta property="og:description" content=" Resumo OG. "></head></html>`))
		case "/meta":
			_, _ = w.Write([]byte(`<html><head><meta name="description" content="Resumo meta."></head></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	s := NewScraper(httpclient.NewRestyClient(2*time.Second, httpclient.WithRetry(0)), nil, 0)
	in := []domain.Candidate{
		{Title: "a", URL: ts.URL + "/og"},
		{Title: "b", URL: ts.URL + "/meta"},
		{Title: "c", URL: ts.URL + "/missing"},
		{Title: "d", URL: ts.URL + "/og", Content: "já tem"},
	}

	out := s.Enrich(context.Background(), "test-agent", in)
	require.Len(t, out, 4)
	assert.Equal(t, "Resumo OG.", out[0].Content)
	assert.Equal(t, "Resumo meta.", out[1].Content)
	assert.Equal(t, "", out[2].Content)
	assert.Equal(t, "já tem", out[3].Content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnrichNothingPending(t *testing.T) {
	s := NewScraper(nil, nil, 0)
	in := []domain.Candidate{{Title: "a", URL: "http://127.0.0.1:1/x", Content: "ok"}}
	assert.Equal(t, in, s.Enrich(context.Background(), "", in))
}

func TestParseDescription(t *testing.T) {
	desc, err := parseDescription([]byte(`<html><head><title>Título</title><meta name="description" content="Meta"><meta property="og:description" content=" Desc "></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Desc", desc)

	desc, err = parseDescription([]byte(`<html><head><title>Só título</title><meta property="og:title" content="OG"></head></html>`))
	require.NoError(t, err)
	assert.Empty(t, desc)
}
