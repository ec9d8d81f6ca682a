package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/pkg/httpclient"
)

type recordingSink struct {
	mu  sync.Mutex
	got []domain.Candidate
}

func (s *recordingSink) Accept(_ context.Context, c domain.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, c)
}

func (s *recordingSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.got))
	for i, c := range s.got {
		out[i] = c.Title
	}
	return out
}

type staticCreds map[string]string

func (c staticCreds) Lookup(name string) (string, bool) {
	v, ok := c[name]
	return v, ok && v != ""
}

var (
	testUntil = time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	testSince = testUntil.AddDate(0, 0, -90)
)

func testClient() HTTPClient {
	return httpclient.NewRestyClient(2*time.Second, httpclient.WithRetry(0))
}

func fixedNow() time.Time { return testUntil }

func TestRegistryDispatchesByKind(t *testing.T) {
	reg := DefaultFetcherRegistry(testClient(), nil, Options{})

	for _, kind := range []domain.SourceKind{domain.SourceKindFeed, domain.SourceKindScrape, domain.SourceKindSitemap} {
		f, err := reg.FetcherFor(domain.Source{Name: "x", Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, string(kind), f.ID())
	}

	_, err := reg.FetcherFor(domain.Source{Name: "api row", Kind: domain.SourceKindAPI})
	assert.Error(t, err)
	_, err = reg.FetcherFor(domain.Source{Name: "odd", Kind: "gopher"})
	assert.Error(t, err)

	for _, id := range []string{NewsAPIID, NewsDataID, GoogleNewsID} {
		_, ok := reg.ByID(id)
		assert.True(t, ok, id)
	}
}

func TestNewsAPISkipsWithoutKey(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	f := NewNewsAPIFetcher(testClient(), staticCreds{}, NewsAPIOptions{URL: ts.URL})
	n, err := f.Fetch(context.Background(), Request{Query: "a", Since: testSince, Until: testUntil}, &recordingSink{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewsAPIRequestAndMapping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `jogo OR "copa do mundo"`, q.Get("q"))
		assert.Equal(t, "relevancy", q.Get("sortBy"))
		assert.Equal(t, "100", q.Get("pageSize"))
		assert.Equal(t, "pt", q.Get("language"))
		assert.Equal(t, "g1.globo.com,uol.com.br", q.Get("domains"))
		assert.Equal(t, "2024-05-01", q.Get("from"))
		assert.Equal(t, "2024-05-31", q.Get("to"))
		assert.Equal(t, "k1", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"G1"},"title":"Jogo decisivo","url":"https://g1.test/1","description":"Resumo.","publishedAt":"2024-05-30T10:00:00Z"},
			{"source":{"name":""},"title":"Sem fonte","url":"https://x.test/2"},
			{"title":"","url":"https://x.test/3"},
			{"title":"Sem url","url":""}
		]}`))
	}))
	defer ts.Close()

	f := NewNewsAPIFetcher(testClient(), staticCreds{NewsAPIID: "k1"}, NewsAPIOptions{URL: ts.URL})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{
		Client: domain.Client{Domains: []string{" g1.globo.com", "uol.com.br "}},
		Query:  `jogo OR "copa do mundo"`,
		Since:  testSince,
		Until:  testUntil,
	}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sink.got, 2)
	assert.Equal(t, "G1", sink.got[0].Source)
	assert.Equal(t, "Resumo.", sink.got[0].Content)
	assert.Equal(t, "NewsAPI", sink.got[1].Source)
}

func TestNewsAPIErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer ts.Close()

	f := NewNewsAPIFetcher(testClient(), nil, NewsAPIOptions{URL: ts.URL})
	_, err := f.Fetch(context.Background(), Request{Query: "a", Force: true, Since: testSince, Until: testUntil}, &recordingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewsDataRetriesWithoutDateRange(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if n == 1 {
			assert.NotEmpty(t, q.Get("from_date"))
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"status":"error","results":{"message":"The from_date parameter is not supported on your plan","code":"UnsupportedParameter"}}`))
			return
		}
		assert.Empty(t, q.Get("from_date"))
		assert.Empty(t, q.Get("to_date"))
		assert.Equal(t, "k2", q.Get("apikey"))
		_, _ = w.Write([]byte(`{"status":"success","results":[
			{"title":"Eleição","link":"","source_url":"https://nd.test/a","content":"ONLY AVAILABLE IN PAID PLANS","description":"Desc","pubDate":"2024-05-30 10:00:00","source_id":""},
			{"title":"Outra","link":"https://nd.test/b","content":"Corpo","source_id":"folha"}
		]}`))
	}))
	defer ts.Close()

	f := NewNewsDataFetcher(testClient(), staticCreds{NewsDataID: "k2"}, NewsDataOptions{URL: ts.URL})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{Query: "eleicao", Since: testSince, Until: testUntil}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	require.Len(t, sink.got, 2)
	assert.Equal(t, "https://nd.test/a", sink.got[0].URL)
	assert.Equal(t, "NewsData.io", sink.got[0].Source)
	assert.Equal(t, "Desc", sink.got[0].Content)
	assert.Equal(t, "folha", sink.got[1].Source)
	assert.Equal(t, "Corpo", sink.got[1].Content)
}

func TestNewsDataOther422IsError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"error","results":{"message":"query too long"}}`))
	}))
	defer ts.Close()

	f := NewNewsDataFetcher(testClient(), staticCreds{NewsDataID: "k"}, NewsDataOptions{URL: ts.URL})
	_, err := f.Fetch(context.Background(), Request{Query: "x", Since: testSince, Until: testUntil}, &recordingSink{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewsDataSkipsWithoutKeyUnlessForced(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"status":"success","results":[]}`))
	}))
	defer ts.Close()

	f := NewNewsDataFetcher(testClient(), staticCreds{}, NewsDataOptions{URL: ts.URL})
	n, err := f.Fetch(context.Background(), Request{Query: "x", Since: testSince, Until: testUntil}, &recordingSink{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, atomic.LoadInt32(&calls))

	_, err = f.Fetch(context.Background(), Request{Query: "x", Force: true, Since: testSince, Until: testUntil}, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
