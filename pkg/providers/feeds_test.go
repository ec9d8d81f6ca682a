package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/newsclip/internal/domain"
)

const googleNewsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Google News</title>
<item><title>Eleição movimenta capital - Folha</title><link>https://news.test/1</link>
<pubDate>Thu, 30 May 2024 10:00:00 GMT</pubDate><description>Resumo da eleição</description>
<source url="https://folha.test">Folha de S.Paulo</source></item>
<item><title>Notícia antiga</title><link>https://news.test/old</link>
<pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate></item>
<item><title>Sem data nenhuma</title><link>https://news.test/nodate</link></item>
<item><title></title><link>https://news.test/notitle</link></item>
</channel></rss>`

func TestGoogleNewsSearchURL(t *testing.T) {
	f := NewGoogleNewsFetcher(testClient(), GoogleNewsOptions{}).(*googleNewsFetcher)
	got := f.SearchURL([]string{"jogo", "copa do mundo"})
	assert.Equal(t,
		"https://news.google.com/rss/search?hl=pt-BR&gl=BR&ceid=BR%3Apt-BR&q="+url.QueryEscape(`"jogo" OR "copa do mundo"`),
		got)
	assert.Contains(t, got, "q=%22jogo%22+OR+%22copa+do+mundo%22")
}

func TestGoogleNewsDateFloorAndSourceLabel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"eleicao"`, r.URL.Query().Get("q"))
		assert.Equal(t, "pt-BR", r.URL.Query().Get("hl"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(googleNewsFixture))
	}))
	defer ts.Close()

	f := NewGoogleNewsFetcher(testClient(), GoogleNewsOptions{URL: ts.URL, Now: fixedNow})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{Keywords: []string{"eleicao"}, Since: testSince, Until: testUntil}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Eleição movimenta capital - Folha", "Sem data nenhuma"}, sink.titles())

	assert.Equal(t, "Folha de S.Paulo", sink.got[0].Source)
	assert.Equal(t, "Resumo da eleição", sink.got[0].Content)
	assert.Equal(t, "2024-05-30T10:00:00Z", sink.got[0].RawDate)
	assert.Equal(t, "Google News", sink.got[1].Source)
	assert.Equal(t, "2024-05-31T12:00:00Z", sink.got[1].RawDate)
}

func TestGoogleNewsNoKeywords(t *testing.T) {
	f := NewGoogleNewsFetcher(testClient(), GoogleNewsOptions{URL: "http://127.0.0.1:1"})
	n, err := f.Fetch(context.Background(), Request{}, &recordingSink{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

const registeredFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel><title>Portal</title>
<item><title>INFLAÇÃO sobe em maio</title><link>/economia/1</link>
<pubDate>Wed, 29 May 2024 08:00:00 GMT</pubDate>
<description>Descrição curta</description><content:encoded>Texto completo</content:encoded></item>
<item><title>Futebol no domingo</title><link>https://portal.test/esporte/2</link>
<pubDate>Wed, 29 May 2024 08:00:00 GMT</pubDate></item>
<item><title>Inflação em 2023</title><link>https://portal.test/economia/old</link>
<pubDate>Sun, 01 Jan 2023 08:00:00 GMT</pubDate></item>
</channel></rss>`

func TestFeedTitleFilterAndDateFloor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(registeredFeedFixture))
	}))
	defer ts.Close()

	src := &domain.Source{ID: 4, Name: "Portal RSS", URL: ts.URL + "/rss", Kind: domain.SourceKindFeed}
	f := NewFeedFetcher(testClient(), FeedOptions{Now: fixedNow})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{Keywords: []string{"inflacao"}, Since: testSince, Until: testUntil, Source: src}, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.got, 1)

	c := sink.got[0]
	assert.Equal(t, "INFLAÇÃO sobe em maio", c.Title)
	assert.Equal(t, ts.URL+"/economia/1", c.URL)
	assert.Equal(t, "Portal RSS", c.Source)
	assert.Equal(t, "Texto completo", c.Content)
}

func TestFeedMalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer ts.Close()

	f := NewFeedFetcher(testClient(), FeedOptions{})
	_, err := f.Fetch(context.Background(), Request{Keywords: []string{"x"}, Source: &domain.Source{Name: "bad", URL: ts.URL}}, &recordingSink{})
	assert.Error(t, err)
}

const listingFixture = `<html><body>
<a href="/politica/1"><h2 class="t">Eleição municipal</h2></a>
<h2 class="t"><a href="https://portal.test/politica/2">Eleição estadual</a></h2>
<a class="t" href="politica/3">Eleição federal</a>
<div class="card"><h2 class="t">Eleição sem link</h2></div>
<div class="card"><h2 class="t">Eleição com seletor</h2><span class="more" data-x="1"><a href="/politica/5">leia</a></span></div>
<h2 class="t"><a href="/esporte/9">Futebol</a></h2>
</body></html>`

func TestScrapeLinkHeuristics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Googlebot")
		_, _ = w.Write([]byte(listingFixture))
	}))
	defer ts.Close()

	src := &domain.Source{Name: "Portal", URL: ts.URL + "/lista/", Kind: domain.SourceKindScrape, TitleSelector: ".t", LinkSelector: ".more"}
	f := NewScrapeFetcher(testClient(), ScrapeOptions{})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{Keywords: []string{"eleicao"}, Source: src}, sink)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	urls := make([]string, 0, len(sink.got))
	for _, c := range sink.got {
		urls = append(urls, c.URL)
		assert.Empty(t, c.RawDate)
		assert.Equal(t, "Portal", c.Source)
	}
	assert.Equal(t, []string{
		ts.URL + "/politica/1",
		"https://portal.test/politica/2",
		ts.URL + "/lista/politica/3",
		ts.URL + "/politica/5",
	}, urls)
}

func TestScrapeWithoutTitleSelectorIsNoop(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	f := NewScrapeFetcher(testClient(), ScrapeOptions{})
	n, err := f.Fetch(context.Background(), Request{Keywords: []string{"x"}, Source: &domain.Source{Name: "p", URL: ts.URL}}, &recordingSink{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

type stubEnricher struct{}

func (stubEnricher) Enrich(_ context.Context, _ string, in []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(in))
	for i, c := range in {
		c.Content = "enriched " + c.Title
		out[i] = c
	}
	return out
}

func TestScrapeUsesEnricher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingFixture))
	}))
	defer ts.Close()

	src := &domain.Source{Name: "Portal", URL: ts.URL, TitleSelector: "a.t"}
	f := NewScrapeFetcher(testClient(), ScrapeOptions{Enricher: stubEnricher{}})
	sink := &recordingSink{}
	_, err := f.Fetch(context.Background(), Request{Keywords: []string{"federal"}, Source: src}, sink)
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "enriched Eleição federal", sink.got[0].Content)
}

func TestScrapeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := NewScrapeFetcher(testClient(), ScrapeOptions{})
	_, err := f.Fetch(context.Background(), Request{Keywords: []string{"x"}, Source: &domain.Source{Name: "p", URL: ts.URL, TitleSelector: "h2"}}, &recordingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSitemapFollowsIndexAndFilters(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/index.xml"):
			_, _ = w.Write([]byte(`<sitemapindex><sitemap><loc>` + ts.URL + `/news.xml</loc></sitemap><sitemap><loc>/index.xml</loc></sitemap></sitemapindex>`))
		case strings.HasSuffix(r.URL.Path, "/news.xml"):
			_, _ = w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:news="http://www.google.com/schemas/sitemap-news/0.9">
<url><loc>https://portal.test/a</loc><news:news><news:publication><news:name>Portal</news:name></news:publication><news:publication_date>2024-05-30T09:00:00Z</news:publication_date><news:title>Eleição hoje</news:title></news:news></url>
<url><loc>https://portal.test/b</loc><news:news><news:publication_date>2024-05-30T09:00:00Z</news:publication_date><news:title>Clima</news:title><news:keywords>eleição, voto</news:keywords></news:news></url>
<url><loc>https://portal.test/c</loc><news:news><news:publication_date>2023-01-01T09:00:00Z</news:publication_date><news:title>Eleição antiga</news:title></news:news></url>
<url><loc>https://portal.test/d</loc><news:news><news:title>Futebol</news:title></news:news></url>
</urlset>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	src := &domain.Source{Name: "Portal Sitemap", URL: ts.URL + "/index.xml", Kind: domain.SourceKindSitemap}
	f := NewSitemapFetcher(testClient(), SitemapOptions{})
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), Request{Keywords: []string{"eleicao"}, Since: testSince, Until: testUntil, Source: src}, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Eleição hoje", "Clima"}, sink.titles())
	assert.Equal(t, "Portal", sink.got[0].Source)
	assert.Equal(t, "Portal Sitemap", sink.got[1].Source)
	assert.Equal(t, "2024-05-30T09:00:00Z", sink.got[0].RawDate)
}

func TestSitemapSkipsFailingNestedSitemap(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.xml":
			_, _ = w.Write([]byte(`<sitemapindex><sitemap><loc>/broken.xml</loc></sitemap><sitemap><loc>` + ts.URL + `/news.xml</loc></sitemap></sitemapindex>`))
		case "/all-broken.xml":
			_, _ = w.Write([]byte(`<sitemapindex><sitemap><loc>/broken.xml</loc></sitemap><sitemap><loc>/gone.xml</loc></sitemap></sitemapindex>`))
		case "/news.xml":
			_, _ = w.Write([]byte(`<urlset xmlns:news="http://www.google.com/schemas/sitemap-news/0.9">
<url><loc>https://portal.test/a</loc><news:news><news:publication_date>2024-05-30T09:00:00Z</news:publication_date><news:title>Eleição hoje</news:title></news:news></url>
</urlset>`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer ts.Close()

	f := NewSitemapFetcher(testClient(), SitemapOptions{})
	req := Request{Keywords: []string{"eleicao"}, Since: testSince, Until: testUntil}

	req.Source = &domain.Source{Name: "Portal", URL: ts.URL + "/index.xml", Kind: domain.SourceKindSitemap}
	sink := &recordingSink{}
	n, err := f.Fetch(context.Background(), req, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Eleição hoje"}, sink.titles())

	req.Source = &domain.Source{Name: "Portal", URL: ts.URL + "/all-broken.xml", Kind: domain.SourceKindSitemap}
	_, err = f.Fetch(context.Background(), req, &recordingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 nested sitemaps failed")
}

func TestFeedTextPriority(t *testing.T) {
	assert.Equal(t, "", feedText(nil))
}
