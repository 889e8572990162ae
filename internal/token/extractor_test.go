package token

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/entry-proxy/internal/apperr"
	"github.com/shehryarbajwa/entry-proxy/internal/upstream"
)

const (
	bundlePage = `<html><head>
<script src="/js/vendor.js"></script>
<script src="/js/dist/project.3f9a0c.js"></script>
</head><body></body></html>`

	nextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"initialProps":{"csrfToken":"json-token"}}}</script>
</body></html>`

	plainPage = `<html><body><p>nothing here</p></body></html>`
)

type fakeFetcher struct {
	bodies map[string]string
	err    error
	paths  []string
}

func (f *fakeFetcher) FetchBundle(_ context.Context, path string) ([]byte, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[path]
	if !ok {
		return nil, &upstream.StatusError{Call: upstream.CallBundle, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	return []byte(body), nil
}

func mustPage(t *testing.T, html string) *Page {
	t.Helper()
	page, err := NewPage([]byte(html))
	require.NoError(t, err)
	return page
}

func TestScriptBundleExtractor(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"/js/dist/project.3f9a0c.js": `!function(){window.__CSRF_TOKEN__="bundle-token";}()`,
	}}

	tok, err := NewScriptBundleExtractor(fetcher).Extract(context.Background(), mustPage(t, bundlePage))
	require.NoError(t, err)
	assert.Equal(t, "bundle-token", tok)
	assert.Equal(t, []string{"/js/dist/project.3f9a0c.js"}, fetcher.paths)
}

func TestScriptBundleExtractor_NoScript(t *testing.T) {
	fetcher := &fakeFetcher{}

	_, err := NewScriptBundleExtractor(fetcher).Extract(context.Background(), mustPage(t, plainPage))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, fetcher.paths)
}

func TestScriptBundleExtractor_NoAssignment(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"/js/dist/project.3f9a0c.js": `console.log("no token")`,
	}}

	_, err := NewScriptBundleExtractor(fetcher).Extract(context.Background(), mustPage(t, bundlePage))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScriptBundleExtractor_BundleStatus(t *testing.T) {
	_, err := NewScriptBundleExtractor(&fakeFetcher{}).Extract(context.Background(), mustPage(t, bundlePage))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, apperr.KindUpstreamFetch, apperr.KindOf(err))
	assert.Equal(t, "Failed to fetch script file. Status: 404", err.Error())
}

func TestEmbeddedJSONExtractor(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "next data path",
			html: nextDataPage,
			want: "json-token",
		},
		{
			name: "generic json script",
			html: `<script type="application/json">{"props":{"initialProps":{"csrfToken":"generic"}}}</script>`,
			want: "generic",
		},
		{
			name: "custom path",
			html: `<script id="__NEXT_DATA__" type="application/json">{"runtime":{"security":{"token":"deep"}}}</script>`,
			path: "runtime.security.token",
			want: "deep",
		},
		{
			name: "fallback search when path moves",
			html: `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"session":{"csrfToken":"moved"}}}}</script>`,
			want: "moved",
		},
		{
			name: "fallback search on invalid json",
			html: `<script id="__NEXT_DATA__" type="application/json">{"csrfToken": "raw", broken</script>`,
			want: "raw",
		},
		{
			name:    "blob without token",
			html:    `<script id="__NEXT_DATA__" type="application/json">{"props":{}}</script>`,
			wantErr: true,
		},
		{
			name:    "no blob",
			html:    plainPage,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewEmbeddedJSONExtractor(tt.path).Extract(context.Background(), mustPage(t, tt.html))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
		})
	}
}

func TestChain_FallsThrough(t *testing.T) {
	fetcher := &fakeFetcher{}
	chain, err := NewChain(Options{
		Strategies: []string{StrategyScriptBundle, StrategyEmbeddedJSON},
		Fetcher:    fetcher,
	})
	require.NoError(t, err)

	tok, strategy, err := chain.Extract(context.Background(), mustPage(t, nextDataPage))
	require.NoError(t, err)
	assert.Equal(t, "json-token", tok)
	assert.Equal(t, StrategyEmbeddedJSON, strategy)
	assert.Empty(t, fetcher.paths)
}

func TestChain_AllMiss(t *testing.T) {
	chain, err := NewChain(Options{
		Strategies: []string{StrategyScriptBundle, StrategyEmbeddedJSON},
		Fetcher:    &fakeFetcher{},
	})
	require.NoError(t, err)

	_, _, err = chain.Extract(context.Background(), mustPage(t, plainPage))
	require.Error(t, err)
	assert.Equal(t, apperr.KindTokenNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "CSRF token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChain_StopsOnFetchError(t *testing.T) {
	boom := errors.New("connection reset")
	chain, err := NewChain(Options{
		Strategies: []string{StrategyScriptBundle, StrategyEmbeddedJSON},
		Fetcher:    &fakeFetcher{err: boom},
	})
	require.NoError(t, err)

	page := mustPage(t, bundlePage+nextDataPage)
	_, strategy, err := chain.Extract(context.Background(), page)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StrategyScriptBundle, strategy)
}

func TestNewChain(t *testing.T) {
	chain, err := NewChain(Options{Strategies: []string{" embedded_json ", "script_bundle"}, Fetcher: &fakeFetcher{}})
	require.NoError(t, err)
	assert.Equal(t, []string{StrategyEmbeddedJSON, StrategyScriptBundle}, chain.Names())

	_, err = NewChain(Options{Strategies: []string{"guess"}})
	assert.Error(t, err)

	_, err = NewChain(Options{})
	assert.Error(t, err)

	_, err = NewChain(Options{Strategies: []string{StrategyScriptBundle}})
	assert.Error(t, err)
}
