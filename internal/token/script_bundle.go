package token

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/shehryarbajwa/entry-proxy/internal/apperr"
	"github.com/shehryarbajwa/entry-proxy/internal/upstream"
)

var (
	bundleSrcPattern   = regexp.MustCompile(`^/js/dist/project\.[a-f0-9]+\.js$`)
	bundleTokenPattern = regexp.MustCompile(`window\.__CSRF_TOKEN__="([^"]+)"`)
)

// ScriptBundleExtractor follows the page's versioned project bundle and reads
// the token from its global assignment
type ScriptBundleExtractor struct {
	fetcher BundleFetcher
}

// NewScriptBundleExtractor creates a new ScriptBundleExtractor
func NewScriptBundleExtractor(fetcher BundleFetcher) *ScriptBundleExtractor {
	return &ScriptBundleExtractor{fetcher: fetcher}
}

func (e *ScriptBundleExtractor) Name() string { return StrategyScriptBundle }

func (e *ScriptBundleExtractor) Extract(ctx context.Context, page *Page) (string, error) {
	src := bundleSource(page.Doc)
	if src == "" {
		return "", fmt.Errorf("no project script referenced: %w", ErrNotFound)
	}

	body, err := e.fetcher.FetchBundle(ctx, src)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			return "", apperr.UpstreamFetch(fmt.Sprintf("Failed to fetch script file. Status: %d", se.StatusCode), err)
		}
		return "", fmt.Errorf("fetch script bundle: %w", err)
	}

	m := bundleTokenPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("no token assignment in %s: %w", src, ErrNotFound)
	}
	return string(m[1]), nil
}

func bundleSource(doc *goquery.Document) string {
	var src string
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("src")
		if bundleSrcPattern.MatchString(v) {
			src = v
			return false
		}
		return true
	})
	return src
}
