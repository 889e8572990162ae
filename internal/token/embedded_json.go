package token

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// DefaultJSONPath is where the token sits in the page's data blob
const DefaultJSONPath = "props.initialProps.csrfToken"

// EmbeddedJSONExtractor reads the token from the JSON data blob the page
// embeds for client hydration
type EmbeddedJSONExtractor struct {
	path     string
	fallback *regexp.Regexp
}

// NewEmbeddedJSONExtractor creates an extractor reading path (gjson syntax).
// When the path misses, the blob is searched for the path's last key anywhere.
func NewEmbeddedJSONExtractor(path string) *EmbeddedJSONExtractor {
	if path == "" {
		path = DefaultJSONPath
	}
	key := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		key = path[i+1:]
	}

	return &EmbeddedJSONExtractor{
		path:     path,
		fallback: regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"\\]+)"`),
	}
}

func (e *EmbeddedJSONExtractor) Name() string { return StrategyEmbeddedJSON }

func (e *EmbeddedJSONExtractor) Extract(_ context.Context, page *Page) (string, error) {
	blob := dataBlob(page.Doc)
	if blob == "" {
		return "", fmt.Errorf("no embedded data blob: %w", ErrNotFound)
	}

	if gjson.Valid(blob) {
		if r := gjson.Get(blob, e.path); r.Type == gjson.String && r.Str != "" {
			return r.Str, nil
		}
	}

	if m := e.fallback.FindStringSubmatch(blob); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no token at %s in data blob: %w", e.path, ErrNotFound)
}

// dataBlob prefers the Next.js hydration payload and falls back to the first
// non-empty JSON script
func dataBlob(doc *goquery.Document) string {
	if blob := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text()); blob != "" {
		return blob
	}

	var blob string
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		blob = strings.TrimSpace(s.Text())
		return blob == ""
	})
	return blob
}
