// Package token locates the upstream anti-forgery token in a project page.
//
// Extraction is a chain of strategies tried in order. A strategy that finds
// nothing returns ErrNotFound and the chain moves on; any other error stops
// the chain. When every strategy comes back empty the chain fails with a
// TokenNotFound error. There is no fallback token.
package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shehryarbajwa/entry-proxy/internal/apperr"
)

// Strategy names accepted by NewChain
const (
	StrategyScriptBundle = "script_bundle"
	StrategyEmbeddedJSON = "embedded_json"
)

// ErrNotFound means a strategy did not find its markup or its token
var ErrNotFound = errors.New("token not found")

// Page is a fetched project page, parsed once and shared by all strategies
type Page struct {
	Raw []byte
	Doc *goquery.Document
}

// NewPage parses raw HTML
func NewPage(raw []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse project page: %w", err)
	}
	return &Page{Raw: raw, Doc: doc}, nil
}

// Extractor finds a token in a project page
type Extractor interface {
	Name() string
	Extract(ctx context.Context, page *Page) (string, error)
}

// BundleFetcher downloads a script bundle referenced by the page
type BundleFetcher interface {
	FetchBundle(ctx context.Context, path string) ([]byte, error)
}

// Chain tries extractors in order
type Chain []Extractor

// Options configures NewChain
type Options struct {
	Strategies []string
	JSONPath   string
	Fetcher    BundleFetcher
}

// NewChain builds a chain from strategy names
func NewChain(opts Options) (Chain, error) {
	if len(opts.Strategies) == 0 {
		return nil, fmt.Errorf("no token strategies configured")
	}

	chain := make(Chain, 0, len(opts.Strategies))
	for _, name := range opts.Strategies {
		switch strings.TrimSpace(name) {
		case StrategyScriptBundle:
			if opts.Fetcher == nil {
				return nil, fmt.Errorf("strategy %s needs a bundle fetcher", StrategyScriptBundle)
			}
			chain = append(chain, NewScriptBundleExtractor(opts.Fetcher))
		case StrategyEmbeddedJSON:
			chain = append(chain, NewEmbeddedJSONExtractor(opts.JSONPath))
		default:
			return nil, fmt.Errorf("unknown token strategy %q", name)
		}
	}
	return chain, nil
}

// Names lists the strategies in order
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, ex := range c {
		names[i] = ex.Name()
	}
	return names
}

// Extract runs the chain and returns the token with the name of the
// strategy that produced it
func (c Chain) Extract(ctx context.Context, page *Page) (string, string, error) {
	var misses []error
	for _, ex := range c {
		tok, err := ex.Extract(ctx, page)
		if err == nil {
			return tok, ex.Name(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", ex.Name(), err
		}
		misses = append(misses, fmt.Errorf("%s: %w", ex.Name(), err))
	}

	return "", "", apperr.TokenNotFound("Could not find CSRF token in the project page.", errors.Join(misses...))
}
