package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shehryarbajwa/entry-proxy/pkg/models"
)

const (
	DefaultBaseURL   = "https://playentry.org"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 32 << 20
)

// Call names, used for metrics labels and error messages
const (
	CallPage    = "page"
	CallBundle  = "bundle"
	CallGraphQL = "graphql"
)

// Observer receives timings for every outbound call
type Observer interface {
	ObserveUpstream(call string, status int, d time.Duration)
}

// StatusError is returned when the upstream answers with a non-2xx status
type StatusError struct {
	Call       string
	StatusCode int
	Status     string // e.g. "503 Service Unavailable"
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected status %s", e.Call, e.Status)
}

// Options configures a Client
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
	Observer   Observer
}

// Client talks to the upstream site. It is safe for concurrent use and
// holds no per-request state.
type Client struct {
	http      *http.Client
	base      *url.URL
	userAgent string
	observer  Observer
}

// NewClient creates a new upstream client
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      httpClient,
		base:      base,
		userAgent: opts.UserAgent,
		observer:  opts.Observer,
	}, nil
}

// PageURL returns the project page URL for id
func (c *Client) PageURL(id string) string {
	return c.base.JoinPath("project", id).String()
}

// FetchPage handles GET {base}/project/{id}
func (c *Client) FetchPage(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req, CallPage)
}

// FetchBundle handles GET {base}{path} for a script bundle referenced by the page
func (c *Client) FetchBundle(ctx context.Context, path string) ([]byte, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle path %q: %w", path, err)
	}
	// Only the path is taken so a bundle reference can never leave the upstream host.
	target := c.base.ResolveReference(&url.URL{Path: ref.Path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build bundle request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req, CallBundle)
}

// QueryProject handles POST {base}/graphql/SELECT_PROJECT and returns the raw
// response body on a 2xx status
func (c *Client) QueryProject(ctx context.Context, id, csrfToken string) ([]byte, error) {
	payload, err := json.Marshal(models.GraphQLRequest{
		Query:     SelectProjectQuery,
		Variables: models.ProjectVariables{ID: id},
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	endpoint := c.base.JoinPath("graphql", "SELECT_PROJECT").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}

	h := req.Header
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8,ko;q=0.7")
	h.Set("Content-Type", "application/json")
	h.Set("Csrf-Token", csrfToken)
	h.Set("Priority", "u=1, i")
	h.Set("Sec-Ch-Ua", `"Not)A;Brand";v="8", "Chromium";v="138", "Google Chrome";v="138"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Linux"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("X-Client-Type", "Client")
	h.Set("Referer", c.base.JoinPath("iframe", id).String())
	h.Set("User-Agent", c.userAgent)

	return c.do(req, CallGraphQL)
}

func (c *Client) do(req *http.Request, call string) ([]byte, error) {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(call, 0, time.Since(start))
		return nil, fmt.Errorf("upstream %s request: %w", call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.observe(call, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read upstream %s body: %w", call, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Call:       call,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return body, nil
}

func (c *Client) observe(call string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(call, status, d)
	}
}
