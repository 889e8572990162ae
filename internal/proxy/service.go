package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/entry-proxy/internal/apperr"
	"github.com/shehryarbajwa/entry-proxy/internal/token"
	"github.com/shehryarbajwa/entry-proxy/internal/upstream"
	"github.com/shehryarbajwa/entry-proxy/pkg/models"
)

// Upstream is the subset of the upstream client the pipeline needs
type Upstream interface {
	FetchPage(ctx context.Context, id string) ([]byte, error)
	QueryProject(ctx context.Context, id, csrfToken string) ([]byte, error)
}

// Service runs the fetch-page, extract-token, query, relay pipeline.
// It keeps no state between calls.
type Service struct {
	upstream   Upstream
	extractors token.Chain
	logger     *zap.Logger
}

// NewService creates a new proxy service
func NewService(up Upstream, extractors token.Chain, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstream:   up,
		extractors: extractors,
		logger:     logger,
	}
}

// FetchProject returns the project with the given id as indented JSON.
// Every failure is an *apperr.Error.
func (s *Service) FetchProject(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, apperr.Validation("Project ID is required.")
	}

	csrfToken, err := s.acquireToken(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := s.upstream.QueryProject(ctx, id, csrfToken)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			return nil, apperr.UpstreamFetch(fmt.Sprintf("Error from Entry API: %s\n%s", se.Status, se.Body), err)
		}
		return nil, apperr.Unexpected("An unexpected error occurred", err)
	}

	return relay(body)
}

func (s *Service) acquireToken(ctx context.Context, id string) (string, error) {
	raw, err := s.upstream.FetchPage(ctx, id)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			return "", apperr.UpstreamFetch(fmt.Sprintf("Failed to fetch project page. Status: %d", se.StatusCode), err)
		}
		return "", apperr.Unexpected("An error occurred while fetching the CSRF token", err)
	}

	page, err := token.NewPage(raw)
	if err != nil {
		return "", apperr.Unexpected("An error occurred while fetching the CSRF token", err)
	}

	csrfToken, strategy, err := s.extractors.Extract(ctx, page)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperr.Unexpected("An error occurred while fetching the CSRF token", err)
	}

	s.logger.Debug("csrf token extracted", zap.String("project_id", id), zap.String("strategy", strategy))
	return csrfToken, nil
}

func relay(body []byte) ([]byte, error) {
	resp, err := models.ParseGraphQLResponse(body)
	if err != nil {
		return nil, apperr.Unexpected("An unexpected error occurred", err)
	}

	if resp.HasErrors() {
		return nil, apperr.UpstreamGraphQL(pretty.Ugly(resp.Errors))
	}
	if !resp.HasProject() {
		return nil, apperr.ProjectNotFound("Project data not found in the response from Entry API.")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, resp.Project, "", "  "); err != nil {
		return nil, apperr.Unexpected("An unexpected error occurred", err)
	}
	return out.Bytes(), nil
}
