package models

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when an upstream body is not valid JSON
var ErrInvalidJSON = errors.New("invalid JSON in GraphQL response")

// GraphQLRequest is the body posted to the upstream GraphQL endpoint
type GraphQLRequest struct {
	Query     string           `json:"query"`
	Variables ProjectVariables `json:"variables"`
}

// ProjectVariables are the variables of the SELECT_PROJECT query
type ProjectVariables struct {
	ID string `json:"id"`
}

// GraphQLResponse is a view over an upstream response. The project is kept
// as raw JSON and never interpreted.
type GraphQLResponse struct {
	Errors  json.RawMessage // nil unless the response carries errors
	Project json.RawMessage // nil when data.project is missing or empty
}

// HasErrors reports whether the upstream flagged GraphQL-level errors
func (r GraphQLResponse) HasErrors() bool {
	return r.Errors != nil
}

// HasProject reports whether a project payload is present
func (r GraphQLResponse) HasProject() bool {
	return r.Project != nil
}

// ParseGraphQLResponse extracts errors and data.project from a response body
func ParseGraphQLResponse(body []byte) (GraphQLResponse, error) {
	if !gjson.ValidBytes(body) {
		return GraphQLResponse{}, ErrInvalidJSON
	}

	var resp GraphQLResponse
	if errs := gjson.GetBytes(body, "errors"); present(errs) {
		resp.Errors = json.RawMessage(errs.Raw)
	}
	if project := gjson.GetBytes(body, "data.project"); present(project) {
		resp.Project = json.RawMessage(project.Raw)
	}
	return resp, nil
}

// present treats null, false, 0 and "" as absent. Objects and arrays count
// as present even when empty.
func present(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}
