package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	convertToDraftMutation = `mutation ConvertPullRequestToDraft($pullRequestId: ID!) {
	convertPullRequestToDraft(input: {pullRequestId: $pullRequestId}) {
		pullRequest { id isDraft }
	}
}`
	markReadyMutation = `mutation MarkPullRequestReadyForReview($pullRequestId: ID!) {
	markPullRequestReadyForReview(input: {pullRequestId: $pullRequestId}) {
		pullRequest { id isDraft }
	}
}`
)

// graphQLError is returned when the endpoint answers 200 with an errors array
type graphQLError struct {
	Mutation string
	Messages []string
}

func (e *graphQLError) Error() string {
	return fmt.Sprintf("GraphQL %s mutation failed: %s", e.Mutation, strings.Join(e.Messages, "; "))
}

// setDraft toggles a pull request's draft state. The REST API cannot do this,
// so it goes through the GraphQL mutations.
func (c *RESTClient) setDraft(ctx context.Context, nodeID string, isDraft bool) error {
	mutationName, mutation := "markPullRequestReadyForReview", markReadyMutation
	if isDraft {
		mutationName, mutation = "convertPullRequestToDraft", convertToDraftMutation
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query": mutation,
		"variables": map[string]interface{}{
			"pullRequestId": nodeID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphQLURL(c.gh.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// the go-github client's transport carries the oauth2 token
	resp, err := c.gh.Client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute GraphQL request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read GraphQL response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GraphQL request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse GraphQL response: %w", err)
	}
	if len(result.Errors) > 0 {
		gqlErr := &graphQLError{Mutation: mutationName}
		for _, e := range result.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	return nil
}
