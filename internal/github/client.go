// Package github provides the review-host client used by the stack engine.
package github

import (
	"context"
	"fmt"
)

// PullRequest is a pull request as the stack engine sees it.
// An empty ID means the pull request has not been created on the host yet.
type PullRequest struct {
	ID string
	// CommitID is decoded from HeadRefName; empty when the head is not a stack branch
	CommitID    string
	Number      int
	HeadRefName string
	BaseRefName string
	Title       string
	Body        string
	// ChecksPass is nil while checks are pending or none have reported
	ChecksPass *bool
	// Approved is nil when no reviewer has approved or requested changes
	Approved              *bool
	CheckConclusionStates []string
	Permalink             string
	IsDraft               bool
}

// Exists reports whether the pull request has been created on the host
func (p PullRequest) Exists() bool {
	return p.ID != ""
}

// RepoInfo identifies a repository on a GitHub host
type RepoInfo struct {
	Hostname string
	Owner    string
	Repo     string
}

// WebURL returns the repository's browser URL
func (r RepoInfo) WebURL() string {
	return fmt.Sprintf("https://%s/%s/%s", r.Hostname, r.Owner, r.Repo)
}

// CompareURL returns the browser URL comparing two refs
func (r RepoInfo) CompareURL(base, head string) string {
	return fmt.Sprintf("%s/compare/%s..%s", r.WebURL(), base, head)
}

// Client is the review host as consumed by the stack engine
type Client interface {
	// GetPullRequests returns open pull requests. With a non-nil filter only
	// pull requests whose CommitID is in the filter are returned.
	GetPullRequests(ctx context.Context, commitIDs []string) ([]PullRequest, error)

	// CreatePullRequest creates pr and returns it as stored by the host.
	// It fails if pr already exists.
	CreatePullRequest(ctx context.Context, pr PullRequest) (PullRequest, error)

	// UpdatePullRequest writes title, body, base and draft state of an existing pull request
	UpdatePullRequest(ctx context.Context, pr PullRequest) error

	// ClosePullRequest closes an existing pull request without merging it
	ClosePullRequest(ctx context.Context, pr PullRequest) error

	// Repository returns the repository the client operates on
	Repository() RepoInfo
}
