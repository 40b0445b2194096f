package testhelpers

import (
	"fmt"

	"github.com/google/go-github/v62/github"
)

// SamplePRData provides common PR data for testing
type SamplePRData struct {
	Number  int
	Title   string
	Body    string
	Head    string
	HeadSHA string
	Base    string
	HTMLURL string
	Draft   bool
	State   string
}

// NewSamplePullRequest creates a github.PullRequest from sample data
func NewSamplePullRequest(data SamplePRData) *github.PullRequest {
	headSHA := data.HeadSHA
	if headSHA == "" {
		headSHA = fmt.Sprintf("%040x", data.Number)
	}
	state := data.State
	if state == "" {
		state = "open"
	}
	return &github.PullRequest{
		Number:  github.Int(data.Number),
		NodeID:  github.String(fmt.Sprintf("PR_node%d", data.Number)),
		Title:   github.String(data.Title),
		Body:    github.String(data.Body),
		Head:    &github.PullRequestBranch{Ref: github.String(data.Head), SHA: github.String(headSHA)},
		Base:    &github.PullRequestBranch{Ref: github.String(data.Base)},
		HTMLURL: github.String(data.HTMLURL),
		Draft:   github.Bool(data.Draft),
		State:   github.String(state),
	}
}

// DefaultPRData returns a default PR data structure for testing
func DefaultPRData() SamplePRData {
	return SamplePRData{
		Number:  123,
		Title:   "Test Pull Request",
		Body:    "This is a test pull request",
		Head:    "prstack/main/abc12345",
		Base:    "main",
		HTMLURL: "https://github.com/owner/repo/pull/123",
		State:   "open",
	}
}

// DraftPRData returns PR data for a draft PR
func DraftPRData() SamplePRData {
	data := DefaultPRData()
	data.Draft = true
	data.Title = "WIP: Test Pull Request"
	return data
}

// ClosedPRData returns PR data for a closed PR
func ClosedPRData() SamplePRData {
	data := DefaultPRData()
	data.State = "closed"
	return data
}
