package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v62/github"

	"prstack.dev/prstack/internal/refname"
)

const (
	// GitHub check conclusion and status constants
	checkConclusionFailure        = "FAILURE"
	checkConclusionCanceled       = "CANCELED"
	checkConclusionTimedOut       = "TIMED_OUT"
	checkConclusionActionRequired = "ACTION_REQUIRED"
	checkStateFailure             = "FAILURE"
	checkStateError               = "ERROR"
	checkStatePending             = "PENDING"
	checkStateSuccess             = "SUCCESS"

	reviewApproved         = "APPROVED"
	reviewChangesRequested = "CHANGES_REQUESTED"
	reviewDismissed        = "DISMISSED"

	pageSize = 100
)

// RESTClient implements Client on the GitHub REST API
type RESTClient struct {
	gh    *github.Client
	repo  RepoInfo
	codec *refname.Codec
	retry retryPolicy
}

// NewRESTClient creates a client for repo. Head branches are decoded with
// codec to attach commit ids to pull requests.
func NewRESTClient(gh *github.Client, repo RepoInfo, codec *refname.Codec) *RESTClient {
	return &RESTClient{
		gh:    gh,
		repo:  repo,
		codec: codec,
		retry: defaultRetryPolicy,
	}
}

// Repository returns the repository the client operates on
func (c *RESTClient) Repository() RepoInfo {
	return c.repo
}

// GetPullRequests lists open pull requests, with review and check state
// resolved for those that belong to a stack
func (c *RESTClient) GetPullRequests(ctx context.Context, commitIDs []string) ([]PullRequest, error) {
	var wanted map[string]bool
	if commitIDs != nil {
		wanted = make(map[string]bool, len(commitIDs))
		for _, id := range commitIDs {
			wanted[id] = true
		}
	}

	var result []PullRequest
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	for {
		var page []*github.PullRequest
		var resp *github.Response
		err := c.retry.call(ctx, "list pull requests", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.PullRequests.List(ctx, c.repo.Owner, c.repo.Repo, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, ghPR := range page {
			pr := c.toPullRequest(ghPR)
			if wanted != nil && !wanted[pr.CommitID] {
				continue
			}
			if pr.CommitID != "" {
				if err := c.fillReviewState(ctx, &pr); err != nil {
					return nil, err
				}
				if err := c.fillCheckState(ctx, &pr, ghPR.GetHead().GetSHA()); err != nil {
					return nil, err
				}
			}
			result = append(result, pr)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// CreatePullRequest creates a new pull request
func (c *RESTClient) CreatePullRequest(ctx context.Context, pr PullRequest) (PullRequest, error) {
	if pr.Exists() {
		return PullRequest{}, fmt.Errorf("pull request #%d already exists", pr.Number)
	}

	newPR := &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.HeadRefName),
		Base:  github.String(pr.BaseRefName),
		Draft: github.Bool(pr.IsDraft),
	}
	if pr.Body != "" {
		newPR.Body = github.String(pr.Body)
	}

	var created *github.PullRequest
	err := c.retry.call(ctx, "create pull request", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		created, resp, err = c.gh.PullRequests.Create(ctx, c.repo.Owner, c.repo.Repo, newPR)
		return resp, err
	})
	if err != nil {
		return PullRequest{}, err
	}

	result := c.toPullRequest(created)
	result.ChecksPass = pr.ChecksPass
	result.Approved = pr.Approved
	return result, nil
}

// UpdatePullRequest updates title, body and base, then reconciles draft state
func (c *RESTClient) UpdatePullRequest(ctx context.Context, pr PullRequest) error {
	if pr.Number == 0 {
		return fmt.Errorf("cannot update pull request for %s: it has not been created", pr.HeadRefName)
	}

	update := &github.PullRequest{
		Title: github.String(pr.Title),
		Body:  github.String(pr.Body),
		Base:  &github.PullRequestBranch{Ref: github.String(pr.BaseRefName)},
	}

	var updated *github.PullRequest
	err := c.retry.call(ctx, fmt.Sprintf("update pull request #%d", pr.Number), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		updated, resp, err = c.gh.PullRequests.Edit(ctx, c.repo.Owner, c.repo.Repo, pr.Number, update)
		return resp, err
	})
	if err != nil {
		return err
	}

	if updated != nil && updated.Draft != nil && *updated.Draft != pr.IsDraft {
		nodeID := updated.GetNodeID()
		if nodeID == "" {
			nodeID = pr.ID
		}
		if err := c.setDraft(ctx, nodeID, pr.IsDraft); err != nil {
			return toHostAPIError(fmt.Sprintf("update draft state of pull request #%d", pr.Number), err)
		}
	}
	return nil
}

// ClosePullRequest closes a pull request without merging it
func (c *RESTClient) ClosePullRequest(ctx context.Context, pr PullRequest) error {
	if pr.Number == 0 {
		return fmt.Errorf("cannot close pull request for %s: it has not been created", pr.HeadRefName)
	}
	return c.retry.call(ctx, fmt.Sprintf("close pull request #%d", pr.Number), func() (*github.Response, error) {
		_, resp, err := c.gh.PullRequests.Edit(ctx, c.repo.Owner, c.repo.Repo, pr.Number, &github.PullRequest{
			State: github.String("closed"),
		})
		return resp, err
	})
}

// fillReviewState sets Approved from each reviewer's latest decisive review
func (c *RESTClient) fillReviewState(ctx context.Context, pr *PullRequest) error {
	latest := make(map[string]string)
	opts := &github.ListOptions{PerPage: pageSize}
	for {
		var reviews []*github.PullRequestReview
		var resp *github.Response
		err := c.retry.call(ctx, fmt.Sprintf("list reviews of pull request #%d", pr.Number), func() (*github.Response, error) {
			var err error
			reviews, resp, err = c.gh.PullRequests.ListReviews(ctx, c.repo.Owner, c.repo.Repo, pr.Number, opts)
			return resp, err
		})
		if err != nil {
			return err
		}

		// reviews arrive oldest first
		for _, review := range reviews {
			user := review.GetUser().GetLogin()
			switch state := strings.ToUpper(review.GetState()); state {
			case reviewApproved, reviewChangesRequested:
				latest[user] = state
			case reviewDismissed:
				delete(latest, user)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	pr.Approved = reviewDecision(latest)
	return nil
}

// reviewDecision folds per-reviewer states: any change request wins,
// otherwise any approval approves, otherwise there is no decision
func reviewDecision(latest map[string]string) *bool {
	approved := false
	for _, state := range latest {
		if state == reviewChangesRequested {
			return github.Bool(false)
		}
		if state == reviewApproved {
			approved = true
		}
	}
	if approved {
		return github.Bool(true)
	}
	return nil
}

// fillCheckState sets ChecksPass and CheckConclusionStates from the check
// runs and the combined commit status of the head commit
func (c *RESTClient) fillCheckState(ctx context.Context, pr *PullRequest, headSHA string) error {
	if headSHA == "" {
		return nil
	}

	var runs []*github.CheckRun
	opts := &github.ListCheckRunsOptions{ListOptions: github.ListOptions{PerPage: pageSize}}
	for {
		var page *github.ListCheckRunsResults
		var resp *github.Response
		err := c.retry.call(ctx, fmt.Sprintf("list check runs of pull request #%d", pr.Number), func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Checks.ListCheckRunsForRef(ctx, c.repo.Owner, c.repo.Repo, headSHA, opts)
			return resp, err
		})
		if err != nil {
			return err
		}
		if page != nil {
			runs = append(runs, page.CheckRuns...)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	var combined *github.CombinedStatus
	err := c.retry.call(ctx, fmt.Sprintf("get commit status of pull request #%d", pr.Number), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		combined, resp, err = c.gh.Repositories.GetCombinedStatus(ctx, c.repo.Owner, c.repo.Repo, headSHA, nil)
		return resp, err
	})
	if err != nil {
		return err
	}

	pr.ChecksPass, pr.CheckConclusionStates = evaluateChecks(runs, combined)
	return nil
}

// evaluateChecks rolls check runs and commit statuses into one state:
// false if anything failed, nil while anything is pending or nothing has
// reported, true otherwise
func evaluateChecks(runs []*github.CheckRun, combined *github.CombinedStatus) (*bool, []string) {
	var states []string
	hasPending := false
	hasFailing := false
	reported := false

	for _, run := range runs {
		reported = true
		status := strings.ToUpper(run.GetStatus())
		if status == "QUEUED" || status == "IN_PROGRESS" || status == "PENDING" || status == "WAITING" {
			hasPending = true
			states = append(states, status)
			continue
		}
		conclusion := strings.ToUpper(run.GetConclusion())
		if conclusion != "" {
			states = append(states, conclusion)
		}
		if conclusion == checkConclusionFailure || conclusion == checkConclusionCanceled || conclusion == checkConclusionTimedOut || conclusion == checkConclusionActionRequired {
			hasFailing = true
		}
	}

	if combined != nil {
		for _, status := range combined.Statuses {
			reported = true
			state := strings.ToUpper(status.GetState())
			states = append(states, state)
			switch state {
			case checkStatePending:
				hasPending = true
			case checkStateFailure, checkStateError:
				hasFailing = true
			}
		}
	}

	switch {
	case hasFailing:
		return github.Bool(false), states
	case hasPending || !reported:
		return nil, states
	default:
		return github.Bool(true), states
	}
}

// toPullRequest converts a go-github pull request
func (c *RESTClient) toPullRequest(ghPR *github.PullRequest) PullRequest {
	pr := PullRequest{
		ID:          ghPR.GetNodeID(),
		Number:      ghPR.GetNumber(),
		HeadRefName: ghPR.GetHead().GetRef(),
		BaseRefName: ghPR.GetBase().GetRef(),
		Title:       ghPR.GetTitle(),
		Body:        ghPR.GetBody(),
		Permalink:   ghPR.GetHTMLURL(),
		IsDraft:     ghPR.GetDraft(),
	}
	if pr.ID == "" && pr.Number != 0 {
		pr.ID = fmt.Sprintf("%d", pr.Number)
	}
	if parts, ok := c.codec.Decode(pr.HeadRefName); ok && !parts.IsRevision() {
		pr.CommitID = parts.CommitID
	}
	return pr
}
