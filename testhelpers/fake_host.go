package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/refname"
)

// Mutation kinds recorded by FakeHost
const (
	MutationCreate = "create"
	MutationUpdate = "update"
	MutationClose  = "close"
)

// Mutation is a single write made against a FakeHost
type Mutation struct {
	Kind        string
	PullRequest github.PullRequest
}

// FakeHost is an in-memory review host. It behaves like GitHub in the ways
// the stack engine relies on: pull requests are keyed by number, the commit
// id is decoded from the head branch, and (when Repo is set) an open pull
// request is closed once its head branch disappears from the remote.
type FakeHost struct {
	mu         sync.Mutex
	codec      *refname.Codec
	repo       github.RepoInfo
	prs        map[int]*github.PullRequest
	closed     map[int]bool
	nextNumber int
	mutations  []Mutation
	listCalls  int

	// Repo, when set, is used to close pull requests whose head branch was
	// deleted from Remote
	Repo   *GitRepo
	Remote string

	// Observe is called, without the lock held, before and after every write
	Observe func()
	// BeforeList is called, without the lock held, before every
	// GetPullRequests with the 1-based call count
	BeforeList func(call int)
}

// NewFakeHost creates an empty host for branches encoded with prefix
func NewFakeHost(prefix string) *FakeHost {
	return &FakeHost{
		codec:      refname.NewCodec(prefix),
		repo:       github.RepoInfo{Hostname: github.DefaultHostname, Owner: "owner", Repo: "repo"},
		prs:        make(map[int]*github.PullRequest),
		closed:     make(map[int]bool),
		nextNumber: 1,
		Remote:     "origin",
	}
}

// NewSceneHost creates a host that watches the scene's origin remote
func NewSceneHost(scene *Scene, prefix string) *FakeHost {
	host := NewFakeHost(prefix)
	host.Repo = scene.Repo
	return host
}

// Repository returns the fake repository
func (h *FakeHost) Repository() github.RepoInfo {
	return h.repo
}

// GetPullRequests returns open pull requests, optionally filtered by commit id
func (h *FakeHost) GetPullRequests(_ context.Context, commitIDs []string) ([]github.PullRequest, error) {
	h.mu.Lock()
	h.listCalls++
	call := h.listCalls
	h.mu.Unlock()
	if h.BeforeList != nil {
		h.BeforeList(call)
	}

	if err := h.closeDeletedHeads(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var filter map[string]bool
	if commitIDs != nil {
		filter = make(map[string]bool, len(commitIDs))
		for _, id := range commitIDs {
			filter[id] = true
		}
	}

	var result []github.PullRequest
	for _, number := range h.sortedNumbers() {
		if h.closed[number] {
			continue
		}
		pr := *h.prs[number]
		if filter != nil && (pr.CommitID == "" || !filter[pr.CommitID]) {
			continue
		}
		result = append(result, pr)
	}
	return result, nil
}

// CreatePullRequest stores a new open pull request
func (h *FakeHost) CreatePullRequest(_ context.Context, pr github.PullRequest) (github.PullRequest, error) {
	h.observe()
	if pr.Exists() {
		return github.PullRequest{}, fmt.Errorf("pull request #%d already exists", pr.Number)
	}

	h.mu.Lock()
	for _, existing := range h.prs {
		if !h.closed[existing.Number] && existing.HeadRefName == pr.HeadRefName {
			h.mu.Unlock()
			return github.PullRequest{}, fmt.Errorf("a pull request for branch %q already exists", pr.HeadRefName)
		}
	}
	created := h.store(pr)
	h.mutations = append(h.mutations, Mutation{Kind: MutationCreate, PullRequest: created})
	h.mu.Unlock()

	h.observe()
	return created, nil
}

// UpdatePullRequest overwrites title, body, base and draft state
func (h *FakeHost) UpdatePullRequest(_ context.Context, pr github.PullRequest) error {
	h.observe()
	h.mu.Lock()
	stored, err := h.lookup(pr)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	stored.Title = pr.Title
	stored.Body = pr.Body
	stored.BaseRefName = pr.BaseRefName
	stored.IsDraft = pr.IsDraft
	h.mutations = append(h.mutations, Mutation{Kind: MutationUpdate, PullRequest: *stored})
	h.mu.Unlock()

	h.observe()
	return nil
}

// ClosePullRequest closes an open pull request
func (h *FakeHost) ClosePullRequest(_ context.Context, pr github.PullRequest) error {
	h.observe()
	h.mu.Lock()
	stored, err := h.lookup(pr)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.closed[stored.Number] = true
	h.mutations = append(h.mutations, Mutation{Kind: MutationClose, PullRequest: *stored})
	h.mu.Unlock()

	h.observe()
	return nil
}

// AddPullRequest stores a pull request directly, without recording a mutation
func (h *FakeHost) AddPullRequest(pr github.PullRequest) github.PullRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store(pr)
}

// Approve sets the review decision of a pull request
func (h *FakeHost) Approve(number int, approved bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pr, ok := h.prs[number]; ok {
		pr.Approved = &approved
	}
}

// SetChecks sets the check rollup of a pull request
func (h *FakeHost) SetChecks(number int, pass bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pr, ok := h.prs[number]; ok {
		pr.ChecksPass = &pass
		state := "SUCCESS"
		if !pass {
			state = "FAILURE"
		}
		pr.CheckConclusionStates = []string{state}
	}
}

// ApproveAll approves every open pull request and marks its checks passing
func (h *FakeHost) ApproveAll() {
	h.mu.Lock()
	numbers := h.sortedNumbers()
	h.mu.Unlock()
	for _, number := range numbers {
		h.Approve(number, true)
		h.SetChecks(number, true)
	}
}

// PullRequest returns a pull request by number, open or closed
func (h *FakeHost) PullRequest(number int) (github.PullRequest, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, ok := h.prs[number]
	if !ok {
		return github.PullRequest{}, false
	}
	return *pr, true
}

// OpenPullRequests returns open pull requests ordered by number
func (h *FakeHost) OpenPullRequests() []github.PullRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	var open []github.PullRequest
	for _, number := range h.sortedNumbers() {
		if !h.closed[number] {
			open = append(open, *h.prs[number])
		}
	}
	return open
}

// PullRequestByTitle returns the most recent pull request with a title
func (h *FakeHost) PullRequestByTitle(title string) (github.PullRequest, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	numbers := h.sortedNumbers()
	for i := len(numbers) - 1; i >= 0; i-- {
		if pr := h.prs[numbers[i]]; pr.Title == title {
			return *pr, true
		}
	}
	return github.PullRequest{}, false
}

// IsClosed reports whether a pull request has been closed
func (h *FakeHost) IsClosed(number int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed[number]
}

// Mutations returns every write made so far
func (h *FakeHost) Mutations() []Mutation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Mutation(nil), h.mutations...)
}

// ResetMutations forgets recorded writes
func (h *FakeHost) ResetMutations() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mutations = nil
}

// store must be called with mu held
func (h *FakeHost) store(pr github.PullRequest) github.PullRequest {
	pr.Number = h.nextNumber
	h.nextNumber++
	pr.ID = "PR_" + strconv.Itoa(pr.Number)
	pr.Permalink = fmt.Sprintf("%s/pull/%d", h.repo.WebURL(), pr.Number)
	pr.CommitID = ""
	if parts, ok := h.codec.Decode(pr.HeadRefName); ok && !parts.IsRevision() {
		pr.CommitID = parts.CommitID
	}
	stored := pr
	h.prs[pr.Number] = &stored
	return stored
}

// lookup must be called with mu held
func (h *FakeHost) lookup(pr github.PullRequest) (*github.PullRequest, error) {
	stored, ok := h.prs[pr.Number]
	if !ok || !pr.Exists() {
		return nil, fmt.Errorf("pull request #%d not found", pr.Number)
	}
	if h.closed[pr.Number] {
		return nil, fmt.Errorf("pull request #%d is closed", pr.Number)
	}
	return stored, nil
}

// sortedNumbers must be called with mu held
func (h *FakeHost) sortedNumbers() []int {
	numbers := make([]int, 0, len(h.prs))
	for number := range h.prs {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

func (h *FakeHost) closeDeletedHeads() error {
	if h.Repo == nil {
		return nil
	}
	branches, err := h.Repo.RemoteBranches(h.Remote)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for number, pr := range h.prs {
		if _, ok := branches[pr.HeadRefName]; !ok {
			h.closed[number] = true
		}
	}
	return nil
}

func (h *FakeHost) observe() {
	if h.Observe != nil {
		h.Observe()
	}
}
