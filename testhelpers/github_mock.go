package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockError is a canned error response for one endpoint
type MockError struct {
	Status  int
	Message string
}

// MockGitHubServerConfig holds the state served by a mock GitHub server.
// Handlers run on server goroutines, so tests read state through the
// accessor methods rather than the fields once the server is running.
type MockGitHubServerConfig struct {
	mu sync.Mutex

	// PRs maps PR numbers to PR data
	PRs map[int]*github.PullRequest
	// Reviews maps PR numbers to reviews, oldest first
	Reviews map[int][]*github.PullRequestReview
	// CheckRuns maps head SHAs to check runs
	CheckRuns map[string][]*github.CheckRun
	// Statuses maps head SHAs to commit statuses
	Statuses map[string][]*github.RepoStatus
	// ErrorResponses maps "METHOD path" to an error response
	ErrorResponses map[string]MockError
	// RateLimited is the number of upcoming requests answered with 429
	RateLimited int
	// DraftMutations records GraphQL draft toggles as "<mutation> <node id>"
	DraftMutations []string
	// Requests records every request as "METHOD path"
	Requests []string
	// Owner and Repo for the mock server
	Owner string
	Repo  string

	nextNumber int
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		PRs:            make(map[int]*github.PullRequest),
		Reviews:        make(map[int][]*github.PullRequestReview),
		CheckRuns:      make(map[string][]*github.CheckRun),
		Statuses:       make(map[string][]*github.RepoStatus),
		ErrorResponses: make(map[string]MockError),
		Owner:          "owner",
		Repo:           "repo",
	}
}

// AddPullRequest stores a PR built from data and returns it
func (c *MockGitHubServerConfig) AddPullRequest(data SamplePRData) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data.Number == 0 {
		data.Number = c.allocNumber()
	} else if data.Number > c.nextNumber {
		c.nextNumber = data.Number
	}
	if data.HTMLURL == "" {
		data.HTMLURL = c.htmlURL(data.Number)
	}
	pr := NewSamplePullRequest(data)
	c.PRs[data.Number] = pr
	return pr
}

// AddReview appends a review by user with state (APPROVED, CHANGES_REQUESTED, ...)
func (c *MockGitHubServerConfig) AddReview(number int, user, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reviews[number] = append(c.Reviews[number], &github.PullRequestReview{
		ID:    github.Int64(int64(len(c.Reviews[number]) + 1)),
		User:  &github.User{Login: github.String(user)},
		State: github.String(state),
	})
}

// AddCheckRun appends a check run for a head SHA
func (c *MockGitHubServerConfig) AddCheckRun(sha, name, status, conclusion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run := &github.CheckRun{
		ID:     github.Int64(int64(len(c.CheckRuns[sha]) + 1)),
		Name:   github.String(name),
		Status: github.String(status),
	}
	if conclusion != "" {
		run.Conclusion = github.String(conclusion)
	}
	c.CheckRuns[sha] = append(c.CheckRuns[sha], run)
}

// AddStatus appends a commit status for a head SHA
func (c *MockGitHubServerConfig) AddStatus(sha, context, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[sha] = append(c.Statuses[sha], &github.RepoStatus{
		Context: github.String(context),
		State:   github.String(state),
	})
}

// PullRequest returns a copy of the stored PR, or nil
func (c *MockGitHubServerConfig) PullRequest(number int) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	pr, ok := c.PRs[number]
	if !ok {
		return nil
	}
	return copyPR(pr)
}

// RequestLog returns the requests served so far
func (c *MockGitHubServerConfig) RequestLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Requests...)
}

// DraftMutationLog returns the GraphQL draft toggles served so far
func (c *MockGitHubServerConfig) DraftMutationLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.DraftMutations...)
}

func (c *MockGitHubServerConfig) allocNumber() int {
	c.nextNumber++
	return c.nextNumber
}

func (c *MockGitHubServerConfig) htmlURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", c.Owner, c.Repo, number)
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub API
// endpoints used by the review-host client
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	repoPath := "/repos/" + config.Owner + "/" + config.Repo
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+repoPath+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		var open []*github.PullRequest
		for _, pr := range config.PRs {
			if pr.GetState() == "open" {
				open = append(open, copyPR(pr))
			}
		}
		sort.Slice(open, func(i, j int) bool { return open[i].GetNumber() < open[j].GetNumber() })
		writePage(w, r, open)
	})

	mux.HandleFunc("POST "+repoPath+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		var newPR github.NewPullRequest
		if err := json.NewDecoder(r.Body).Decode(&newPR); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, pr := range config.PRs {
			if pr.GetState() == "open" && pr.GetHead().GetRef() == newPR.GetHead() {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
					"message": "Validation Failed",
					"errors":  []map[string]string{{"message": "A pull request already exists for " + newPR.GetHead() + "."}},
				})
				return
			}
		}

		number := config.allocNumber()
		pr := NewSamplePullRequest(SamplePRData{
			Number:  number,
			Title:   newPR.GetTitle(),
			Body:    newPR.GetBody(),
			Head:    newPR.GetHead(),
			Base:    newPR.GetBase(),
			HTMLURL: config.htmlURL(number),
			Draft:   newPR.GetDraft(),
		})
		config.PRs[number] = pr
		writeJSON(w, http.StatusCreated, pr)
	})

	mux.HandleFunc("GET "+repoPath+"/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		pr, ok := lookupPR(config, r)
		if !ok {
			http.Error(w, "PR not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, copyPR(pr))
	})

	mux.HandleFunc("PATCH "+repoPath+"/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		pr, ok := lookupPR(config, r)
		if !ok {
			http.Error(w, "PR not found", http.StatusNotFound)
			return
		}

		// The API sends simple fields like {"base": "branch-name"}
		var update struct {
			Title *string `json:"title,omitempty"`
			Body  *string `json:"body,omitempty"`
			Base  *string `json:"base,omitempty"`
			State *string `json:"state,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
			return
		}

		if update.Title != nil {
			pr.Title = update.Title
		}
		if update.Body != nil {
			pr.Body = update.Body
		}
		if update.Base != nil {
			pr.Base = &github.PullRequestBranch{Ref: update.Base}
		}
		if update.State != nil {
			pr.State = update.State
		}
		writeJSON(w, http.StatusOK, copyPR(pr))
	})

	mux.HandleFunc("GET "+repoPath+"/pulls/{number}/reviews", func(w http.ResponseWriter, r *http.Request) {
		number, _ := strconv.Atoi(r.PathValue("number"))
		writePage(w, r, config.Reviews[number])
	})

	mux.HandleFunc("GET "+repoPath+"/commits/{sha}/check-runs", func(w http.ResponseWriter, r *http.Request) {
		runs := config.CheckRuns[r.PathValue("sha")]
		writeJSON(w, http.StatusOK, &github.ListCheckRunsResults{
			Total:     github.Int(len(runs)),
			CheckRuns: runs,
		})
	})

	mux.HandleFunc("GET "+repoPath+"/commits/{sha}/status", func(w http.ResponseWriter, r *http.Request) {
		statuses := config.Statuses[r.PathValue("sha")]
		writeJSON(w, http.StatusOK, &github.CombinedStatus{
			State:      github.String(combinedState(statuses)),
			TotalCount: github.Int(len(statuses)),
			Statuses:   statuses,
		})
	})

	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		nodeID, _ := req.Variables["pullRequestId"].(string)

		toDraft := strings.Contains(req.Query, "convertPullRequestToDraft")
		mutation := "markPullRequestReadyForReview"
		if toDraft {
			mutation = "convertPullRequestToDraft"
		}

		for _, pr := range config.PRs {
			if pr.GetNodeID() == nodeID {
				pr.Draft = github.Bool(toDraft)
				config.DraftMutations = append(config.DraftMutations, mutation+" "+nodeID)
				writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{}})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"errors": []map[string]string{{"message": "Could not resolve to a node with the global id of '" + nodeID + "'"}},
		})
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		config.Requests = append(config.Requests, key)

		if config.RateLimited > 0 {
			config.RateLimited--
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Too Many Requests"})
			return
		}
		if mockErr, ok := config.ErrorResponses[key]; ok {
			writeJSON(w, mockErr.Status, map[string]string{"message": mockErr.Message})
			return
		}
		mux.ServeHTTP(w, r)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// NewMockGitHubClient creates a go-github client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) *github.Client {
	t.Helper()
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client
}

func lookupPR(config *MockGitHubServerConfig, r *http.Request) (*github.PullRequest, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		return nil, false
	}
	pr, ok := config.PRs[number]
	return pr, ok
}

// writePage serves one page of items, linking the next page the way GitHub does
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = 30
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	if end < len(items) {
		next := *r.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<http://%s%s>; rel="next"`, r.Host, next.RequestURI()))
	}

	result := items[start:end]
	if result == nil {
		result = []T{}
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyPR(pr *github.PullRequest) *github.PullRequest {
	prCopy := *pr
	if pr.Base != nil {
		baseCopy := *pr.Base
		prCopy.Base = &baseCopy
	}
	if pr.Head != nil {
		headCopy := *pr.Head
		prCopy.Head = &headCopy
	}
	return &prCopy
}

func combinedState(statuses []*github.RepoStatus) string {
	state := "success"
	if len(statuses) == 0 {
		return "pending"
	}
	for _, s := range statuses {
		switch s.GetState() {
		case "failure", "error":
			return "failure"
		case "pending":
			state = "pending"
		}
	}
	return state
}
