package github

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"prstack.dev/prstack/internal/git"
)

// DefaultHostname is the public GitHub host
const DefaultHostname = "github.com"

// ParseGitHubRemoteURL extracts hostname, owner and repo from a git remote URL.
// Supports both github.com and GitHub Enterprise URLs:
//   - https://github.com/owner/repo.git
//   - git@github.com:owner/repo.git
//   - ssh://git@github.company.com/owner/repo.git
func ParseGitHubRemoteURL(remoteURL string) (RepoInfo, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	remoteURL = strings.TrimSuffix(remoteURL, "/")
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	var hostname, path string
	switch {
	case strings.Contains(remoteURL, "://"):
		u, err := url.Parse(remoteURL)
		if err != nil {
			return RepoInfo{}, fmt.Errorf("invalid remote URL %q: %w", remoteURL, err)
		}
		hostname = u.Hostname()
		path = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(remoteURL, "@"):
		// scp-like: git@hostname:owner/repo
		hostAndPath := remoteURL[strings.Index(remoteURL, "@")+1:]
		var ok bool
		hostname, path, ok = strings.Cut(hostAndPath, ":")
		if !ok {
			return RepoInfo{}, fmt.Errorf("invalid SSH remote URL %q: missing ':'", remoteURL)
		}
	default:
		return RepoInfo{}, fmt.Errorf("unsupported remote URL %q", remoteURL)
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return RepoInfo{}, fmt.Errorf("invalid remote URL %q: path must be owner/repo", remoteURL)
	}
	info := RepoInfo{
		Hostname: hostname,
		Owner:    parts[len(parts)-2],
		Repo:     parts[len(parts)-1],
	}
	if info.Hostname == "" || info.Owner == "" || info.Repo == "" {
		return RepoInfo{}, fmt.Errorf("failed to parse hostname, owner, or repo from remote URL %q", remoteURL)
	}
	return info, nil
}

// GetGitHubToken reads the token from GITHUB_TOKEN, falling back to the gh CLI
func GetGitHubToken(ctx context.Context) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	output, err := git.RunGHCommand(ctx, "auth", "token")
	if err != nil {
		return "", fmt.Errorf("failed to get GitHub token (set GITHUB_TOKEN or run `gh auth login`): %w", err)
	}

	token := strings.TrimSpace(output)
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}
	return token, nil
}

// NewGitHubClient creates an authenticated go-github client for hostname.
// Hosts other than github.com are treated as GitHub Enterprise.
func NewGitHubClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if hostname != "" && hostname != DefaultHostname {
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}
	return client, nil
}

// graphQLURL derives the GraphQL endpoint from a REST base URL:
// https://api.github.com/ -> https://api.github.com/graphql,
// https://host/api/v3/ -> https://host/api/graphql
func graphQLURL(baseURL *url.URL) string {
	rel := "graphql"
	if strings.HasSuffix(baseURL.Path, "/v3/") {
		rel = "../graphql"
	}
	return baseURL.ResolveReference(&url.URL{Path: rel}).String()
}
