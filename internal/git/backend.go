package git

import (
	"context"
	"fmt"
)

// Backend is the set of git operations the stack engine depends on.
// Two implementations exist: CLIBackend shells out to git, and
// GoGitBackend reads through go-git and delegates writes to the CLI.
type Backend interface {
	// Remote returns the name of the remote this backend pushes to and fetches from
	Remote() string
	// WorkingDir returns the repository working directory
	WorkingDir() string

	// Fetch updates remote-tracking refs, pruning deleted branches
	Fetch(ctx context.Context, remote string) error
	// LogRange returns the commits reachable from until but not since, oldest first
	LogRange(ctx context.Context, since, until string) ([]Commit, error)
	// IsWorkingDirectoryClean reports whether tracked files have no changes
	IsWorkingDirectoryClean(ctx context.Context) (bool, error)
	// GetRemoteBranches returns the remote-tracking branches of the remote
	GetRemoteBranches(ctx context.Context) ([]RemoteBranch, error)
	// ResolveRef resolves a ref or revision expression to a full commit hash
	ResolveRef(ctx context.Context, ref string) (string, error)
	// CurrentBranch returns the checked out branch, or "" when HEAD is detached
	CurrentBranch(ctx context.Context) (string, error)
	// RemoteURL returns the fetch URL of the remote
	RemoteURL(ctx context.Context) (string, error)

	// Branch creates or (with force) moves a local branch and returns its previous tip
	Branch(ctx context.Context, name, startPoint string, force bool) (*Commit, error)
	// DeleteBranches deletes local branches and returns the names deleted
	DeleteBranches(ctx context.Context, names []string, force bool) ([]string, error)
	// Checkout switches HEAD to a branch
	Checkout(ctx context.Context, branch string) error
	// Reset detaches HEAD at ref, discarding working tree changes
	Reset(ctx context.Context, ref string) error
	// CherryPick applies a commit onto HEAD and returns the new commit
	CherryPick(ctx context.Context, commit Commit) (Commit, error)
	// Commit creates a commit from the index with the given message and trailers
	Commit(ctx context.Context, message string, trailers []Trailer) (Commit, error)
	// Amend replaces the message of the HEAD commit
	Amend(ctx context.Context, message string) (Commit, error)
	// Push applies all refspecs to the remote atomically
	Push(ctx context.Context, refSpecs []RefSpec) error
}

// BackendKind selects a Backend implementation
type BackendKind string

const (
	// BackendCLI runs every operation through the git executable
	BackendCLI BackendKind = "cli"
	// BackendGoGit reads through go-git and writes through the git executable
	BackendGoGit BackendKind = "gogit"
)

// NewBackend creates the backend selected by kind
func NewBackend(kind BackendKind, workingDir, remote string) (Backend, error) {
	switch kind {
	case BackendCLI, "":
		return NewCLIBackend(workingDir, remote), nil
	case BackendGoGit:
		return NewGoGitBackend(workingDir, remote)
	default:
		return nil, fmt.Errorf("unknown git backend %q (must be %q or %q)", kind, BackendCLI, BackendGoGit)
	}
}
