package git

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	prerrors "prstack.dev/prstack/internal/errors"
)

// GoGitBackend reads repository state through go-git and delegates every
// write (branch moves, rewrites, pushes) to the git executable
type GoGitBackend struct {
	*CLIBackend
	repo *gogit.Repository
	// mu serializes go-git access; packfile reads are not safe for concurrent use
	mu sync.Mutex
}

// NewGoGitBackend opens the repository containing workingDir
func NewGoGitBackend(workingDir, remote string) (*GoGitBackend, error) {
	b := &GoGitBackend{CLIBackend: NewCLIBackend(workingDir, remote)}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

// open (re)opens the repository. go-git indexes packfiles once per open, so
// every read starts from a fresh handle to see packs written by the CLI.
// Must be called with mu held, except from the constructor.
func (b *GoGitBackend) open() error {
	repo, err := gogit.PlainOpenWithOptions(b.WorkingDir(), &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	b.repo = repo
	return nil
}

// LogRange returns since..until, oldest first
func (b *GoGitBackend) LogRange(_ context.Context, since, until string) ([]Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return nil, err
	}

	sinceHash, err := b.resolve(since)
	if err != nil {
		return nil, err
	}
	untilHash, err := b.resolve(until)
	if err != nil {
		return nil, err
	}

	excluded, err := b.ancestors(sinceHash)
	if err != nil {
		return nil, err
	}

	// depth-first post-order from until yields parents before children
	var ordered []*object.Commit
	visited := make(map[plumbing.Hash]bool)
	type frame struct {
		commit *object.Commit
		next   int
	}

	start, err := b.repo.CommitObject(untilHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", untilHash, err)
	}
	if excluded[untilHash] {
		return []Commit{}, nil
	}
	visited[untilHash] = true
	stack := []*frame{{commit: start}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.commit.ParentHashes) {
			parent := top.commit.ParentHashes[top.next]
			top.next++
			if visited[parent] || excluded[parent] {
				continue
			}
			visited[parent] = true
			pc, err := b.repo.CommitObject(parent)
			if err != nil {
				return nil, fmt.Errorf("failed to get commit %s: %w", parent, err)
			}
			stack = append(stack, &frame{commit: pc})
			continue
		}
		ordered = append(ordered, top.commit)
		stack = stack[:len(stack)-1]
	}

	commits := make([]Commit, 0, len(ordered))
	for _, c := range ordered {
		commits = append(commits, toCommit(c))
	}
	return commits, nil
}

// ancestors returns every commit reachable from hash, including hash
func (b *GoGitBackend) ancestors(hash plumbing.Hash) (map[plumbing.Hash]bool, error) {
	seen := make(map[plumbing.Hash]bool)
	queue := []plumbing.Hash{hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true

		commit, err := b.repo.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("failed to get commit %s: %w", h, err)
		}
		for _, parent := range commit.ParentHashes {
			if !seen[parent] {
				queue = append(queue, parent)
			}
		}
	}
	return seen, nil
}

// IsWorkingDirectoryClean reports whether tracked files are unmodified
func (b *GoGitBackend) IsWorkingDirectoryClean(_ context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return false, err
	}

	wt, err := b.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	for _, s := range status {
		if s.Staging == gogit.Untracked && s.Worktree == gogit.Untracked {
			continue
		}
		if s.Staging != gogit.Unmodified || s.Worktree != gogit.Unmodified {
			return false, nil
		}
	}
	return true, nil
}

// GetRemoteBranches lists the remote-tracking branches of the configured remote
func (b *GoGitBackend) GetRemoteBranches(_ context.Context) ([]RemoteBranch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return nil, err
	}

	refs, err := b.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	prefix := "refs/remotes/" + b.remote + "/"
	var branches []RemoteBranch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference || !ref.Name().IsRemote() {
			return nil
		}
		name, ok := strings.CutPrefix(ref.Name().String(), prefix)
		if !ok || name == "HEAD" {
			return nil
		}
		commit := Commit{Hash: ref.Hash().String()}
		if c, err := b.repo.CommitObject(ref.Hash()); err == nil {
			commit = toCommit(c)
		}
		branches = append(branches, RemoteBranch{Name: name, Commit: commit})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return branches, nil
}

// ResolveRef resolves ref to a full commit hash
func (b *GoGitBackend) ResolveRef(_ context.Context, ref string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return "", err
	}

	hash, err := b.resolve(ref)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// CurrentBranch returns the checked out branch, or "" when HEAD is detached
func (b *GoGitBackend) CurrentBranch(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return "", err
	}

	head, err := b.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// RemoteURL returns the first URL of the configured remote
func (b *GoGitBackend) RemoteURL(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return "", err
	}

	remote, err := b.repo.Remote(b.remote)
	if err != nil {
		return "", fmt.Errorf("failed to get remote %s: %w", b.remote, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", b.remote)
	}
	return urls[0], nil
}

// resolve must be called with mu held
func (b *GoGitBackend) resolve(ref string) (plumbing.Hash, error) {
	if r, err := b.repo.Reference(plumbing.ReferenceName(ref), true); err == nil {
		return b.peel(r.Hash())
	}
	hash, err := b.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, prerrors.NewPreconditionError(prerrors.ErrUnresolvableRef, "unable to resolve ref %q", ref)
	}
	return b.peel(*hash)
}

// peel follows annotated tags down to the commit they point at
func (b *GoGitBackend) peel(hash plumbing.Hash) (plumbing.Hash, error) {
	if tag, err := b.repo.TagObject(hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return plumbing.ZeroHash, prerrors.NewPreconditionError(prerrors.ErrUnresolvableRef, "tag %s does not point at a commit", hash)
		}
		return commit.Hash, nil
	}
	if _, err := b.repo.CommitObject(hash); err != nil {
		return plumbing.ZeroHash, prerrors.NewPreconditionError(prerrors.ErrUnresolvableRef, "%s is not a commit", hash)
	}
	return hash, nil
}

func toCommit(c *object.Commit) Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	commit := newCommit(c.Hash.String(), parents, c.Message)
	commit.CommitterName = c.Committer.Name
	commit.CommitterEmail = c.Committer.Email
	commit.CommitDate = c.Committer.When
	commit.AuthorDate = c.Author.When
	return commit
}
