package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	prerrors "prstack.dev/prstack/internal/errors"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	// logFormat renders one commit per record: hash, parents, committer name,
	// committer email, committer time, author time, raw message
	logFormat = "%H%x1f%P%x1f%cn%x1f%ce%x1f%ct%x1f%at%x1f%B%x1e"
)

// CLIBackend implements Backend by running the git executable
type CLIBackend struct {
	runner *CommandRunner
	remote string
}

// NewCLIBackend creates a CLIBackend for the repository in workingDir
func NewCLIBackend(workingDir, remote string) *CLIBackend {
	if remote == "" {
		remote = "origin"
	}
	return &CLIBackend{
		runner: NewCommandRunner(workingDir),
		remote: remote,
	}
}

// Remote returns the configured remote name
func (b *CLIBackend) Remote() string {
	return b.remote
}

// WorkingDir returns the repository working directory
func (b *CLIBackend) WorkingDir() string {
	return b.runner.WorkingDir()
}

// Fetch fetches the remote and prunes deleted remote-tracking branches
func (b *CLIBackend) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = b.remote
	}
	if _, err := b.runner.Run(ctx, "fetch", "--prune", "--quiet", remote); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}

// LogRange returns since..until, oldest first
func (b *CLIBackend) LogRange(ctx context.Context, since, until string) ([]Commit, error) {
	sinceHash, err := b.ResolveRef(ctx, since)
	if err != nil {
		return nil, err
	}
	untilHash, err := b.ResolveRef(ctx, until)
	if err != nil {
		return nil, err
	}

	output, err := b.runner.RunRaw(ctx, "log", "--topo-order", "--reverse", "--format="+logFormat, sinceHash+".."+untilHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read commits %s..%s: %w", since, until, err)
	}
	return parseLog(output)
}

// IsWorkingDirectoryClean reports whether tracked files are unmodified
func (b *CLIBackend) IsWorkingDirectoryClean(ctx context.Context) (bool, error) {
	output, err := b.runner.Run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	return output == "", nil
}

// GetRemoteBranches lists the remote-tracking branches of the configured remote
func (b *CLIBackend) GetRemoteBranches(ctx context.Context) ([]RemoteBranch, error) {
	prefix := "refs/remotes/" + b.remote + "/"
	lines, err := b.runner.RunLines(ctx, "for-each-ref", "--format=%(refname)%1f%(objectname)%1f%(subject)", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote branches: %w", err)
	}

	branches := make([]RemoteBranch, 0, len(lines))
	for _, line := range lines {
		fields := strings.SplitN(line, fieldSep, 3)
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimPrefix(fields[0], prefix)
		if name == "HEAD" {
			continue
		}
		commit := Commit{Hash: fields[1]}
		if len(fields) == 3 {
			commit.ShortMessage = fields[2]
		}
		branches = append(branches, RemoteBranch{Name: name, Commit: commit})
	}
	return branches, nil
}

// ResolveRef resolves ref to a full commit hash
func (b *CLIBackend) ResolveRef(ctx context.Context, ref string) (string, error) {
	hash, err := b.runner.Run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil || hash == "" {
		return "", prerrors.NewPreconditionError(prerrors.ErrUnresolvableRef, "unable to resolve ref %q", ref)
	}
	return hash, nil
}

// CurrentBranch returns the checked out branch, or "" when HEAD is detached
func (b *CLIBackend) CurrentBranch(ctx context.Context) (string, error) {
	name, err := b.runner.Run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		return "", nil //nolint:nilerr // detached HEAD
	}
	return name, nil
}

// RemoteURL returns the fetch URL of the configured remote
func (b *CLIBackend) RemoteURL(ctx context.Context) (string, error) {
	url, err := b.runner.Run(ctx, "remote", "get-url", b.remote)
	if err != nil {
		return "", fmt.Errorf("failed to get URL of remote %s: %w", b.remote, err)
	}
	return url, nil
}

// Branch creates or moves a local branch and returns its previous tip, if any
func (b *CLIBackend) Branch(ctx context.Context, name, startPoint string, force bool) (*Commit, error) {
	var previous *Commit
	if hash, err := b.runner.Run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name); err == nil && hash != "" {
		commit, err := b.readCommit(ctx, hash)
		if err != nil {
			return nil, err
		}
		previous = &commit
	}

	args := []string{"branch"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, name, startPoint)
	if _, err := b.runner.Run(ctx, args...); err != nil {
		return nil, fmt.Errorf("failed to create branch %s at %s: %w", name, startPoint, err)
	}
	return previous, nil
}

// DeleteBranches deletes local branches
func (b *CLIBackend) DeleteBranches(ctx context.Context, names []string, force bool) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	flag := "--delete"
	if force {
		flag = "-D"
	}
	args := append([]string{"branch", flag}, names...)
	if _, err := b.runner.Run(ctx, args...); err != nil {
		return nil, fmt.Errorf("failed to delete branches: %w", err)
	}
	return names, nil
}

// Checkout switches HEAD to a branch
func (b *CLIBackend) Checkout(ctx context.Context, branch string) error {
	if _, err := b.runner.Run(ctx, "checkout", "--quiet", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// Reset detaches HEAD at ref
func (b *CLIBackend) Reset(ctx context.Context, ref string) error {
	if _, err := b.runner.Run(ctx, "checkout", "--quiet", "--detach", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// CherryPick applies commit onto HEAD, keeping commits that become empty
func (b *CLIBackend) CherryPick(ctx context.Context, commit Commit) (Commit, error) {
	if _, err := b.runner.Run(ctx, "cherry-pick", "--keep-redundant-commits", commit.Hash); err != nil {
		_, _ = b.runner.Run(ctx, "cherry-pick", "--abort")
		return Commit{}, fmt.Errorf("failed to cherry-pick %s: %w", commit.ShortHash(), err)
	}
	return b.readCommit(ctx, "HEAD")
}

// Commit creates a commit from the index
func (b *CLIBackend) Commit(ctx context.Context, message string, trailers []Trailer) (Commit, error) {
	for _, t := range trailers {
		message = AddTrailer(message, t.Key, t.Value)
	}
	if _, err := b.runner.RunWithInput(ctx, message, "commit", "--quiet", "--allow-empty", "-F", "-"); err != nil {
		return Commit{}, fmt.Errorf("failed to commit: %w", err)
	}
	return b.readCommit(ctx, "HEAD")
}

// Amend replaces the message of the HEAD commit
func (b *CLIBackend) Amend(ctx context.Context, message string) (Commit, error) {
	if _, err := b.runner.RunWithInput(ctx, message, "commit", "--quiet", "--amend", "--allow-empty", "--no-verify", "-F", "-"); err != nil {
		return Commit{}, fmt.Errorf("failed to amend commit: %w", err)
	}
	return b.readCommit(ctx, "HEAD")
}

// Push applies refSpecs atomically: either every ref is updated or none is
func (b *CLIBackend) Push(ctx context.Context, refSpecs []RefSpec) error {
	if len(refSpecs) == 0 {
		return nil
	}
	args := []string{"push", "--atomic", "--porcelain", b.remote}
	for _, spec := range refSpecs {
		args = append(args, spec.String())
	}

	output, err := b.runner.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", prerrors.ErrPushRejected, err)
	}
	return checkPushStatus(output)
}

// checkPushStatus scans porcelain push output for rejected refs
func checkPushStatus(output string) error {
	var rejected []string
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) >= 3 {
			rejected = append(rejected, fields[1]+" "+fields[2])
		} else {
			rejected = append(rejected, line)
		}
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", prerrors.ErrPushRejected, strings.Join(rejected, ", "))
	}
	return nil
}

// readCommit reads a single commit
func (b *CLIBackend) readCommit(ctx context.Context, rev string) (Commit, error) {
	output, err := b.runner.RunRaw(ctx, "log", "-1", "--format="+logFormat, rev)
	if err != nil {
		return Commit{}, fmt.Errorf("failed to read commit %s: %w", rev, err)
	}
	commits, err := parseLog(output)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) != 1 {
		return Commit{}, fmt.Errorf("failed to read commit %s", rev)
	}
	return commits[0], nil
}

// parseLog parses records produced with logFormat
func parseLog(output string) ([]Commit, error) {
	var commits []Commit
	for _, record := range strings.Split(output, recordSep) {
		record = strings.TrimLeft(record, "\r\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 7)
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed log record: %q", record)
		}

		var parents []string
		if fields[1] != "" {
			parents = strings.Fields(fields[1])
		}
		commit := newCommit(fields[0], parents, fields[6])
		commit.CommitterName = fields[2]
		commit.CommitterEmail = fields[3]
		commit.CommitDate = parseUnix(fields[4])
		commit.AuthorDate = parseUnix(fields[5])
		commits = append(commits, commit)
	}
	return commits, nil
}

func parseUnix(s string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
