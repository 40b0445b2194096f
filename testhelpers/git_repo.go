package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const textFileName = "test.txt"

// GitRepo is a real git repository in a temporary directory
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new repository in dir with main as the initial branch
func NewGitRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = gitEnv()
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w, output: %s", err, output)
	}

	repo := &GitRepo{Dir: dir}
	if err := repo.runGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "commit.gpgsign", "false"); err != nil {
		return nil, err
	}
	return repo, nil
}

// gitEnv keeps the developer's global git config out of tests
func gitEnv() []string {
	return append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
}

func (r *GitRepo) runGitCommand(args ...string) error {
	_, err := r.runGitCommandAndGetOutput(args...)
	return err
}

func (r *GitRepo) runGitCommandAndGetOutput(args ...string) (string, error) {
	return r.runGitCommandWithInput("", args...)
}

func (r *GitRepo) runGitCommandWithInput(input string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = gitEnv()
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(string(output)), nil
}

// RunGitCommand executes a git command in the repository
func (r *GitRepo) RunGitCommand(args ...string) error {
	return r.runGitCommand(args...)
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	return r.runGitCommandAndGetOutput(args...)
}

// CreateChange writes textValue to a file and optionally stages it
func (r *GitRepo) CreateChange(textValue string, prefix string, unstaged bool) error {
	fileName := textFileName
	if prefix != "" {
		fileName = prefix + "_" + fileName
	}
	filePath := filepath.Join(r.Dir, fileName)

	if err := os.WriteFile(filePath, []byte(textValue), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if unstaged {
		return nil
	}
	return r.runGitCommand("add", filePath)
}

// CreateChangeAndCommit writes a file named after prefix and commits it with
// textValue as the message
func (r *GitRepo) CreateChangeAndCommit(textValue string, prefix string) error {
	if err := r.CreateChange(textValue, prefix, false); err != nil {
		return err
	}
	return r.CommitWithMessage(textValue)
}

// CommitWithMessage commits the index with an exact message, bypassing hooks
func (r *GitRepo) CommitWithMessage(message string) error {
	_, err := r.runGitCommandWithInput(message, "commit", "--quiet", "--allow-empty", "--no-verify", "--cleanup=verbatim", "-F", "-")
	return err
}

// CommitWithHooks commits the index, running any installed hooks
func (r *GitRepo) CommitWithHooks(message string) error {
	_, err := r.runGitCommandWithInput(message, "commit", "--quiet", "--allow-empty", "-F", "-")
	return err
}

// CreateAndCheckoutBranch creates and checks out a new branch
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	return r.runGitCommand("checkout", "--quiet", "-b", name)
}

// CheckoutBranch checks out a branch
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.runGitCommand("checkout", "--quiet", name)
}

// CheckoutDetached checks out a revision with a detached HEAD
func (r *GitRepo) CheckoutDetached(rev string) error {
	return r.runGitCommand("checkout", "--quiet", "--detach", rev)
}

// CurrentBranchName returns the checked out branch, or "" when detached
func (r *GitRepo) CurrentBranchName() (string, error) {
	return r.runGitCommandAndGetOutput("branch", "--show-current")
}

// GetRevision returns the full hash of a revision
func (r *GitRepo) GetRevision(rev string) (string, error) {
	return r.runGitCommandAndGetOutput("rev-parse", rev)
}

// GetMessage returns the raw message of a revision
func (r *GitRepo) GetMessage(rev string) (string, error) {
	return r.runGitCommandAndGetOutput("log", "-1", "--format=%B", rev)
}

// ListSubjects returns the subjects in a revision range, oldest first
func (r *GitRepo) ListSubjects(revRange string) ([]string, error) {
	output, err := r.runGitCommandAndGetOutput("log", "--reverse", "--format=%s", revRange)
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

// Reorder rewrites the commits above base so that their subjects appear in
// the given order. Every subject in base..HEAD must be listed.
func (r *GitRepo) Reorder(base string, subjects ...string) error {
	output, err := r.runGitCommandAndGetOutput("log", "--reverse", "--format=%H%x1f%s", base+"..HEAD")
	if err != nil {
		return err
	}
	bySubject := make(map[string]string)
	for _, line := range splitLines(output) {
		hash, subject, _ := strings.Cut(line, "\x1f")
		bySubject[subject] = hash
	}
	if len(bySubject) != len(subjects) {
		return fmt.Errorf("reorder needs %d subjects, got %d", len(bySubject), len(subjects))
	}

	if err := r.runGitCommand("reset", "--quiet", "--hard", base); err != nil {
		return err
	}
	for _, subject := range subjects {
		hash, ok := bySubject[subject]
		if !ok {
			return fmt.Errorf("no commit with subject %q", subject)
		}
		if err := r.runGitCommand("cherry-pick", "--allow-empty", "--keep-redundant-commits", hash); err != nil {
			return err
		}
	}
	return nil
}

// AmendMessage rewrites the HEAD commit message without running hooks
func (r *GitRepo) AmendMessage(message string) error {
	_, err := r.runGitCommandWithInput(message, "commit", "--quiet", "--amend", "--allow-empty", "--no-verify", "--cleanup=verbatim", "-F", "-")
	return err
}

// MergeNoFF merges branch into HEAD, always creating a merge commit
func (r *GitRepo) MergeNoFF(branch string) error {
	return r.runGitCommand("merge", "--quiet", "--no-ff", "--no-edit", branch)
}

// CreateBareRemote creates a bare repository next to the repo and adds it as a remote
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	bareDir := r.Dir + "-" + name + ".git"

	cmd := exec.Command("git", "init", "--quiet", "--bare", "-b", "main", bareDir)
	cmd.Env = gitEnv()
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to create bare repo: %w, output: %s", err, output)
	}

	if err := r.runGitCommand("remote", "add", name, bareDir); err != nil {
		return "", fmt.Errorf("failed to add remote: %w", err)
	}
	return bareDir, nil
}

// PushBranch pushes a branch to a remote
func (r *GitRepo) PushBranch(remote, branch string) error {
	return r.runGitCommand("push", "--quiet", remote, branch)
}

// ForcePushRef force pushes a revision to a branch on the remote
func (r *GitRepo) ForcePushRef(remote, rev, branch string) error {
	return r.runGitCommand("push", "--quiet", "--force", remote, rev+":refs/heads/"+branch)
}

// Fetch fetches a remote, pruning deleted branches
func (r *GitRepo) Fetch(remote string) error {
	return r.runGitCommand("fetch", "--quiet", "--prune", remote)
}

// RemoteBranches lists branches on a remote as name -> hash, without relying
// on remote-tracking refs
func (r *GitRepo) RemoteBranches(remote string) (map[string]string, error) {
	output, err := r.runGitCommandAndGetOutput("ls-remote", "--heads", remote)
	if err != nil {
		return nil, err
	}
	branches := make(map[string]string)
	for _, line := range splitLines(output) {
		hash, ref, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		branches[strings.TrimPrefix(ref, "refs/heads/")] = hash
	}
	return branches, nil
}

// RemoteBranchNames returns the sorted branch names of a remote
func (r *GitRepo) RemoteBranchNames(remote string) ([]string, error) {
	branches, err := r.RemoteBranches(remote)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetLocalBranches returns all local branch names
func (r *GitRepo) GetLocalBranches() ([]string, error) {
	output, err := r.runGitCommandAndGetOutput("branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

// IsAncestor reports whether ancestor is reachable from descendant
func (r *GitRepo) IsAncestor(ancestor, descendant string) bool {
	return r.runGitCommand("merge-base", "--is-ancestor", ancestor, descendant) == nil
}

// HasChanges reports whether a revision range changes any file
func (r *GitRepo) HasChanges(base, head string) (bool, error) {
	output, err := r.runGitCommandAndGetOutput("diff", "--name-only", base, head)
	if err != nil {
		return false, err
	}
	return output != "", nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

// GetCommitCount returns the number of commits in from..to
func (r *GitRepo) GetCommitCount(from, to string) (int, error) {
	output, err := r.runGitCommandAndGetOutput("rev-list", "--count", from+".."+to)
	if err != nil {
		return 0, err
	}
	var count int
	if _, err := fmt.Sscanf(output, "%d", &count); err != nil {
		return 0, fmt.Errorf("failed to parse commit count: %w", err)
	}
	return count, nil
}
