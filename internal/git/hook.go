package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommitMsgHook is the name of the hook that stamps new commits with an ID
const CommitMsgHook = "commit-msg"

const hookMarker = "Installed by prstack"

func hookScript(binary string) string {
	return fmt.Sprintf(`#!/bin/sh
# Git hook: %s
# %s - adds a %s trailer to new commits
exec %s hook %s "$@"
`, CommitMsgHook, hookMarker, CommitIDTrailer, binary, CommitMsgHook)
}

// HooksDir returns the hooks directory git uses for the repository,
// honoring core.hooksPath and linked worktrees
func HooksDir(ctx context.Context, workingDir string) (string, error) {
	dir, err := NewCommandRunner(workingDir).Run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("failed to locate hooks directory: %w", err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workingDir, dir)
	}
	return dir, nil
}

// InstallCommitMsgHook writes a commit-msg hook that delegates to binary.
// An existing hook not written by prstack is left alone unless force is set.
func InstallCommitMsgHook(ctx context.Context, workingDir, binary string, force bool) (string, error) {
	hooksDir, err := HooksDir(ctx, workingDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create hooks directory: %w", err)
	}

	hookPath := filepath.Join(hooksDir, CommitMsgHook)
	if content, err := os.ReadFile(hookPath); err == nil {
		if !IsPrstackHook(string(content)) && !force {
			return "", fmt.Errorf("%s already exists and was not installed by prstack (use --force to replace it)", hookPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", hookPath, err)
	}

	if err := os.WriteFile(hookPath, []byte(hookScript(binary)), 0o755); err != nil { //nolint:gosec // hooks must be executable
		return "", fmt.Errorf("failed to write %s: %w", hookPath, err)
	}
	return hookPath, nil
}

// IsPrstackHook reports whether a hook script was written by InstallCommitMsgHook
func IsPrstackHook(content string) bool {
	return strings.Contains(content, hookMarker)
}

// StampMessageFile adds a commit-id trailer to the commit message file git
// passes to the commit-msg hook. Messages that already carry an ID and
// messages that are empty once comments are removed are left untouched.
func StampMessageFile(path, id string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read commit message: %w", err)
	}

	message := stripComments(string(data))
	if strings.TrimSpace(message) == "" || GetTrailer(message, CommitIDTrailer) != "" {
		return false, nil
	}

	stamped := AddTrailer(message, CommitIDTrailer, id)
	if err := os.WriteFile(path, []byte(stamped), 0o644); err != nil { //nolint:gosec // commit message file
		return false, fmt.Errorf("failed to write commit message: %w", err)
	}
	return true, nil
}

// stripComments drops "#" lines and everything below a scissors line
func stripComments(message string) string {
	lines := strings.Split(message, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "# ------------------------ >8 ------------------------") {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
