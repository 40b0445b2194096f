package git

import (
	"strings"
	"time"
)

// Commit is an immutable snapshot of a commit read from history.
// A rewrite (amend, cherry-pick) always produces a new Commit.
type Commit struct {
	Hash         string
	Parents      []string
	ShortMessage string
	FullMessage  string
	// ID is the value of the commit-id trailer, empty when the commit has none
	ID             string
	CommitterName  string
	CommitterEmail string
	CommitDate     time.Time
	AuthorDate     time.Time
}

// IsMerge reports whether the commit has more than one parent
func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// ShortHash returns the abbreviated hash used in user-facing output
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// newCommit fills the derived message fields of a commit
func newCommit(hash string, parents []string, message string) Commit {
	return Commit{
		Hash:         hash,
		Parents:      parents,
		ShortMessage: Subject(message),
		FullMessage:  message,
		ID:           GetTrailer(message, CommitIDTrailer),
	}
}

// RemoteBranch is the observed state of a branch on the remote
type RemoteBranch struct {
	Name   string
	Commit Commit
}

// RefSpec is a directive to push LocalRef to RemoteRef.
// A leading '+' on LocalRef forces the update; an empty LocalRef deletes RemoteRef.
type RefSpec struct {
	LocalRef  string
	RemoteRef string
}

// NewBranchRefSpec pushes a commit or ref to a branch on the remote
func NewBranchRefSpec(local, branch string) RefSpec {
	return RefSpec{LocalRef: local, RemoteRef: branchRef(branch)}
}

// NewDeleteRefSpec deletes a branch on the remote
func NewDeleteRefSpec(branch string) RefSpec {
	return RefSpec{RemoteRef: branchRef(branch)}
}

// ForcePush returns the forced variant of the refspec
func (r RefSpec) ForcePush() RefSpec {
	if r.IsForce() || r.IsDelete() {
		return r
	}
	return RefSpec{LocalRef: "+" + r.LocalRef, RemoteRef: r.RemoteRef}
}

// IsForce reports whether the refspec forces the update
func (r RefSpec) IsForce() bool {
	return strings.HasPrefix(r.LocalRef, "+")
}

// IsDelete reports whether the refspec deletes the remote ref
func (r RefSpec) IsDelete() bool {
	return r.LocalRef == ""
}

// String returns the wire format "<local>:<remote>"
func (r RefSpec) String() string {
	return r.LocalRef + ":" + r.RemoteRef
}

func branchRef(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}
