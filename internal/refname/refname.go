// Package refname encodes and decodes the remote branch names that bind a
// branch to a target ref, a commit id, and an optional revision number.
//
// Names have the form "<prefix>/<targetRef>/<commitID>" for the current
// revision of a commit and "<prefix>/<targetRef>/<commitID>_<NN>" for the
// NN-th immutable revision snapshot (1-based, zero padded to two digits).
package refname

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultPrefix is the branch prefix used when none is configured
const DefaultPrefix = "prstack"

// Parts is the decoded form of a remote branch name.
// Revision is 0 for the current branch and >= 1 for revision snapshots.
type Parts struct {
	TargetRef string
	CommitID  string
	Revision  int
}

// IsRevision reports whether the decoded name is an immutable revision snapshot
func (p Parts) IsRevision() bool {
	return p.Revision > 0
}

// Codec encodes and decodes branch names for a single prefix
type Codec struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewCodec creates a Codec for the given prefix
func NewCodec(prefix string) *Codec {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	// Target refs may contain '/', so the target segment is greedy and the
	// commit id is whatever follows the final '/'.
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `/(.+)/(.+?)(?:_(\d+))?$`)
	return &Codec{prefix: prefix, pattern: pattern}
}

// Prefix returns the configured branch prefix
func (c *Codec) Prefix() string {
	return c.prefix
}

// Encode returns the branch name for the current revision of a commit
func (c *Codec) Encode(targetRef, commitID string) string {
	return fmt.Sprintf("%s/%s/%s", c.prefix, targetRef, commitID)
}

// EncodeRevision returns the branch name for the n-th revision snapshot of a commit
func (c *Codec) EncodeRevision(targetRef, commitID string, revision int) string {
	return fmt.Sprintf("%s/%s/%s_%02d", c.prefix, targetRef, commitID, revision)
}

// Canonical returns the current-revision branch name for decoded parts
func (c *Codec) Canonical(parts Parts) string {
	return c.Encode(parts.TargetRef, parts.CommitID)
}

// Decode parses a branch name. The second return value is false when the
// name was not produced by this codec.
func (c *Codec) Decode(name string) (Parts, bool) {
	m := c.pattern.FindStringSubmatch(name)
	if m == nil {
		return Parts{}, false
	}

	parts := Parts{TargetRef: m[1], CommitID: m[2]}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return Parts{}, false
		}
		parts.Revision = n
	}
	return parts, true
}
