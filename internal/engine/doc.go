// Package engine keeps a local stack of commits in sync with a chain of
// pull requests.
//
// The stack is every commit between the remote-tracking target ref and a
// local object, oldest first. Each commit is identified by a commit-id
// trailer and pushed to its own remote branch; its pull request is based on
// the branch of the commit below it, or on the target ref for the oldest
// commit. The engine holds no state of its own: every operation re-reads the
// repository and the review host, so an interrupted operation is safe to
// run again.
package engine
