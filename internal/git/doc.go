// Package git provides the repository operations the stack engine needs.
//
// Backend abstracts them behind one interface with two implementations:
//   - CLIBackend runs the git executable for every operation
//   - GoGitBackend reads refs, history and status through go-git and
//     delegates writes (rewrites, branch moves, pushes) to CLIBackend
//
// The package also owns commit message trailer parsing and the commit-msg
// hook that stamps new commits with a commit-id trailer.
package git
