// Package runtime provides the execution context for prstack commands.
//
// It loads configuration once per invocation and wires the git backend,
// the GitHub client, the logger and the stack engine together.
package runtime
