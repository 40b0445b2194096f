// Package tui provides the terminal side of prstack.
//
// It handles:
//   - Structured logging to the console and a rotating log file (Splog)
//   - Terminal styling and colors (using lipgloss and termenv)
//   - TTY detection and the yes/no confirmation prompt (using bubbletea)
package tui
