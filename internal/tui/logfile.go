package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns PRSTACK_LOG_FILE, or ~/.prstack/logs/prstack.log
func GetLogFilePath() string {
	if customPath := os.Getenv("PRSTACK_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "prstack.log"
	}
	return filepath.Join(homeDir, ".prstack", "logs", "prstack.log")
}
