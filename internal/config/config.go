package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/refname"
)

const (
	// DefaultRemote is the remote pushed to and fetched from
	DefaultRemote = "origin"
	// DefaultTarget is the branch stacks are merged into
	DefaultTarget = "main"
	// DefaultCommitIDLength is the length of generated commit ids
	DefaultCommitIDLength = 8
	// MinCommitIDLength and MaxCommitIDLength bound CommitIDLength
	MinCommitIDLength = 8
	MaxCommitIDLength = 20
	// DefaultPollInterval is the auto-merge polling delay
	DefaultPollInterval = 10 * time.Second
	// DefaultDontPushPattern marks the first commit that must stay local
	DefaultDontPushPattern = `^(dont[ -]?push)([^-_a-zA-Z0-9]|$)`

	// RepoConfigFile is the per-repository config file name
	RepoConfigFile = ".prstack.yml"
)

// Config is the immutable process-wide configuration
type Config struct {
	WorkingDirectory   string
	RemoteName         string
	RemoteBranchPrefix string
	TargetRef          string
	CommitIDLength     int
	PollInterval       time.Duration
	Backend            git.BackendKind
	// GitHubHost overrides the host parsed from the remote URL
	GitHubHost      string
	DontPushPattern string
	Verbose         bool
	NoColor         bool
}

// Default returns the built-in configuration for a working directory
func Default(workingDir string) Config {
	return Config{
		WorkingDirectory:   workingDir,
		RemoteName:         DefaultRemote,
		RemoteBranchPrefix: refname.DefaultPrefix,
		TargetRef:          DefaultTarget,
		CommitIDLength:     DefaultCommitIDLength,
		PollInterval:       DefaultPollInterval,
		Backend:            git.BackendCLI,
		DontPushPattern:    DefaultDontPushPattern,
	}
}

// RemoteTargetRef returns the remote-tracking ref of the target, e.g. origin/main
func (c Config) RemoteTargetRef() string {
	return c.RemoteName + "/" + c.TargetRef
}

// DontPushRegexp compiles DontPushPattern case-insensitively
func (c Config) DontPushRegexp() (*regexp.Regexp, error) {
	if c.DontPushPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + c.DontPushPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid dontPushPattern %q: %w", c.DontPushPattern, err)
	}
	return re, nil
}

// Validate checks the configuration and clamps CommitIDLength into range
func (c Config) Validate() (Config, error) {
	if c.RemoteName == "" {
		return c, fmt.Errorf("remote name must not be empty")
	}
	if c.TargetRef == "" {
		return c, fmt.Errorf("target ref must not be empty")
	}
	if c.RemoteBranchPrefix == "" || strings.HasSuffix(c.RemoteBranchPrefix, "/") {
		return c, fmt.Errorf("invalid branch prefix %q", c.RemoteBranchPrefix)
	}
	switch c.Backend {
	case git.BackendCLI, git.BackendGoGit:
	default:
		return c, fmt.Errorf("unknown git backend %q (must be %q or %q)", c.Backend, git.BackendCLI, git.BackendGoGit)
	}
	if c.PollInterval <= 0 {
		return c, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if _, err := c.DontPushRegexp(); err != nil {
		return c, err
	}

	if c.CommitIDLength < MinCommitIDLength {
		c.CommitIDLength = MinCommitIDLength
	}
	if c.CommitIDLength > MaxCommitIDLength {
		c.CommitIDLength = MaxCommitIDLength
	}
	return c, nil
}

// FileConfig is the YAML form of a config file; nil fields are unset
type FileConfig struct {
	Remote          *string `yaml:"remote,omitempty"`
	Target          *string `yaml:"target,omitempty"`
	Prefix          *string `yaml:"prefix,omitempty"`
	CommitIDLength  *int    `yaml:"commitIdLength,omitempty"`
	PollInterval    *string `yaml:"pollInterval,omitempty"`
	Backend         *string `yaml:"backend,omitempty"`
	GitHubHost      *string `yaml:"githubHost,omitempty"`
	DontPushPattern *string `yaml:"dontPushPattern,omitempty"`
}

// ReadFileConfig reads a YAML config file. A missing file is an empty config.
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &fc, nil
}

// WriteFileConfig writes a YAML config file
func WriteFileConfig(path string, fc *FileConfig) error {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (fc *FileConfig) applyTo(cfg *Config) error {
	if fc.Remote != nil {
		cfg.RemoteName = *fc.Remote
	}
	if fc.Target != nil {
		cfg.TargetRef = *fc.Target
	}
	if fc.Prefix != nil {
		cfg.RemoteBranchPrefix = *fc.Prefix
	}
	if fc.CommitIDLength != nil {
		cfg.CommitIDLength = *fc.CommitIDLength
	}
	if fc.PollInterval != nil {
		d, err := time.ParseDuration(*fc.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid pollInterval %q: %w", *fc.PollInterval, err)
		}
		cfg.PollInterval = d
	}
	if fc.Backend != nil {
		cfg.Backend = git.BackendKind(*fc.Backend)
	}
	if fc.GitHubHost != nil {
		cfg.GitHubHost = *fc.GitHubHost
	}
	if fc.DontPushPattern != nil {
		cfg.DontPushPattern = *fc.DontPushPattern
	}
	return nil
}

// Overrides are values from command line flags; empty strings are unset
type Overrides struct {
	Remote  string
	Target  string
	Prefix  string
	Backend string
	Verbose bool
	NoColor bool
}

// UserConfigPath returns PRSTACK_USER_CONFIG, or ~/.prstack.yml
func UserConfigPath() string {
	if p := os.Getenv("PRSTACK_USER_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, RepoConfigFile)
}

// RepoConfigPath returns the config file path inside a repository
func RepoConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, RepoConfigFile)
}

// Load builds the Config for repoRoot from every source in precedence order
func Load(repoRoot string, overrides Overrides) (Config, error) {
	cfg := Default(repoRoot)

	paths := []string{UserConfigPath(), RepoConfigPath(repoRoot)}
	for _, path := range paths {
		if path == "" {
			continue
		}
		fc, err := ReadFileConfig(path)
		if err != nil {
			return Config{}, err
		}
		if err := fc.applyTo(&cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if overrides.Remote != "" {
		cfg.RemoteName = overrides.Remote
	}
	if overrides.Target != "" {
		cfg.TargetRef = overrides.Target
	}
	if overrides.Prefix != "" {
		cfg.RemoteBranchPrefix = overrides.Prefix
	}
	if overrides.Backend != "" {
		cfg.Backend = git.BackendKind(overrides.Backend)
	}
	cfg.Verbose = cfg.Verbose || overrides.Verbose
	cfg.NoColor = cfg.NoColor || overrides.NoColor

	return cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRSTACK_REMOTE"); v != "" {
		cfg.RemoteName = v
	}
	if v := os.Getenv("PRSTACK_TARGET"); v != "" {
		cfg.TargetRef = v
	}
	if v := os.Getenv("PRSTACK_PREFIX"); v != "" {
		cfg.RemoteBranchPrefix = v
	}
	if v := os.Getenv("PRSTACK_BACKEND"); v != "" {
		cfg.Backend = git.BackendKind(v)
	}
	if os.Getenv("DEBUG") != "" {
		cfg.Verbose = true
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
}
