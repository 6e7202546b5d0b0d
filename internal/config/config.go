package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
)

// Config holds the settings shared by the packager commands.
type Config struct {
	// ProjectRoot is the working tree whose staged files are packaged.
	ProjectRoot string `yaml:"project_root" mapstructure:"project_root"`
	// UpdateDir is the update root, relative to ProjectRoot unless absolute.
	UpdateDir string `yaml:"update_dir" mapstructure:"update_dir"`
	// ApplyLog is the reserved apply-log filename excluded from staging.
	ApplyLog string `yaml:"apply_log" mapstructure:"apply_log"`
	// MetricsFile is an optional Prometheus textfile written after each run.
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
	// LogLevel is the minimum level of log output.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// VCS configures the version-control backend.
	VCS VCS `yaml:"vcs" mapstructure:"vcs"`
}

// VCS configures how the packager talks to git.
type VCS struct {
	// Backend selects the implementation: "cli" or "go-git".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Binary is the git executable used by the cli backend.
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Remote is the remote to push to. Empty uses the branch's upstream.
	Remote string `yaml:"remote,omitempty" mapstructure:"remote"`
	// Branch is the branch to push. Empty uses the current branch.
	Branch string `yaml:"branch,omitempty" mapstructure:"branch"`
	// AuthorName overrides the commit author name for the go-git backend.
	AuthorName string `yaml:"author_name,omitempty" mapstructure:"author_name"`
	// AuthorEmail overrides the commit author email for the go-git backend.
	AuthorEmail string `yaml:"author_email,omitempty" mapstructure:"author_email"`
}

const (
	// DefaultConfigFilename is the default filename for packager settings.
	DefaultConfigFilename = "update-packager.yaml"

	// EnvPrefix prefixes environment overrides, e.g. UPDATE_PACKAGER_VCS_BACKEND.
	EnvPrefix = "UPDATE_PACKAGER"

	// DotEnvFilename is loaded into the environment when present.
	DotEnvFilename = ".env"

	// BackendCLI runs the git executable.
	BackendCLI = "cli"

	// BackendGoGit uses the in-process go-git implementation.
	BackendGoGit = "go-git"

	// DefaultGitBinary is the executable used by the cli backend.
	DefaultGitBinary = "git"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownBackend is returned for an unsupported vcs.backend value.
	errUnknownBackend = errors.New("unknown vcs backend")
	// errUnknownLogLevel is returned for an unparsable log_level value.
	errUnknownLogLevel = errors.New("unknown log level")
	// errBadUpdateDir is returned when update_dir is empty or is the project root itself.
	errBadUpdateDir = errors.New("update_dir must name a directory other than the project root")
	// errBadApplyLog is returned when apply_log is not a plain filename.
	errBadApplyLog = errors.New("apply_log must be a relative path")
)

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		ProjectRoot: ".",
		UpdateDir:   release.DefaultUpdateDir,
		ApplyLog:    release.ApplyLogFilename,
		LogLevel:    "info",
		VCS: VCS{
			Backend: BackendCLI,
			Binary:  DefaultGitBinary,
		},
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	if err := godotenv.Load(DotEnvFilename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFilename, err)
	}

	v := newViper()

	_, statErr := os.Stat(filepath.Clean(path))

	switch {
	case statErr == nil:
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	case errors.Is(statErr, fs.ErrNotExist) && !explicit:
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("read settings: %w", statErr)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings, filling defaults for empty optional fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = defaults.ProjectRoot
	}

	if cfg.ApplyLog == "" {
		cfg.ApplyLog = defaults.ApplyLog
	}

	if cfg.VCS.Backend == "" {
		cfg.VCS.Backend = defaults.VCS.Backend
	}

	if cfg.VCS.Binary == "" {
		cfg.VCS.Binary = defaults.VCS.Binary
	}

	switch cfg.VCS.Backend {
	case BackendCLI, BackendGoGit:
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, cfg.VCS.Backend)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if dir := filepath.Clean(cfg.UpdateDir); cfg.UpdateDir == "" || dir == "." {
		return errBadUpdateDir
	}

	if !filepath.IsLocal(cfg.ApplyLog) {
		return fmt.Errorf("%w: %q", errBadApplyLog, cfg.ApplyLog)
	}

	return nil
}

// UpdateRoot resolves the update directory against the project root.
func (c *Config) UpdateRoot() string {
	if filepath.IsAbs(c.UpdateDir) {
		return filepath.Clean(c.UpdateDir)
	}

	return filepath.Join(c.ProjectRoot, c.UpdateDir)
}

// newViper returns a viper instance with defaults and environment bindings.
// Every key gets a default so AutomaticEnv can resolve it during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	defaults := Default()

	v.SetDefault("project_root", defaults.ProjectRoot)
	v.SetDefault("update_dir", defaults.UpdateDir)
	v.SetDefault("apply_log", defaults.ApplyLog)
	v.SetDefault("metrics_file", defaults.MetricsFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("vcs.backend", defaults.VCS.Backend)
	v.SetDefault("vcs.binary", defaults.VCS.Binary)
	v.SetDefault("vcs.remote", defaults.VCS.Remote)
	v.SetDefault("vcs.branch", defaults.VCS.Branch)
	v.SetDefault("vcs.author_name", defaults.VCS.AuthorName)
	v.SetDefault("vcs.author_email", defaults.VCS.AuthorEmail)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}
