// Package config resolves the repocheck home directory layout and the GitHub
// credential used by the API client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingToken is returned when no GitHub token can be resolved. The API
// client refuses to run unauthenticated, so this is a fatal configuration
// error for any review.
var ErrMissingToken = errors.New(
	"no GitHub token configured: set GITHUB_TOKEN in the environment, add it to a .env file, " +
		"or put 'github_token: <token>' in " + filepath.Join("~", ".repocheck", "config.yaml"))

// Settings holds the resolved runtime configuration.
type Settings struct {
	GitHubToken string `mapstructure:"github_token"`
	// RateLimit is the GitHub API call budget per hour.
	RateLimit int `mapstructure:"rate_limit"`
}

// Load resolves settings from, in increasing precedence: config.yaml under the
// repocheck home, a .env file in the working directory, and the process
// environment.
func Load() (*Settings, error) {
	// Best-effort .env load; absence is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	// A default registers the key so AutomaticEnv values survive Unmarshal.
	v.SetDefault("github_token", "")
	v.SetDefault("rate_limit", 5000)

	if home, err := Home(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("repocheck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// GITHUB_TOKEN without the prefix is the conventional spelling.
	if s.GitHubToken == "" {
		s.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}
	return &s, nil
}

// Token returns the configured GitHub token or ErrMissingToken.
func (s *Settings) Token() (string, error) {
	if s.GitHubToken == "" {
		return "", ErrMissingToken
	}
	return s.GitHubToken, nil
}

// Home returns the repocheck home directory
func Home() (string, error) {
	if home := os.Getenv("REPOCHECK_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".repocheck"), nil
}

// EnsureHome creates the repocheck home directory if it doesn't exist
func EnsureHome() (string, error) {
	homeDir, err := Home()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(homeDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create repocheck home directory: %v", err)
	}
	return homeDir, nil
}

func ensureSubdir(name string) (string, error) {
	homeDir, err := EnsureHome()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %v", name, err)
	}
	return dir, nil
}

// MetadataCacheDir returns the on-disk repository metadata cache directory.
func MetadataCacheDir() (string, error) {
	return ensureSubdir("metadata")
}

// ReposDir returns the directory holding materialized repository checkouts.
func ReposDir() (string, error) {
	return ensureSubdir("repos")
}

// ReviewsDir returns the directory holding cached review results.
func ReviewsDir() (string, error) {
	return ensureSubdir("reviews")
}
