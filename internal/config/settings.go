// Package config holds the process-wide settings threaded into every component.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults
const (
	DefaultConfigPath  = "zapstore.yaml"
	DefaultStorageDir  = "/tmp"
	DefaultRelayURL    = "wss://relay.zap.store"
	DefaultCDNBaseURL  = "https://cdn.zap.store"
	DefaultConcurrency = 1
)

// Settings is the explicit configuration for one run
type Settings struct {
	ConfigPath string `validate:"required"`
	StorageDir string `validate:"required"`

	GitHubToken string
	RelayURL    string `validate:"required,url"`
	CDNBaseURL  string `validate:"required,url"`

	Overwrite bool
	OnlyApp   string
	LocalAPK  string

	SecretKey           string `validate:"excluded_with=SecretKeyFile"`
	SecretKeyFile       string
	SecretKeyPassphrase string

	Concurrency       int `validate:"min=1,max=64"`
	DryRun            bool
	PullRepoMetadata  bool
	PullStoreMetadata bool

	MetricsFile string
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=text json"`

	AaptPath      string
	ApksignerPath string
}

// Default returns settings with every default applied
func Default() *Settings {
	return &Settings{
		ConfigPath:        DefaultConfigPath,
		StorageDir:        DefaultStorageDir,
		RelayURL:          DefaultRelayURL,
		CDNBaseURL:        DefaultCDNBaseURL,
		Concurrency:       DefaultConcurrency,
		PullRepoMetadata:  true,
		PullStoreMetadata: true,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// FromEnv builds settings from environment lookups. RELEASTR_* names take
// precedence over the legacy unprefixed ones.
func FromEnv(lookup func(string) string) (*Settings, error) {
	s := Default()
	get := func(names ...string) string {
		for _, n := range names {
			if v := strings.TrimSpace(lookup(n)); v != "" {
				return v
			}
		}
		return ""
	}
	setString := func(dst *string, names ...string) {
		if v := get(names...); v != "" {
			*dst = v
		}
	}

	setString(&s.ConfigPath, "RELEASTR_CONFIG")
	setString(&s.StorageDir, "RELEASTR_STORAGE_DIR", "BLOSSOM_DIR")
	setString(&s.GitHubToken, "RELEASTR_GITHUB_TOKEN", "GITHUB_TOKEN")
	setString(&s.RelayURL, "RELEASTR_RELAY_URL")
	setString(&s.CDNBaseURL, "RELEASTR_CDN_URL")
	setString(&s.OnlyApp, "RELEASTR_ONLY_APP", "ONLY_PROCESS")
	setString(&s.LocalAPK, "RELEASTR_APK")
	setString(&s.SecretKey, "RELEASTR_SECRET_KEY", "NSEC")
	setString(&s.SecretKeyFile, "RELEASTR_SECRET_KEY_FILE")
	setString(&s.SecretKeyPassphrase, "RELEASTR_SECRET_KEY_PASSPHRASE")
	setString(&s.MetricsFile, "RELEASTR_METRICS_FILE")
	setString(&s.LogLevel, "RELEASTR_LOG_LEVEL")
	setString(&s.LogFormat, "RELEASTR_LOG_FORMAT")
	setString(&s.AaptPath, "RELEASTR_AAPT")
	setString(&s.ApksignerPath, "RELEASTR_APKSIGNER")

	s.Overwrite = flag(get("RELEASTR_OVERWRITE", "OVERWRITE"), s.Overwrite)
	s.DryRun = flag(get("RELEASTR_DRY_RUN"), s.DryRun)
	s.PullRepoMetadata = flag(get("RELEASTR_PULL_REPO_METADATA"), s.PullRepoMetadata)
	s.PullStoreMetadata = flag(get("RELEASTR_PULL_STORE_METADATA"), s.PullStoreMetadata)

	if v := get("RELEASTR_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RELEASTR_CONCURRENCY %q: %w", v, err)
		}
		s.Concurrency = n
	}

	s.LogLevel = strings.ToLower(s.LogLevel)
	s.LogFormat = strings.ToLower(s.LogFormat)
	s.CDNBaseURL = strings.TrimRight(s.CDNBaseURL, "/")
	return s, nil
}

// flag parses a boolean setting. Any set value that is not a recognized
// boolean counts as true, so OVERWRITE=yes behaves like OVERWRITE=1.
func flag(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// Validate checks field constraints
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// HasSecret reports whether a signing secret is configured
func (s *Settings) HasSecret() bool {
	return s.SecretKey != "" || s.SecretKeyFile != ""
}

// CDNURL returns the public URL of a stored file name
func (s *Settings) CDNURL(storedName string) string {
	return strings.TrimRight(s.CDNBaseURL, "/") + "/" + storedName
}
