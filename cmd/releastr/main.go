// Package main implements the releastr CLI: it turns repository releases into
// signed app, release and file-metadata records on a relay.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zapstore/releastr/internal/config"
	"github.com/zapstore/releastr/internal/domain/interfaces"
	"github.com/zapstore/releastr/internal/domain/interfaces/gateways"
	"github.com/zapstore/releastr/internal/external-adapters/logging"
	"github.com/zapstore/releastr/internal/external-adapters/nostr"
	"github.com/zapstore/releastr/internal/external-adapters/pgp"
	"github.com/zapstore/releastr/internal/external-adapters/yaml"
)

var rootCmd = &cobra.Command{
	Use:           "releastr",
	Short:         "Publish app releases to nostr relays",
	Long:          "releastr content-addresses release packages, deduplicates them against a relay, and publishes signed app, release and file-metadata records.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfigPath string
	flagStorageDir string
	flagRelayURL   string
	flagLogLevel   string
	flagLogFormat  string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfigPath, "config", "c", "", "App file (default zapstore.yaml, env RELEASTR_CONFIG)")
	pf.StringVar(&flagStorageDir, "storage-dir", "", "Directory content-addressed files are stored in (env RELEASTR_STORAGE_DIR, BLOSSOM_DIR)")
	pf.StringVar(&flagRelayURL, "relay", "", "Relay websocket URL (env RELEASTR_RELAY_URL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (env RELEASTR_LOG_LEVEL)")
	pf.StringVar(&flagLogFormat, "log-format", "", "text or json (env RELEASTR_LOG_FORMAT)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the environment, applies persistent flags, and validates
func loadSettings(apply ...func(*config.Settings)) (*config.Settings, error) {
	s, err := config.FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&s.ConfigPath, flagConfigPath)
	override(&s.StorageDir, flagStorageDir)
	override(&s.RelayURL, flagRelayURL)
	override(&s.LogLevel, flagLogLevel)
	override(&s.LogFormat, flagLogFormat)
	for _, fn := range apply {
		fn(s)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// newLogger writes logs to stderr so reports on stdout stay clean
func newLogger(s *config.Settings, w io.Writer) (interfaces.Logger, error) {
	l, err := logging.New(w, s.LogFormat, s.LogLevel)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// loadSigner returns nil (and no error) when no secret is configured
func loadSigner(s *config.Settings) (gateways.Signer, error) {
	if !s.HasSecret() {
		return nil, nil
	}
	secret := s.SecretKey
	if s.SecretKeyFile != "" {
		var err error
		secret, err = pgp.ReadSecret(s.SecretKeyFile, s.SecretKeyPassphrase)
		if err != nil {
			return nil, err
		}
	}
	signer, err := nostr.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func appRepository(s *config.Settings, logger interfaces.Logger) *yaml.AppConfigRepository {
	return yaml.NewAppConfigRepository(s.ConfigPath, logger)
}
