package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	adapters "github.com/zapstore/releastr/internal/domain-adapters/gateways"
	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/services"
	"github.com/zapstore/releastr/internal/external-adapters/nostr"
)

var checkCmd = &cobra.Command{
	Use:   "check <alias>",
	Short: "Check whether an app's latest package is already on the relay",
	Long: `Look up the latest repository release of an app, select its package, and run
the relay duplicate checks without downloading or publishing anything. With --apk
the local package's digest is checked as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var checkAPK string

func init() {
	checkCmd.Flags().StringVar(&checkAPK, "apk", "", "Also check this local package by digest")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := context.Background()
	out := cmd.OutOrStdout()

	app, err := appRepository(s, logger).GetApp(ctx, args[0], entities.PlatformAndroid)
	if err != nil {
		return err
	}

	relay := nostr.NewRelayClient(s.RelayURL, logger)
	defer func() { _ = relay.Close() }()
	dedup := services.NewDeduplicator(relay, logger)

	var q services.DedupQuery
	if app.Repository != "" {
		ref, err := services.ParseRepositoryRef(app.Repository)
		if err != nil {
			return err
		}
		release, err := adapters.NewHTTPGitHubGateway(s.GitHubToken, logger).FetchLatestRelease(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to fetch latest release: %w", err)
		}
		asset, err := services.SelectReleaseAsset(release.Assets, app.APKRegex, services.DefaultAssetRules)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "📦 %s %s: %s\n", ref.Slug(), release.TagName, asset.Name)
		q.URL = asset.URL
	}
	if checkAPK != "" {
		if q.Digest, err = adapters.Digest(checkAPK); err != nil {
			return err
		}
	}
	if q.URL == "" && q.Digest == "" {
		return fmt.Errorf("%s has no repository, pass --apk to check a local package", app.Alias)
	}

	matches, err := dedup.AlreadyPublished(ctx, q)
	if err != nil {
		return err
	}
	printMatches(out, q, matches)

	if len(matches) > 0 {
		fmt.Fprintf(out, "⚠️  %s is already published, publish would skip it unless --overwrite is set\n", app.Alias)
	} else {
		fmt.Fprintf(out, "✅ %s would be published\n", app.Alias)
	}
	return nil
}

func printMatches(w io.Writer, q services.DedupQuery, matches []*entities.PublicationRecord) {
	if q.URL != "" {
		fmt.Fprintf(w, "  url %s\n", q.URL)
	}
	if q.Digest != "" {
		fmt.Fprintf(w, "  digest %s\n", q.Digest)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "  no prior records")
		return
	}
	fmt.Fprintf(w, "  %d prior record(s)\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(w, "    - %s by %s\n", m.ID, m.PubKey)
	}
}
