package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapstore/releastr/internal/config"
	adapters "github.com/zapstore/releastr/internal/domain-adapters/gateways"
	orchestrators "github.com/zapstore/releastr/internal/domain-orchestrators"
	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
	domainGateways "github.com/zapstore/releastr/internal/domain/interfaces/gateways"
	"github.com/zapstore/releastr/internal/external-adapters/metrics"
	"github.com/zapstore/releastr/internal/external-adapters/nostr"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the latest release of every configured app",
	Long: `Fetch the latest release of every Android app in the app file, content-address
its package, skip packages a relay already knows, and publish signed app, release
and file-metadata records. Without a signing key the records are built unsigned
and written to --out for an external signer.`,
	Example: `  releastr publish
  releastr publish --app amethyst --overwrite
  releastr publish --app amethyst --apk ./app-release.apk
  releastr publish --dry-run --out records.json`,
	RunE: runPublish,
}

var (
	publishApp         string
	publishAPK         string
	publishOverwrite   bool
	publishDryRun      bool
	publishConcurrency int
	publishOut         string
)

func init() {
	publishCmd.Flags().StringVar(&publishApp, "app", "", "Only process this alias (env RELEASTR_ONLY_APP, ONLY_PROCESS)")
	publishCmd.Flags().StringVar(&publishAPK, "apk", "", "Publish this local package instead of downloading (requires --app)")
	publishCmd.Flags().BoolVar(&publishOverwrite, "overwrite", false, "Publish even when the package is already on the relay")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Build records but do not publish them")
	publishCmd.Flags().IntVar(&publishConcurrency, "concurrency", 0, "Apps processed in parallel (env RELEASTR_CONCURRENCY)")
	publishCmd.Flags().StringVarP(&publishOut, "out", "o", "", "Write built records as JSON to this file")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(func(s *config.Settings) {
		if publishApp != "" {
			s.OnlyApp = publishApp
		}
		if publishAPK != "" {
			s.LocalAPK = publishAPK
		}
		s.Overwrite = s.Overwrite || publishOverwrite
		s.DryRun = s.DryRun || publishDryRun
		if publishConcurrency > 0 {
			s.Concurrency = publishConcurrency
		}
	})
	if err != nil {
		return err
	}
	if s.LocalAPK != "" && s.OnlyApp == "" {
		return fmt.Errorf("--apk requires --app")
	}

	logger, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apps, err := appRepository(s, logger).ListAppsByPlatform(ctx, entities.PlatformAndroid)
	if err != nil {
		return fmt.Errorf("failed to load apps: %w", err)
	}
	jobs := buildJobs(apps, s, logger)
	if len(jobs) == 0 {
		if s.OnlyApp != "" {
			return fmt.Errorf("app %s is not configured for android", s.OnlyApp)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ℹ️  No apps to process")
		return nil
	}

	signer, err := loadSigner(s)
	if err != nil {
		return err
	}
	if signer == nil {
		logger.Warn("No signing key configured, records will be left unsigned")
	}

	relay := nostr.NewRelayClient(s.RelayURL, logger)
	defer func() { _ = relay.Close() }()

	prom := metrics.NewProm("releastr")
	orch := newPublishOrchestrator(s, relay, signer, logger, prom)
	results := orch.Run(ctx, jobs)

	fmt.Fprint(cmd.OutOrStdout(), renderReport(results))
	logger.Debug("Run complete", interfaces.F("results", summaryLines(results)))

	if out := publishOut; out != "" {
		bundles := collectBundles(results, false)
		if err := writeBundles(out, bundles); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📁 Wrote %d record sets to %s\n", len(bundles), out)
	} else if bundles := collectBundles(results, true); len(bundles) > 0 {
		path := fmt.Sprintf("releastr-records-%d.json", time.Now().Unix())
		if err := writeBundles(path, bundles); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📁 Wrote %d unsigned record sets to %s\n", len(bundles), path)
	}

	if s.MetricsFile != "" {
		if err := prom.WriteTextfile(s.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", interfaces.F("path", s.MetricsFile), interfaces.F("error", err))
		}
	}

	report := buildReport(results)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d apps failed", len(report.Failed), report.Total)
	}
	return nil
}

// buildJobs selects the apps to run and resolves their owner keys
func buildJobs(apps []*entities.AppConfig, s *config.Settings, logger interfaces.Logger) []orchestrators.AppJob {
	var jobs []orchestrators.AppJob
	for _, app := range apps {
		if s.OnlyApp != "" && app.Alias != s.OnlyApp {
			continue
		}
		job := orchestrators.AppJob{Config: app}
		if s.OnlyApp != "" {
			job.LocalAPKPath = s.LocalAPK
		}
		if app.Npub != "" {
			pk, err := nostr.DecodePublicKey(app.Npub)
			if err != nil {
				logger.Warn("Ignoring invalid npub", interfaces.F("app", app.Alias), interfaces.F("error", err))
			} else {
				job.OwnerPublicKey = pk
			}
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func newPublishOrchestrator(
	s *config.Settings,
	relay domainGateways.RelayGateway,
	signer domainGateways.Signer,
	logger interfaces.Logger,
	m interfaces.Metrics,
) *orchestrators.PublishOrchestrator {
	deps := orchestrators.Collaborators{
		Repository:   adapters.NewHTTPGitHubGateway(s.GitHubToken, logger),
		Downloader:   adapters.NewDownloader(s.GitHubToken, logger),
		Addresser:    adapters.NewContentAddresser(s.StorageDir),
		Introspector: adapters.NewAPKIntrospector(adapters.NewExecRunner(2*time.Minute), s.AaptPath, s.ApksignerPath, logger),
		Relay:        relay,
		Signer:       signer,
	}
	if s.PullStoreMetadata {
		deps.Store = adapters.NewPlayStoreGateway(logger)
	}
	return orchestrators.NewPublishOrchestrator(deps, orchestrators.PublishOrchestratorConfig{
		StorageDir:        s.StorageDir,
		CDNBaseURL:        s.CDNBaseURL,
		Overwrite:         s.Overwrite,
		DryRun:            s.DryRun,
		PullRepoMetadata:  s.PullRepoMetadata,
		PullStoreMetadata: s.PullStoreMetadata,
		Concurrency:       s.Concurrency,
	}, interfaces.RealClock{}, logger, m)
}
