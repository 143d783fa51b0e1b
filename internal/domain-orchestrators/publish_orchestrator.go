// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
	"github.com/zapstore/releastr/internal/domain/interfaces/gateways"
	"github.com/zapstore/releastr/internal/domain/services"
)

// AppJob is one app to process. OwnerPublicKey is the decoded npub of the config, if any.
type AppJob struct {
	Config         *entities.AppConfig
	LocalAPKPath   string
	OwnerPublicKey string
}

// Collaborators are the gateways the orchestrator drives. Store and Signer are optional.
type Collaborators struct {
	Repository   gateways.RepositoryGateway
	Store        gateways.StoreGateway
	Downloader   gateways.Downloader
	Addresser    gateways.Addresser
	Introspector gateways.Introspector
	Relay        gateways.RelayGateway
	Signer       gateways.Signer
}

// PublishOrchestratorConfig holds configuration for the orchestrator
type PublishOrchestratorConfig struct {
	StorageDir        string
	CDNBaseURL        string
	Overwrite         bool
	DryRun            bool
	PullRepoMetadata  bool
	PullStoreMetadata bool
	Concurrency       int
	AssetRules        []services.ScoringRule
}

// PublishOrchestrator coordinates the per-app publication workflow
type PublishOrchestrator struct {
	deps    Collaborators
	config  PublishOrchestratorConfig
	dedup   *services.Deduplicator
	builder *services.RecordBuilder
	logger  interfaces.Logger
	metrics interfaces.Metrics
}

// NewPublishOrchestrator creates a new publish orchestrator
func NewPublishOrchestrator(
	deps Collaborators,
	config PublishOrchestratorConfig,
	clock interfaces.Clock,
	logger interfaces.Logger,
	metrics interfaces.Metrics,
) *PublishOrchestrator {
	if config.StorageDir == "" {
		config.StorageDir = os.TempDir()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.AssetRules == nil {
		config.AssetRules = services.DefaultAssetRules
	}
	if metrics == nil {
		metrics = interfaces.NoOpMetrics{}
	}
	logger = interfaces.OrNoOp(logger)

	return &PublishOrchestrator{
		deps:    deps,
		config:  config,
		dedup:   services.NewDeduplicator(deps.Relay, logger),
		builder: services.NewRecordBuilder(clock),
		logger:  logger,
		metrics: metrics,
	}
}

// Run processes every job and returns one result per job, in input order.
// A failing app never stops the others.
func (o *PublishOrchestrator) Run(ctx context.Context, jobs []AppJob) []*entities.AppResult {
	results := make([]*entities.AppResult, len(jobs))
	runID := uuid.NewString()
	o.logger.Info("Starting publish run",
		interfaces.F("run_id", runID),
		interfaces.F("apps", len(jobs)),
		interfaces.F("concurrency", o.config.Concurrency),
	)

	if o.config.Concurrency == 1 {
		for i, job := range jobs {
			results[i] = o.ProcessApp(ctx, job)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(o.config.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = o.ProcessApp(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ProcessApp executes the complete publication workflow for one app
func (o *PublishOrchestrator) ProcessApp(ctx context.Context, job AppJob) *entities.AppResult {
	start := time.Now()
	result := &entities.AppResult{}
	if job.Config != nil {
		result.Alias = job.Config.Alias
	}

	o.process(ctx, job, result)

	result.Duration = time.Since(start)
	o.metrics.ObserveApp(result.Status, result.Duration)
	for _, out := range result.Outcomes {
		o.metrics.ObservePublish(out.Kind, out.Accepted)
	}

	fields := []interfaces.Field{
		interfaces.F("app", result.Alias),
		interfaces.F("status", string(result.Status)),
		interfaces.F("duration", result.Duration.String()),
	}
	if result.Reason != "" {
		fields = append(fields, interfaces.F("reason", result.Reason))
	}
	if result.Status == entities.StatusFailed {
		o.logger.Error("App failed", append(fields, interfaces.F("error", result.Error))...)
	} else {
		o.logger.Info("App processed", fields...)
	}
	return result
}

func (o *PublishOrchestrator) process(ctx context.Context, job AppJob, result *entities.AppResult) {
	fail := func(err error) {
		result.Status = entities.StatusFailed
		result.Error = err
		result.Reason = err.Error()
	}

	cfg := job.Config
	if cfg == nil {
		fail(errors.New("no app configuration"))
		return
	}
	if cfg.Platform != "" && cfg.Platform != entities.PlatformAndroid {
		result.Status = entities.StatusSkipped
		result.Reason = fmt.Sprintf("platform %s is not supported", cfg.Platform)
		return
	}

	// Step 1: Resolve source
	if job.LocalAPKPath == "" && cfg.Repository == "" {
		result.Status = entities.StatusSkipped
		result.Reason = services.ErrNoArtifactSource.Error()
		return
	}
	var ref *entities.RepoRef
	if cfg.Repository != "" {
		r, err := services.ParseRepositoryRef(cfg.Repository)
		if err != nil {
			fail(err)
			return
		}
		ref = &r
	}

	// Step 2: Repository facts and release
	var repoDesc *entities.AppDescription
	var release *entities.ReleaseDescription
	var asset *entities.CandidateAsset
	if ref != nil {
		repoDesc = services.RepoFactsToApp(*ref, nil)
		if o.config.PullRepoMetadata {
			facts, err := o.deps.Repository.FetchRepoFacts(ctx, *ref)
			if err != nil {
				o.logger.Warn("Failed to fetch repository facts",
					interfaces.F("app", cfg.Alias), interfaces.F("error", err))
			} else {
				repoDesc = services.RepoFactsToApp(*ref, facts)
			}
		}

		rel, err := o.deps.Repository.FetchLatestRelease(ctx, *ref)
		switch {
		case err != nil && job.LocalAPKPath == "":
			fail(fmt.Errorf("failed to fetch latest release: %w", err))
			return
		case err != nil:
			o.logger.Warn("No repository release for local package",
				interfaces.F("app", cfg.Alias), interfaces.F("error", err))
		default:
			release = &entities.ReleaseDescription{
				TagName:   rel.TagName,
				Body:      rel.Body,
				CreatedAt: rel.CreatedAt,
				HTMLURL:   rel.HTMLURL,
			}
			if job.LocalAPKPath == "" {
				asset, err = services.SelectReleaseAsset(rel.Assets, cfg.APKRegex, o.config.AssetRules)
				if err != nil {
					fail(err)
					return
				}
				o.logger.Debug("Selected release asset",
					interfaces.F("app", cfg.Alias), interfaces.F("asset", asset.Name), interfaces.F("tag", rel.TagName))
			}
		}
	}

	// Step 3: URL soft dedup
	if asset != nil && !o.config.Overwrite {
		matches, err := o.dedup.FindByURL(ctx, asset.URL)
		if err != nil {
			fail(err)
			return
		}
		if services.Gate(matches, o.config.Overwrite) {
			result.Status = entities.StatusDuplicate
			result.Reason = fmt.Sprintf("%s already published", asset.URL)
			result.Duplicates = matches
			return
		}
	}

	// Step 4: Download
	var path string
	var err error
	if asset != nil {
		path, err = o.deps.Downloader.Download(ctx, asset.URL, o.config.StorageDir)
		if err != nil {
			fail(fmt.Errorf("failed to download %s: %w", asset.URL, err))
			return
		}
	} else {
		path, err = stage(job.LocalAPKPath, o.config.StorageDir)
		if err != nil {
			fail(err)
			return
		}
	}

	// Step 5: Content-address
	artifact, err := o.deps.Addresser.Address(ctx, path)
	if err != nil {
		fail(fmt.Errorf("failed to address package: %w", err))
		return
	}
	result.Artifact = artifact

	// Step 6: Digest hard dedup
	matches, err := o.dedup.FindByDigest(ctx, artifact.Digest)
	if err != nil {
		fail(err)
		return
	}
	if services.Gate(matches, o.config.Overwrite) {
		result.Status = entities.StatusDuplicate
		result.Reason = fmt.Sprintf("package %s already published", artifact.Digest)
		result.Duplicates = matches
		return
	}
	if len(matches) > 0 {
		o.logger.Warn("Publishing over existing records",
			interfaces.F("app", cfg.Alias), interfaces.F("digest", artifact.Digest), interfaces.F("existing", len(matches)))
	}

	// Step 7: Introspect
	facts, err := o.deps.Introspector.Introspect(ctx, artifact.StoragePath)
	if err != nil {
		fail(fmt.Errorf("failed to introspect package: %w", err))
		return
	}

	// Step 8: Icon and configured images
	explicit := cfg.Explicit()
	explicit.OwnerPublicKey = job.OwnerPublicKey
	explicit.Icon = o.resolveIcon(ctx, cfg, artifact.StoragePath, facts)
	explicit.Images = o.publishFiles(ctx, cfg.Alias, explicit.Images)

	// Step 9: Store facts
	storeDesc := o.storeFacts(ctx, cfg, facts)

	// Step 10: Normalize
	md, err := services.Normalize(services.NormalizeInput{
		Alias:      cfg.Alias,
		Explicit:   explicit,
		Repository: repoDesc,
		Store:      storeDesc,
		Release:    release,
		File:       facts,
	})
	if err != nil {
		fail(err)
		return
	}

	// Step 11: Build
	// The url tag carries the upstream asset URL so the soft gate in step 3
	// finds this release next run. Local packages only exist on the CDN.
	downloadURL := o.cdnURL(artifact.StoredName())
	if asset != nil {
		downloadURL = asset.URL
	}
	set, err := o.builder.Build(ctx, services.BuildInput{
		Metadata:    md,
		Artifact:    artifact,
		DownloadURL: downloadURL,
		Signer:      o.deps.Signer,
		PublicKey:   job.OwnerPublicKey,
	})
	if err != nil {
		fail(fmt.Errorf("failed to build records: %w", err))
		return
	}
	result.Records = set

	// Step 12: Publish
	if o.deps.Signer == nil || o.config.DryRun {
		result.Status = entities.StatusPartial
		if o.config.DryRun {
			result.Reason = "dry run"
		} else {
			result.Reason = "no signing key configured"
		}
		return
	}

	result.Outcomes = services.PublishRecords(ctx, o.deps.Relay, set)
	var rejected []string
	for _, out := range result.Outcomes {
		if !out.Accepted {
			rejected = append(rejected, fmt.Sprintf("%s: %s", out.Kind, out.Reason))
		}
	}
	if len(rejected) > 0 {
		fail(fmt.Errorf("relay rejected %s", strings.Join(rejected, "; ")))
		return
	}
	result.Status = entities.StatusPublished
}

// resolveIcon returns the public icon URL: the configured icon, else the
// highest-density raster icon inside the package. Failures only warn.
func (o *PublishOrchestrator) resolveIcon(ctx context.Context, cfg *entities.AppConfig, apkPath string, facts *entities.FileMetadataFacts) string {
	if cfg.Icon != "" {
		if urls := o.publishFiles(ctx, cfg.Alias, []string{cfg.Icon}); len(urls) > 0 {
			return urls[0]
		}
		return ""
	}

	entry, ok := services.SelectIcon(facts.IconEntries)
	if !ok {
		return ""
	}
	path, err := o.deps.Introspector.ExtractEntry(ctx, apkPath, entry, o.config.StorageDir)
	if err != nil {
		o.logger.Warn("Failed to extract icon", interfaces.F("app", cfg.Alias), interfaces.F("entry", entry), interfaces.F("error", err))
		return ""
	}
	return o.addressToURL(ctx, cfg.Alias, path)
}

// storeFacts scrapes the store listing and publishes its icon and screenshots.
// Any failure leaves the store source empty.
func (o *PublishOrchestrator) storeFacts(ctx context.Context, cfg *entities.AppConfig, facts *entities.FileMetadataFacts) *entities.AppDescription {
	if !o.config.PullStoreMetadata || o.deps.Store == nil {
		return nil
	}
	identifier := cfg.Identifier
	if identifier == "" {
		identifier = facts.Identifier
	}
	if identifier == "" {
		return nil
	}

	sf, err := o.deps.Store.FetchStoreFacts(ctx, identifier)
	if err != nil {
		o.logger.Warn("Failed to fetch store listing", interfaces.F("app", cfg.Alias), interfaces.F("error", err))
		return nil
	}
	desc := services.StoreFactsToApp(sf)
	if desc == nil {
		return nil
	}
	if sf.IconURL != "" {
		if urls := o.publishFiles(ctx, cfg.Alias, []string{sf.IconURL}); len(urls) > 0 {
			desc.Icon = urls[0]
		}
	}
	desc.Images = o.publishFiles(ctx, cfg.Alias, sf.ImageURLs)
	return desc
}

// publishFiles content-addresses local paths and remote files and returns their
// public URLs, dropping any that fail
func (o *PublishOrchestrator) publishFiles(ctx context.Context, alias string, sources []string) []string {
	var urls []string
	for _, src := range sources {
		var path string
		var err error
		if isRemote(src) {
			path, err = o.deps.Downloader.Download(ctx, src, o.config.StorageDir)
		} else {
			path, err = stage(src, o.config.StorageDir)
		}
		if err != nil {
			o.logger.Warn("Failed to fetch image", interfaces.F("app", alias), interfaces.F("source", src), interfaces.F("error", err))
			continue
		}
		if u := o.addressToURL(ctx, alias, path); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func (o *PublishOrchestrator) addressToURL(ctx context.Context, alias, path string) string {
	a, err := o.deps.Addresser.Address(ctx, path)
	if err != nil {
		o.logger.Warn("Failed to address file", interfaces.F("app", alias), interfaces.F("path", path), interfaces.F("error", err))
		return ""
	}
	return o.cdnURL(a.StoredName())
}

func (o *PublishOrchestrator) cdnURL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(o.config.CDNBaseURL, "/") + "/" + name
}

// stage copies a local input into the storage directory so addressing never moves user files
func stage(src, dir string) (string, error) {
	//nolint:gosec // G304: path comes from the app file or command line
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	out, err := os.CreateTemp(dir, "stage-*"+strings.ToLower(filepath.Ext(src)))
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to stage %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// Summary returns a one-line human-readable summary of the result
func Summary(r *entities.AppResult) string {
	switch r.Status {
	case entities.StatusPublished:
		return fmt.Sprintf("%s: published %d records in %v", r.Alias, len(r.Outcomes), r.Duration.Round(time.Millisecond))
	case entities.StatusPartial:
		return fmt.Sprintf("%s: built unsigned records (%s)", r.Alias, r.Reason)
	default:
		if r.Reason == "" {
			return fmt.Sprintf("%s: %s", r.Alias, r.Status)
		}
		return fmt.Sprintf("%s: %s (%s)", r.Alias, r.Status, r.Reason)
	}
}
