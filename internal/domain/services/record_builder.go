package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
	"github.com/zapstore/releastr/internal/domain/interfaces/gateways"
)

// Placeholders embedded in partial records until an external signer resolves them
const (
	PendingFileMetadataID = "<pending:file-metadata-id>"
	PendingAuthorKey      = "<pending:author-pubkey>"
)

// ErrAuthorMismatch is returned when finalizing with a key other than the one records were built for
var ErrAuthorMismatch = errors.New("record author does not match signer")

// BuildInput holds everything needed to assemble one record set.
// App.Icon and App.Images must already be public URLs.
type BuildInput struct {
	Metadata    *NormalizedMetadata
	Artifact    *entities.CanonicalArtifact
	DownloadURL string

	// Signer finalizes the records when set. PublicKey is a pre-supplied
	// identity used for owner tags when there is no signer.
	Signer    gateways.Signer
	PublicKey string
}

// RecordBuilder assembles App, Release and FileMetadata records
type RecordBuilder struct {
	clock interfaces.Clock
}

// NewRecordBuilder creates a record builder; a nil clock uses the system time
func NewRecordBuilder(clock interfaces.Clock) *RecordBuilder {
	if clock == nil {
		clock = interfaces.RealClock{}
	}
	return &RecordBuilder{clock: clock}
}

// Build constructs the three records in dependency order: FileMetadata, App, Release.
// With a signer every record is finalized; otherwise all three are partial and the
// Release references FileMetadata through PendingFileMetadataID.
func (b *RecordBuilder) Build(ctx context.Context, in BuildInput) (*entities.RecordSet, error) {
	if in.Metadata == nil {
		return nil, fmt.Errorf("build records: no metadata")
	}
	if in.Artifact == nil || in.Artifact.Digest == "" {
		return nil, fmt.Errorf("build records: artifact is not content-addressed")
	}
	if in.DownloadURL == "" {
		return nil, fmt.Errorf("build records: no download URL for %s", in.Artifact.Digest)
	}

	pubkey := in.PublicKey
	if in.Signer != nil {
		pubkey = in.Signer.PublicKey()
	}
	if pubkey == "" {
		pubkey = in.Metadata.App.OwnerPublicKey
	}

	set := &entities.RecordSet{}
	var err error

	// Step 1: FileMetadata
	set.FileMetadata, err = b.buildFileMetadata(in, pubkey)
	if err != nil {
		return nil, err
	}

	// Step 2: App
	set.App, err = b.buildApp(in.Metadata, pubkey)
	if err != nil {
		return nil, err
	}

	// Step 3: Release needs some FileMetadata identity, final or pending
	fileID := PendingFileMetadataID
	if in.Signer != nil {
		if err := in.Signer.Sign(ctx, set.FileMetadata); err != nil {
			return nil, fmt.Errorf("sign file metadata: %w", err)
		}
		fileID = set.FileMetadata.ID
	}
	author := pubkey
	if author == "" {
		author = PendingAuthorKey
	}
	set.Release, err = b.buildRelease(in.Metadata, fileID, author)
	if err != nil {
		return nil, err
	}

	// Step 4: finalize the rest, or leave everything partial
	if in.Signer != nil {
		if err := in.Signer.Sign(ctx, set.Release); err != nil {
			return nil, fmt.Errorf("sign release: %w", err)
		}
		if err := in.Signer.Sign(ctx, set.App); err != nil {
			return nil, fmt.Errorf("sign app: %w", err)
		}
	}

	return set, nil
}

func (b *RecordBuilder) buildFileMetadata(in BuildInput, pubkey string) (*entities.PublicationRecord, error) {
	md := in.Metadata
	size := in.Artifact.Size
	if size <= 0 {
		size = md.File.SizeBytes
	}

	tb := NewTagBuilder(entities.KindFileMetadata).
		Add(TagURL, in.DownloadURL).
		Add(TagMediaType, entities.APKMediaType).
		Add(TagDigest, in.Artifact.Digest).
		Add(TagSize, strconv.FormatInt(size, 10)).
		AddOptional(TagVersion, md.File.VersionName).
		AddOptional(TagVersionCode, md.File.VersionCode).
		AddOptional(TagMinSDK, md.File.MinPlatformVersion).
		AddOptional(TagTargetSDK, md.File.TargetPlatformVersion).
		AddEach(TagSignatureHash, md.File.SignatureDigests).
		AddEach(TagArch, md.File.Architectures).
		AddOptional(TagRepository, md.App.Repository).
		AddOptional(TagImage, md.App.Icon)
	addOwner(tb, pubkey)

	tags, err := tb.Tags()
	if err != nil {
		return nil, fmt.Errorf("file metadata tags: %w", err)
	}

	return &entities.PublicationRecord{
		Kind:      entities.KindFileMetadata,
		Content:   strings.TrimSpace(md.App.Name + " " + firstNonEmpty(md.File.VersionName, md.Release.TagName)),
		CreatedAt: b.releaseTime(md.Release),
		Tags:      tags,
	}, nil
}

func (b *RecordBuilder) buildApp(md *NormalizedMetadata, pubkey string) (*entities.PublicationRecord, error) {
	app := md.App
	tb := NewTagBuilder(entities.KindApp).
		Add(TagIdentifier, app.Identifier).
		Add(TagName, app.Name).
		AddOptional(TagRepository, app.Repository).
		AddOptional(TagIcon, app.Icon).
		AddEach(TagImage, app.Images).
		AddOptional(TagURL, app.Homepage)
	addOwner(tb, pubkey)
	tb.AddEach(TagTopic, app.Topics).
		AddIf(app.StarCount != nil, TagStars, itoa(app.StarCount)).
		AddIf(app.ForkCount != nil, TagForks, itoa(app.ForkCount)).
		AddOptional(TagLicense, app.License)

	tags, err := tb.Tags()
	if err != nil {
		return nil, fmt.Errorf("app tags: %w", err)
	}

	return &entities.PublicationRecord{
		Kind:      entities.KindApp,
		Content:   app.Description,
		CreatedAt: b.clock.Now().Unix(),
		Tags:      tags,
	}, nil
}

func (b *RecordBuilder) buildRelease(md *NormalizedMetadata, fileID, author string) (*entities.PublicationRecord, error) {
	tags, err := NewTagBuilder(entities.KindRelease).
		Add(TagIdentifier, ReleaseIdentifier(md.App.Identifier, md.Release.TagName)).
		AddOptional(TagURL, md.Release.HTMLURL).
		Add(TagEvent, fileID).
		Add(TagAddress, AppAddress(author, md.App.Identifier)).
		Tags()
	if err != nil {
		return nil, fmt.Errorf("release tags: %w", err)
	}

	return &entities.PublicationRecord{
		Kind:      entities.KindRelease,
		Content:   md.Release.Body,
		CreatedAt: b.releaseTime(md.Release),
		Tags:      tags,
	}, nil
}

// Finalize signs a partial record set: FileMetadata first, then the Release with its
// pending references resolved, then the App. Already-final records are kept when
// they were authored by the signer.
func (b *RecordBuilder) Finalize(ctx context.Context, set *entities.RecordSet, signer gateways.Signer) error {
	if set == nil || set.FileMetadata == nil || set.Release == nil || set.App == nil {
		return fmt.Errorf("finalize: record set is incomplete")
	}
	if signer == nil {
		return fmt.Errorf("finalize: no signer")
	}
	pubkey := signer.PublicKey()

	owner := func(rec *entities.PublicationRecord) error {
		return ensureOwnerTags(rec, pubkey)
	}
	for _, rec := range []*entities.PublicationRecord{set.FileMetadata, set.App} {
		if err := b.finalizeOne(ctx, rec, signer, pubkey, owner); err != nil {
			return err
		}
	}

	resolve := func(rec *entities.PublicationRecord) error {
		return resolveReleaseRefs(rec, set.FileMetadata.ID, pubkey)
	}
	return b.finalizeOne(ctx, set.Release, signer, pubkey, resolve)
}

func (b *RecordBuilder) finalizeOne(ctx context.Context, rec *entities.PublicationRecord, signer gateways.Signer, pubkey string, prepare func(*entities.PublicationRecord) error) error {
	if rec.IsFinal() {
		if rec.PubKey != pubkey {
			return fmt.Errorf("finalize %s: %w", rec.Kind, ErrAuthorMismatch)
		}
		return nil
	}
	if err := prepare(rec); err != nil {
		return fmt.Errorf("finalize %s: %w", rec.Kind, err)
	}
	if err := signer.Sign(ctx, rec); err != nil {
		return fmt.Errorf("sign %s: %w", rec.Kind, err)
	}
	return nil
}

// ensureOwnerTags adds the p/zap pair that could not be emitted while the author was unknown
func ensureOwnerTags(rec *entities.PublicationRecord, pubkey string) error {
	if p, ok := rec.Tags.First(string(TagPubKey)); ok {
		if p.Value() != pubkey {
			return ErrAuthorMismatch
		}
		return nil
	}
	rec.Tags = append(rec.Tags,
		entities.Tag{string(TagPubKey), pubkey},
		entities.Tag{string(TagZap), pubkey, "1"},
	)
	return nil
}

func resolveReleaseRefs(rec *entities.PublicationRecord, fileID, pubkey string) error {
	for i, t := range rec.Tags {
		switch TagKey(t.Key()) {
		case TagEvent:
			if t.Value() == PendingFileMetadataID {
				rec.Tags[i] = entities.Tag{string(TagEvent), fileID}
			} else if t.Value() != fileID {
				return fmt.Errorf("release references %s, file metadata is %s", t.Value(), fileID)
			}
		case TagAddress:
			parts := strings.SplitN(t.Value(), ":", 3)
			if len(parts) != 3 {
				return fmt.Errorf("malformed address reference %q", t.Value())
			}
			switch parts[1] {
			case PendingAuthorKey:
				rec.Tags[i] = entities.Tag{string(TagAddress), AppAddress(pubkey, parts[2])}
			case pubkey:
			default:
				return ErrAuthorMismatch
			}
		}
	}
	return nil
}

// ReleaseIdentifier is the Release d-tag: "<appIdentifier>@<releaseTag>"
func ReleaseIdentifier(appIdentifier, tagName string) string {
	return appIdentifier + "@" + tagName
}

// AppAddress is the Release a-tag: "<appKind>:<authorPublicKey>:<appIdentifier>"
func AppAddress(pubkey, appIdentifier string) string {
	return fmt.Sprintf("%d:%s:%s", int(entities.KindApp), pubkey, appIdentifier)
}

func addOwner(tb *TagBuilder, pubkey string) {
	tb.AddOptional(TagPubKey, pubkey).
		AddIf(pubkey != "", TagZap, pubkey, "1")
}

func (b *RecordBuilder) releaseTime(r entities.ReleaseDescription) int64 {
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			return t.Unix()
		}
	}
	return b.clock.Now().Unix()
}

func itoa(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
