package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

var buildNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testBuildInput() BuildInput {
	return BuildInput{
		Metadata: &NormalizedMetadata{
			App: entities.AppDescription{
				Identifier:  "com.example.app",
				Name:        "Example",
				Description: "An example app",
				Repository:  "https://github.com/example/app",
				Icon:        "https://cdn.zap.store/icon.png",
				Images:      []string{"https://cdn.zap.store/s1.png"},
				Topics:      []string{"nostr"},
				StarCount:   intPtr(0),
				License:     "MIT",
			},
			Release: entities.ReleaseDescription{
				TagName:   "v1.0.0",
				Body:      "First release",
				CreatedAt: "2024-05-01T10:00:00Z",
				HTMLURL:   "https://github.com/example/app/releases/tag/v1.0.0",
			},
			File: entities.FileMetadataFacts{
				Identifier:       "com.example.app",
				VersionName:      "1.0.0",
				VersionCode:      "100",
				SizeBytes:        1,
				Architectures:    []string{"arm64-v8a"},
				SignatureDigests: []string{"cafe"},
			},
		},
		Artifact: &entities.CanonicalArtifact{
			Digest:      "0f3a",
			StoragePath: "/tmp/0f3a.apk",
			Size:        2048,
		},
		DownloadURL: "https://github.com/example/app/releases/download/v1.0.0/app.apk",
	}
}

func newTestBuilder() *RecordBuilder {
	return NewRecordBuilder(interfaces.FixedClock{Time: buildNow})
}

func TestBuild_Signed(t *testing.T) {
	signer := &fakeSigner{pubkey: testPubKey}
	in := testBuildInput()
	in.Signer = signer

	set, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	require.True(t, set.IsFinal())

	assert.Equal(t, []entities.Kind{entities.KindFileMetadata, entities.KindRelease, entities.KindApp}, signer.signed)

	e, ok := set.Release.Tags.First("e")
	require.True(t, ok)
	assert.Equal(t, set.FileMetadata.ID, e.Value())

	a, ok := set.Release.Tags.First("a")
	require.True(t, ok)
	assert.Equal(t, "32267:"+testPubKey+":com.example.app", a.Value())

	d, _ := set.Release.Tags.First("d")
	assert.Equal(t, "com.example.app@v1.0.0", d.Value())

	appD, _ := set.App.Tags.First("d")
	assert.Equal(t, "com.example.app", appD.Value())
	assert.Equal(t, []string{"0"}, set.App.Tags.Values("stars"))
	assert.Empty(t, set.App.Tags.Values("forks"))
	zap, ok := set.App.Tags.First("zap")
	require.True(t, ok)
	assert.Equal(t, entities.Tag{"zap", testPubKey, "1"}, zap)
}

func TestBuild_FileMetadataTags(t *testing.T) {
	set, err := newTestBuilder().Build(context.Background(), testBuildInput())
	require.NoError(t, err)

	fm := set.FileMetadata
	assert.Equal(t, entities.KindFileMetadata, fm.Kind)
	assert.Equal(t, "Example 1.0.0", fm.Content)
	assert.Equal(t, []string{"0f3a"}, fm.Tags.Values("x"))
	assert.Equal(t, []string{"2048"}, fm.Tags.Values("size"), "artifact size wins over introspected size")
	assert.Equal(t, []string{entities.APKMediaType}, fm.Tags.Values("m"))
	assert.Equal(t, []string{"cafe"}, fm.Tags.Values("apk_signature_hash"))
	assert.Equal(t, []string{"https://cdn.zap.store/icon.png"}, fm.Tags.Values("image"))
	assert.Empty(t, fm.Tags.Values("min_sdk_version"))
	assert.Empty(t, fm.Tags.Values("p"), "no owner tags without a public key")
}

func TestBuild_Timestamps(t *testing.T) {
	set, err := newTestBuilder().Build(context.Background(), testBuildInput())
	require.NoError(t, err)

	released := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, buildNow.Unix(), set.App.CreatedAt)
	assert.Equal(t, released, set.Release.CreatedAt)
	assert.Equal(t, released, set.FileMetadata.CreatedAt)

	in := testBuildInput()
	in.Metadata.Release.CreatedAt = "not a time"
	set, err = newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, buildNow.Unix(), set.Release.CreatedAt)
}

func TestBuild_UnsignedUsesPlaceholders(t *testing.T) {
	set, err := newTestBuilder().Build(context.Background(), testBuildInput())
	require.NoError(t, err)

	assert.False(t, set.App.IsFinal())
	assert.False(t, set.Release.IsFinal())
	assert.False(t, set.FileMetadata.IsFinal())

	assert.Equal(t, []string{PendingFileMetadataID}, set.Release.Tags.Values("e"))
	assert.Equal(t, []string{"32267:" + PendingAuthorKey + ":com.example.app"}, set.Release.Tags.Values("a"))
}

func TestBuild_UnsignedWithKnownPublicKey(t *testing.T) {
	in := testBuildInput()
	in.PublicKey = testPubKey

	set, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"32267:" + testPubKey + ":com.example.app"}, set.Release.Tags.Values("a"))
	assert.Equal(t, []string{testPubKey}, set.App.Tags.Values("p"))
	assert.Equal(t, []string{testPubKey}, set.FileMetadata.Tags.Values("p"))
}

func TestBuild_RejectsIncompleteInput(t *testing.T) {
	in := testBuildInput()
	in.Artifact = &entities.CanonicalArtifact{}
	_, err := newTestBuilder().Build(context.Background(), in)
	assert.Error(t, err)

	in = testBuildInput()
	in.DownloadURL = ""
	_, err = newTestBuilder().Build(context.Background(), in)
	assert.Error(t, err)

	in = testBuildInput()
	in.Metadata.App.Name = ""
	_, err = newTestBuilder().Build(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmptyTagValue)
}

func TestBuild_SignerFailure(t *testing.T) {
	in := testBuildInput()
	in.Signer = &fakeSigner{pubkey: testPubKey, fail: entities.KindFileMetadata}

	_, err := newTestBuilder().Build(context.Background(), in)
	assert.Error(t, err)
}

func TestFinalize(t *testing.T) {
	b := newTestBuilder()
	set, err := b.Build(context.Background(), testBuildInput())
	require.NoError(t, err)

	signer := &fakeSigner{pubkey: testPubKey}
	require.NoError(t, b.Finalize(context.Background(), set, signer))

	assert.True(t, set.IsFinal())
	assert.Equal(t, []entities.Kind{entities.KindFileMetadata, entities.KindApp, entities.KindRelease}, signer.signed)
	assert.Equal(t, []string{set.FileMetadata.ID}, set.Release.Tags.Values("e"))
	assert.Equal(t, []string{"32267:" + testPubKey + ":com.example.app"}, set.Release.Tags.Values("a"))
	assert.Equal(t, []string{testPubKey}, set.App.Tags.Values("p"))
	assert.Equal(t, []string{testPubKey}, set.FileMetadata.Tags.Values("zap"))
}

func TestFinalize_AuthorMismatch(t *testing.T) {
	b := newTestBuilder()
	in := testBuildInput()
	in.PublicKey = "someoneelse"
	set, err := b.Build(context.Background(), in)
	require.NoError(t, err)

	err = b.Finalize(context.Background(), set, &fakeSigner{pubkey: testPubKey})
	assert.ErrorIs(t, err, ErrAuthorMismatch)
}

func TestFinalize_KeepsFinalRecordsOfSameAuthor(t *testing.T) {
	b := newTestBuilder()
	in := testBuildInput()
	in.Signer = &fakeSigner{pubkey: testPubKey}
	set, err := b.Build(context.Background(), in)
	require.NoError(t, err)
	fileID := set.FileMetadata.ID

	signer := &fakeSigner{pubkey: testPubKey}
	require.NoError(t, b.Finalize(context.Background(), set, signer))
	assert.Empty(t, signer.signed)
	assert.Equal(t, fileID, set.FileMetadata.ID)

	err = b.Finalize(context.Background(), set, &fakeSigner{pubkey: "other"})
	assert.ErrorIs(t, err, ErrAuthorMismatch)
}

func TestReleaseIdentifierAndAddress(t *testing.T) {
	assert.Equal(t, "com.a@v2", ReleaseIdentifier("com.a", "v2"))
	assert.Equal(t, "32267:pk:com.a", AppAddress("pk", "com.a"))
}
