package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapstore/releastr/internal/domain/entities"
)

const assetURL = "https://github.com/example/app/releases/download/v1/app.apk"

func TestFindByURL_ExactMatchOnly(t *testing.T) {
	relay := &fakeRelay{records: []*entities.PublicationRecord{
		fileMetadataRecord("near", entities.Tag{"url", assetURL + "?x=1"}),
		fileMetadataRecord("exact", entities.Tag{"url", assetURL}),
		fileMetadataRecord("none"),
		{ID: "wrong-kind", Kind: entities.KindRelease, Tags: entities.Tags{{"url", assetURL}}},
	}}
	d := NewDeduplicator(relay, nil)

	got, err := d.FindByURL(context.Background(), assetURL)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exact", got[0].ID)

	require.Len(t, relay.filters, 1)
	assert.Equal(t, []entities.Kind{entities.KindFileMetadata}, relay.filters[0].Kinds)
	assert.Equal(t, assetURL, relay.filters[0].Search)
}

func TestFindByURL_SearchFalsePositivesAreNotDuplicates(t *testing.T) {
	relay := &fakeRelay{records: []*entities.PublicationRecord{
		fileMetadataRecord("other", entities.Tag{"url", "https://github.com/example/app/releases/download/v0/app.apk"}),
	}}
	got, err := NewDeduplicator(relay, nil).FindByURL(context.Background(), assetURL)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, Gate(got, false))
}

func TestFindByDigest(t *testing.T) {
	relay := &fakeRelay{records: []*entities.PublicationRecord{
		fileMetadataRecord("a", entities.Tag{"x", "beef"}),
		fileMetadataRecord("b", entities.Tag{"x", "dead"}),
	}}
	got, err := NewDeduplicator(relay, nil).FindByDigest(context.Background(), "beef")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, map[string][]string{"x": {"beef"}}, relay.filters[0].Tags)
}

func TestAlreadyPublished(t *testing.T) {
	t.Run("url match short-circuits", func(t *testing.T) {
		relay := &fakeRelay{records: []*entities.PublicationRecord{
			fileMetadataRecord("a", entities.Tag{"url", assetURL}, entities.Tag{"x", "beef"}),
		}}
		got, err := NewDeduplicator(relay, nil).AlreadyPublished(context.Background(), DedupQuery{URL: assetURL, Digest: "beef"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Len(t, relay.filters, 1)
	})

	t.Run("falls through to digest", func(t *testing.T) {
		relay := &fakeRelay{records: []*entities.PublicationRecord{
			fileMetadataRecord("a", entities.Tag{"url", "https://mirror/app.apk"}, entities.Tag{"x", "beef"}),
		}}
		got, err := NewDeduplicator(relay, nil).AlreadyPublished(context.Background(), DedupQuery{URL: assetURL, Digest: "beef"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Len(t, relay.filters, 2)
	})

	t.Run("empty query does not touch the relay", func(t *testing.T) {
		relay := &fakeRelay{}
		got, err := NewDeduplicator(relay, nil).AlreadyPublished(context.Background(), DedupQuery{})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, relay.filters)
	})

	t.Run("relay error", func(t *testing.T) {
		relay := &fakeRelay{queryErr: errors.New("connection refused")}
		_, err := NewDeduplicator(relay, nil).AlreadyPublished(context.Background(), DedupQuery{URL: assetURL})
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestGate(t *testing.T) {
	matches := []*entities.PublicationRecord{fileMetadataRecord("a")}
	assert.True(t, Gate(matches, false))
	assert.False(t, Gate(matches, true))
	assert.False(t, Gate(nil, false))
}
