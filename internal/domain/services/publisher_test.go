package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapstore/releastr/internal/domain/entities"
)

func signedSet(t *testing.T) *entities.RecordSet {
	t.Helper()
	in := testBuildInput()
	in.Signer = &fakeSigner{pubkey: testPubKey}
	set, err := newTestBuilder().Build(context.Background(), in)
	require.NoError(t, err)
	return set
}

func TestPublishRecords_Order(t *testing.T) {
	relay := &fakeRelay{}
	outcomes := PublishRecords(context.Background(), relay, signedSet(t))

	require.Len(t, relay.published, 3)
	assert.Equal(t, entities.KindFileMetadata, relay.published[0].Kind)
	assert.Equal(t, entities.KindRelease, relay.published[1].Kind)
	assert.Equal(t, entities.KindApp, relay.published[2].Kind)
	for _, o := range outcomes {
		assert.True(t, o.Accepted)
		assert.NotEmpty(t, o.RecordID)
	}
}

func TestPublishRecords_FailuresAreIndependent(t *testing.T) {
	relay := &fakeRelay{reject: map[entities.Kind]string{entities.KindRelease: "blocked"}}
	outcomes := PublishRecords(context.Background(), relay, signedSet(t))

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Accepted)
	assert.False(t, outcomes[1].Accepted)
	assert.Contains(t, outcomes[1].Reason, "blocked")
	assert.True(t, outcomes[2].Accepted, "app is still attempted after a release rejection")
}

func TestPublishRecords_RefusesPartialRecords(t *testing.T) {
	set, err := newTestBuilder().Build(context.Background(), testBuildInput())
	require.NoError(t, err)

	relay := &fakeRelay{}
	outcomes := PublishRecords(context.Background(), relay, set)

	assert.Empty(t, relay.published)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.False(t, o.Accepted)
		assert.Equal(t, ReasonNotFinalized, o.Reason)
	}
}

func TestPublishRecords_SkipsNil(t *testing.T) {
	set := signedSet(t)
	set.App = nil
	outcomes := PublishRecords(context.Background(), &fakeRelay{}, set)
	assert.Len(t, outcomes, 2)
	assert.Nil(t, PublishRecords(context.Background(), &fakeRelay{}, nil))
}

func TestPublishRecords_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay := &fakeRelay{}
	outcomes := PublishRecords(ctx, relay, signedSet(t))
	assert.Empty(t, relay.published)
	for _, o := range outcomes {
		assert.False(t, o.Accepted)
	}
}
