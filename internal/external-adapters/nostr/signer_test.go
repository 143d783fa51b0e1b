package nostr

import (
	"context"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapstore/releastr/internal/domain/entities"
)

const (
	secretOne = "0000000000000000000000000000000000000000000000000000000000000001"
	publicOne = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
)

func TestNewSigner_Hex(t *testing.T) {
	s, err := NewSigner(secretOne)
	require.NoError(t, err)
	assert.Equal(t, publicOne, s.PublicKey())
}

func TestNewSigner_Nsec(t *testing.T) {
	nsec, err := nip19.EncodePrivateKey(secretOne)
	require.NoError(t, err)

	s, err := NewSigner("  " + nsec + "\n")
	require.NoError(t, err)
	assert.Equal(t, publicOne, s.PublicKey())
}

func TestNewSigner_Invalid(t *testing.T) {
	for _, in := range []string{"", "nsec1invalid", "abc", strings.Repeat("z", 64)} {
		_, err := NewSigner(in)
		assert.Error(t, err, in)
	}

	npub, err := nip19.EncodePublicKey(publicOne)
	require.NoError(t, err)
	_, err = NewSigner(npub)
	assert.Error(t, err)
}

func TestSigner_Sign(t *testing.T) {
	s, err := NewSigner(secretOne)
	require.NoError(t, err)

	rec := &entities.PublicationRecord{
		CreatedAt: 1700000000,
		Kind:      entities.KindApp,
		Tags:      entities.Tags{{"d", "com.example.app"}, {"name", "Example"}},
		Content:   "An example app",
	}
	require.NoError(t, s.Sign(context.Background(), rec))

	assert.Equal(t, publicOne, rec.PubKey)
	assert.Len(t, rec.ID, 64)
	assert.Len(t, rec.Sig, 128)
	assert.True(t, rec.IsFinal())

	ok, err := Verify(rec)
	require.NoError(t, err)
	assert.True(t, ok)

	rec.Content = "tampered"
	ok, _ = Verify(rec)
	assert.False(t, ok)
}

func TestSigner_SignCancelled(t *testing.T) {
	s, err := NewSigner(secretOne)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &entities.PublicationRecord{Kind: entities.KindApp}
	assert.Error(t, s.Sign(ctx, rec))
	assert.Empty(t, rec.ID)
}

func TestDecodePublicKey(t *testing.T) {
	npub, err := EncodePublicKey(publicOne)
	require.NoError(t, err)

	got, err := DecodePublicKey(npub)
	require.NoError(t, err)
	assert.Equal(t, publicOne, got)

	got, err = DecodePublicKey(strings.ToUpper(publicOne))
	require.NoError(t, err)
	assert.Equal(t, publicOne, got)

	_, err = DecodePublicKey("npub1nope")
	assert.Error(t, err)
}
