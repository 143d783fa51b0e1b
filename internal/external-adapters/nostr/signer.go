package nostr

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	gonostr "github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// Signer finalizes records with a secret key
type Signer struct {
	secretKey string
	publicKey string
}

// NewSigner accepts a bech32 nsec or a 64-character hex secret key
func NewSigner(secret string) (*Signer, error) {
	sk, err := decodeKey(strings.TrimSpace(secret), "nsec")
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	pk, err := gonostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return &Signer{secretKey: sk, publicKey: pk}, nil
}

// PublicKey returns the hex public key
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// Sign computes the record id and signature, setting PubKey, ID and Sig in place
func (s *Signer) Sign(ctx context.Context, rec *entities.PublicationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := toEvent(rec)
	ev.PubKey = s.publicKey
	if err := ev.Sign(s.secretKey); err != nil {
		return fmt.Errorf("failed to sign %s: %w", rec.Kind, err)
	}
	rec.PubKey = ev.PubKey
	rec.ID = ev.ID
	rec.Sig = ev.Sig
	return nil
}

// Verify checks a finalized record's id and signature
func Verify(rec *entities.PublicationRecord) (bool, error) {
	ev := toEvent(rec)
	ev.PubKey, ev.ID, ev.Sig = rec.PubKey, rec.ID, rec.Sig
	if ev.GetID() != rec.ID {
		return false, nil
	}
	return ev.CheckSignature()
}

// DecodePublicKey accepts a bech32 npub or a 64-character hex public key and returns hex
func DecodePublicKey(s string) (string, error) {
	pk, err := decodeKey(strings.TrimSpace(s), "npub")
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return pk, nil
}

// EncodePublicKey renders a hex public key as npub
func EncodePublicKey(hexKey string) (string, error) {
	return nip19.EncodePublicKey(hexKey)
}

func decodeKey(s, prefix string) (string, error) {
	if strings.HasPrefix(s, prefix+"1") {
		got, value, err := nip19.Decode(s)
		if err != nil {
			return "", err
		}
		if got != prefix {
			return "", fmt.Errorf("expected %s, got %s", prefix, got)
		}
		key, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("unexpected %s payload", prefix)
		}
		return key, nil
	}
	if !isHexKey(s) {
		return "", fmt.Errorf("expected %s or 64 hex characters", prefix)
	}
	return strings.ToLower(s), nil
}

func isHexKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func toEvent(rec *entities.PublicationRecord) *gonostr.Event {
	tags := make(gonostr.Tags, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		tags = append(tags, gonostr.Tag(append([]string(nil), t...)))
	}
	return &gonostr.Event{
		CreatedAt: gonostr.Timestamp(rec.CreatedAt),
		Kind:      int(rec.Kind),
		Tags:      tags,
		Content:   rec.Content,
	}
}
