package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zapstore/releastr/internal/domain/entities"
)

const testPubKey = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

// fakeSigner derives a deterministic id from the record content
type fakeSigner struct {
	pubkey string
	signed []entities.Kind
	fail   entities.Kind
}

func (s *fakeSigner) PublicKey() string {
	return s.pubkey
}

func (s *fakeSigner) Sign(_ context.Context, r *entities.PublicationRecord) error {
	if s.fail != 0 && r.Kind == s.fail {
		return errors.New("signer unavailable")
	}
	r.PubKey = s.pubkey
	raw, err := json.Marshal([]interface{}{0, r.PubKey, r.CreatedAt, r.Kind, r.Tags, r.Content})
	if err != nil {
		return err
	}
	sum := sha256.Sum256(raw)
	r.ID = hex.EncodeToString(sum[:])
	r.Sig = "sig-" + r.ID[:16]
	s.signed = append(s.signed, r.Kind)
	return nil
}

// fakeRelay answers queries from a fixed list and records publish calls
type fakeRelay struct {
	records   []*entities.PublicationRecord
	queryErr  error
	filters   []entities.RecordFilter
	published []*entities.PublicationRecord
	reject    map[entities.Kind]string
}

func (r *fakeRelay) Query(_ context.Context, f entities.RecordFilter) ([]*entities.PublicationRecord, error) {
	r.filters = append(r.filters, f)
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	return r.records, nil
}

func (r *fakeRelay) Publish(_ context.Context, rec *entities.PublicationRecord) error {
	r.published = append(r.published, rec)
	if reason, ok := r.reject[rec.Kind]; ok {
		return fmt.Errorf("relay rejected: %s", reason)
	}
	return nil
}

func fileMetadataRecord(id string, tags ...entities.Tag) *entities.PublicationRecord {
	return &entities.PublicationRecord{ID: id, Kind: entities.KindFileMetadata, Tags: tags}
}
