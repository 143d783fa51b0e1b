package services

import (
	"context"
	"fmt"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
	"github.com/zapstore/releastr/internal/domain/interfaces/gateways"
)

// DedupQuery carries what is known about an artifact before publishing.
// Either field may be empty; the matching check is then skipped.
type DedupQuery struct {
	URL    string
	Digest string
}

// Deduplicator finds prior FileMetadata records for the same artifact
type Deduplicator struct {
	relay  gateways.RecordQuerier
	logger interfaces.Logger
}

// NewDeduplicator creates a deduplicator over the given relay
func NewDeduplicator(relay gateways.RecordQuerier, logger interfaces.Logger) *Deduplicator {
	return &Deduplicator{relay: relay, logger: interfaces.OrNoOp(logger)}
}

// FindByURL runs the cheap pre-download check. The relay's search is fuzzy,
// so only records whose url tag equals url exactly are returned.
func (d *Deduplicator) FindByURL(ctx context.Context, url string) ([]*entities.PublicationRecord, error) {
	if url == "" {
		return nil, nil
	}
	records, err := d.relay.Query(ctx, entities.RecordFilter{
		Kinds:  []entities.Kind{entities.KindFileMetadata},
		Search: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query records by url: %w", err)
	}
	matches := matching(records, TagURL, url)
	d.logger.Debug("URL dedup check",
		interfaces.F("url", url),
		interfaces.F("candidates", len(records)),
		interfaces.F("matches", len(matches)),
	)
	return matches, nil
}

// FindByDigest runs the authoritative post-download check on the x tag
func (d *Deduplicator) FindByDigest(ctx context.Context, digest string) ([]*entities.PublicationRecord, error) {
	if digest == "" {
		return nil, nil
	}
	records, err := d.relay.Query(ctx, entities.RecordFilter{
		Kinds: []entities.Kind{entities.KindFileMetadata},
		Tags:  map[string][]string{string(TagDigest): {digest}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query records by digest: %w", err)
	}
	matches := matching(records, TagDigest, digest)
	d.logger.Debug("Digest dedup check",
		interfaces.F("digest", digest),
		interfaces.F("candidates", len(records)),
		interfaces.F("matches", len(matches)),
	)
	return matches, nil
}

// AlreadyPublished checks by URL, then by digest, and returns the first non-empty match set
func (d *Deduplicator) AlreadyPublished(ctx context.Context, q DedupQuery) ([]*entities.PublicationRecord, error) {
	matches, err := d.FindByURL(ctx, q.URL)
	if err != nil || len(matches) > 0 {
		return matches, err
	}
	return d.FindByDigest(ctx, q.Digest)
}

// Gate reports whether processing should stop with a duplicate outcome
func Gate(matches []*entities.PublicationRecord, overwrite bool) bool {
	return len(matches) > 0 && !overwrite
}

// matching keeps FileMetadata records whose first key tag value equals want
func matching(records []*entities.PublicationRecord, key TagKey, want string) []*entities.PublicationRecord {
	var out []*entities.PublicationRecord
	for _, r := range records {
		if r == nil || r.Kind != entities.KindFileMetadata {
			continue
		}
		if t, ok := r.Tags.First(string(key)); ok && t.Value() == want {
			out = append(out, r)
		}
	}
	return out
}
