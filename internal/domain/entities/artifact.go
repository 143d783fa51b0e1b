// Package entities defines core domain models and data structures.
package entities

import "path/filepath"

// APKMediaType is the media type of an Android package archive
const APKMediaType = "application/vnd.android.package-archive"

// CandidateAsset is a downloadable binary attached to a release
type CandidateAsset struct {
	Name      string
	MediaType string
	URL       string
	Size      int64
}

// CanonicalArtifact is a file after content-addressing.
// Identical bytes always resolve to the same StoragePath.
type CanonicalArtifact struct {
	Digest            string // SHA-256, lowercase hex
	StoragePath       string
	OriginalExtension string
	MediaType         string
	Size              int64
}

// StoredName returns the digest-derived file name inside the storage directory
func (a *CanonicalArtifact) StoredName() string {
	if a == nil || a.StoragePath == "" {
		return ""
	}
	return filepath.Base(a.StoragePath)
}
