package services

import (
	"strings"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// DefaultArchitecture is assumed when introspection reports no native libraries
const DefaultArchitecture = "arm64-v8a"

// NormalizeInput holds every partial source for one app, in no particular order.
// Precedence is fixed by Normalize: explicit > repository > store > defaults.
type NormalizeInput struct {
	Alias      string
	Explicit   *entities.AppDescription
	Repository *entities.AppDescription
	Store      *entities.AppDescription
	Release    *entities.ReleaseDescription
	File       *entities.FileMetadataFacts
}

// NormalizedMetadata is the coherent description records are built from
type NormalizedMetadata struct {
	App     entities.AppDescription
	Release entities.ReleaseDescription
	File    entities.FileMetadataFacts
}

// Normalize merges all sources into one app/release/file description.
// The identifier only ever comes from explicit config or introspection.
func Normalize(in NormalizeInput) (*NormalizedMetadata, error) {
	defaults := &entities.AppDescription{Name: in.Alias}
	app := MergeApp(in.Explicit, withoutIdentifier(in.Repository), withoutIdentifier(in.Store), defaults)

	var file entities.FileMetadataFacts
	if in.File != nil {
		file = *in.File
	}

	var explicitID string
	if in.Explicit != nil {
		explicitID = in.Explicit.Identifier
	}
	app.Identifier = firstNonEmpty(explicitID, file.Identifier)
	if app.Identifier == "" {
		return nil, inputErrorf(ErrMissingIdentifier, "app %s: not configured and not found in package", in.Alias)
	}
	file.Identifier = app.Identifier

	file.Architectures = appendUnique(nil, file.Architectures...)
	if len(file.Architectures) == 0 {
		file.Architectures = []string{DefaultArchitecture}
	}
	file.SignatureDigests = appendUnique(nil, file.SignatureDigests...)

	var release entities.ReleaseDescription
	if in.Release != nil {
		release = *in.Release
	}
	release.TagName = firstNonEmpty(release.TagName, file.VersionName)
	if release.TagName == "" {
		return nil, inputErrorf(ErrMissingReleaseTag, "app %s: no repository release and no package version", in.Alias)
	}

	return &NormalizedMetadata{App: app, Release: release, File: file}, nil
}

// MergeApp merges partial descriptions field by field. Sources are given in
// priority order; nil sources are skipped. Strings keep the first non-empty value,
// counts keep the first present value (so zero survives), lists are concatenated
// without duplicates.
func MergeApp(sources ...*entities.AppDescription) entities.AppDescription {
	var out entities.AppDescription
	for _, s := range sources {
		if s == nil {
			continue
		}
		out.Identifier = firstNonEmpty(out.Identifier, s.Identifier)
		out.Name = firstNonEmpty(out.Name, s.Name)
		out.Description = firstNonEmpty(out.Description, s.Description)
		out.Homepage = firstNonEmpty(out.Homepage, s.Homepage)
		out.Repository = firstNonEmpty(out.Repository, s.Repository)
		out.License = firstNonEmpty(out.License, s.License)
		out.Icon = firstNonEmpty(out.Icon, s.Icon)
		out.OwnerPublicKey = firstNonEmpty(out.OwnerPublicKey, s.OwnerPublicKey)
		out.StarCount = firstPresent(out.StarCount, s.StarCount)
		out.ForkCount = firstPresent(out.ForkCount, s.ForkCount)
		out.Images = appendUnique(out.Images, s.Images...)
		out.Topics = appendUnique(out.Topics, s.Topics...)
	}
	return out
}

// RepoFactsToApp converts repository facts into a partial app description
func RepoFactsToApp(ref entities.RepoRef, facts *entities.RepoFacts) *entities.AppDescription {
	if facts == nil {
		return &entities.AppDescription{Repository: ref.URL()}
	}
	return &entities.AppDescription{
		Name:        facts.Name,
		Description: facts.Description,
		Homepage:    facts.Homepage,
		Repository:  ref.URL(),
		License:     facts.License,
		Topics:      append([]string(nil), facts.Topics...),
		StarCount:   facts.StarCount,
		ForkCount:   facts.ForkCount,
	}
}

// StoreFactsToApp converts store facts into a partial app description.
// Icon and images are left to the caller, which addresses them first.
func StoreFactsToApp(facts *entities.StoreFacts) *entities.AppDescription {
	if facts == nil {
		return nil
	}
	return &entities.AppDescription{
		Name:        facts.Name,
		Description: facts.Description,
	}
}

func withoutIdentifier(d *entities.AppDescription) *entities.AppDescription {
	if d == nil || d.Identifier == "" {
		return d
	}
	c := *d
	c.Identifier = ""
	return &c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPresent(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			n := *v
			return &n
		}
	}
	return nil
}

// appendUnique appends values not already present (case-sensitive), skipping blanks
func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst)+len(values))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
