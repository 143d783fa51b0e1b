package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapstore/releastr/internal/domain/entities"
)

func sampleResults() []*entities.AppResult {
	return []*entities.AppResult{
		{Alias: "one", Status: entities.StatusPublished, Artifact: &entities.CanonicalArtifact{Digest: "d1"}},
		{Alias: "two", Status: entities.StatusDuplicate, Reason: "package d2 already published"},
		{Alias: "three", Status: entities.StatusFailed, Reason: "relay rejected"},
		{Alias: "four", Status: entities.StatusPartial, Reason: "dry run", Records: &entities.RecordSet{}},
	}
}

func TestBuildReport(t *testing.T) {
	r := buildReport(sampleResults())

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, []string{"one"}, r.Published)
	assert.Equal(t, []string{"two"}, r.Duplicate)
	assert.Equal(t, []string{"three"}, r.Failed)
	assert.Equal(t, []string{"four"}, r.Partial)
	assert.Empty(t, r.Skipped)
}

func TestRenderReport(t *testing.T) {
	out := renderReport(sampleResults())

	assert.Contains(t, out, "Publish report")
	assert.Contains(t, out, "d1")
	assert.Contains(t, out, "package d2 already published")
	assert.Contains(t, out, "4 apps: 1 published, 1 partial, 1 duplicate, 0 skipped, 1 failed")
}

func TestCollectBundles(t *testing.T) {
	results := sampleResults()
	results[0].Records = &entities.RecordSet{}

	assert.Len(t, collectBundles(results, false), 2)
	only := collectBundles(results, true)
	require.Len(t, only, 1)
	assert.Equal(t, "four", only[0].Alias)
}

func TestReadBundles_RejectsIncompleteSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"alias":"x","records":{"app":{"kind":32267,"tags":[],"content":"","created_at":1}}}]`), 0o600))

	_, err := readBundles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing records")
}
