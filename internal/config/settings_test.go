package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	s, err := FromEnv(envMap(nil))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, DefaultConfigPath, s.ConfigPath)
	assert.Equal(t, DefaultStorageDir, s.StorageDir)
	assert.Equal(t, DefaultRelayURL, s.RelayURL)
	assert.Equal(t, 1, s.Concurrency)
	assert.True(t, s.PullRepoMetadata)
	assert.True(t, s.PullStoreMetadata)
	assert.False(t, s.Overwrite)
	assert.False(t, s.HasSecret())
}

func TestFromEnv_LegacyNames(t *testing.T) {
	s, err := FromEnv(envMap(map[string]string{
		"BLOSSOM_DIR":  "/data/blossom",
		"GITHUB_TOKEN": "ghp_x",
		"OVERWRITE":    "yes",
		"ONLY_PROCESS": "amethyst",
		"NSEC":         "nsec1abc",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data/blossom", s.StorageDir)
	assert.Equal(t, "ghp_x", s.GitHubToken)
	assert.True(t, s.Overwrite)
	assert.Equal(t, "amethyst", s.OnlyApp)
	assert.Equal(t, "nsec1abc", s.SecretKey)
	assert.True(t, s.HasSecret())
}

func TestFromEnv_PrefixedNamesWin(t *testing.T) {
	s, err := FromEnv(envMap(map[string]string{
		"BLOSSOM_DIR":                  "/legacy",
		"RELEASTR_STORAGE_DIR":         "/new",
		"RELEASTR_OVERWRITE":           "false",
		"OVERWRITE":                    "1",
		"RELEASTR_PULL_STORE_METADATA": "0",
		"RELEASTR_CONCURRENCY":         "4",
		"RELEASTR_CDN_URL":             "https://cdn.example.com/",
		"RELEASTR_LOG_LEVEL":           "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/new", s.StorageDir)
	assert.False(t, s.Overwrite)
	assert.False(t, s.PullStoreMetadata)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, "https://cdn.example.com", s.CDNBaseURL)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "https://cdn.example.com/abc.png", s.CDNURL("abc.png"))
}

func TestFromEnv_InvalidConcurrency(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"RELEASTR_CONCURRENCY": "many"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "relay not a url", mutate: func(s *Settings) { s.RelayURL = "relay" }},
		{name: "zero concurrency", mutate: func(s *Settings) { s.Concurrency = 0 }},
		{name: "unknown log level", mutate: func(s *Settings) { s.LogLevel = "trace" }},
		{name: "unknown log format", mutate: func(s *Settings) { s.LogFormat = "xml" }},
		{name: "two secret sources", mutate: func(s *Settings) { s.SecretKey = "a"; s.SecretKeyFile = "b" }},
		{name: "empty storage dir", mutate: func(s *Settings) { s.StorageDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}
