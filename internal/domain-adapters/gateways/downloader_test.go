package gateways

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/releases/download/v1/app-arm64.apk", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "token is only sent to github hosts")
		_, _ = w.Write([]byte("apk bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	p, err := NewDownloader("secret", nil).Download(context.Background(), server.URL+"/releases/download/v1/app-arm64.apk", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(p))
	assert.True(t, strings.HasSuffix(p, "-app-arm64.apk"))
	content, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "apk bytes", string(content))
}

func TestDownloader_ConcurrentSameNameDoNotCollide(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader("", nil)
	a, err := d.Download(context.Background(), server.URL+"/app.apk", dir)
	require.NoError(t, err)
	b, err := d.Download(context.Background(), server.URL+"/app.apk", dir)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDownloader_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	_, err := NewDownloader("", nil).Download(context.Background(), server.URL+"/missing.apk", dir)
	assert.ErrorContains(t, err, "HTTP 404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIsGitHubHost(t *testing.T) {
	assert.True(t, isGitHubHost("github.com"))
	assert.True(t, isGitHubHost("objects.github.com"))
	assert.False(t, isGitHubHost("notgithub.com"))
	assert.False(t, isGitHubHost("127.0.0.1"))
}
