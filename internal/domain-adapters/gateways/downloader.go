package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/zapstore/releastr/internal/domain/interfaces"
)

// Downloader fetches remote files into a local directory
type Downloader struct {
	httpClient  *http.Client
	githubToken string
	logger      interfaces.Logger
}

// NewDownloader creates a new downloader. The GitHub token, when set, is only sent to github.com hosts.
func NewDownloader(githubToken string, logger interfaces.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for large downloads
		},
		githubToken: githubToken,
		logger:      interfaces.OrNoOp(logger),
	}
}

// Download writes the body of rawURL to a new file in destDir and returns its path.
// The file name keeps the URL's base name (and so its extension) behind a unique prefix.
func (d *Downloader) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "releastr/1.0")
	if d.githubToken != "" && isGitHubHost(u.Hostname()) {
		req.Header.Set("Authorization", "Bearer "+d.githubToken)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.CreateTemp(destDir, "download-*-"+downloadName(u))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	d.logger.Info("Downloaded",
		interfaces.F("url", rawURL),
		interfaces.F("path", out.Name()),
		interfaces.F("bytes", written),
	)
	return out.Name(), nil
}

func downloadName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.NewReplacer("*", "_", "/", "_", "\\", "_").Replace(name)
}

func isGitHubHost(host string) bool {
	host = strings.ToLower(host)
	return host == "github.com" || strings.HasSuffix(host, ".github.com")
}
