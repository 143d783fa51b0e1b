package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// ContentAddresser renames files to <sha256><ext> inside a storage directory
type ContentAddresser struct {
	storageDir string
}

// NewContentAddresser creates an addresser storing into storageDir
func NewContentAddresser(storageDir string) *ContentAddresser {
	return &ContentAddresser{storageDir: storageDir}
}

// Digest calculates the SHA256 checksum of a file.
// Pure Go implementation - no external sha256sum binary needed
func Digest(filePath string) (string, error) {
	//nolint:gosec // G304: File path is caller-provided for hashing
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Address moves path to its content-derived name. Addressing an already-addressed
// file is a no-op; if the destination already exists the source is discarded.
func (a *ContentAddresser) Address(ctx context.Context, path string) (*entities.CanonicalArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot address directory %s", path)
	}

	digest, err := Digest(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	mediaType := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		mediaType = mt.String()
		if ext == "" {
			ext = mt.Extension()
		}
	}
	// Android packages are zip archives to a content sniffer
	if ext == ".apk" {
		mediaType = entities.APKMediaType
	}

	artifact := &entities.CanonicalArtifact{
		Digest:            digest,
		StoragePath:       filepath.Join(a.storageDir, digest+ext),
		OriginalExtension: ext,
		MediaType:         mediaType,
		Size:              info.Size(),
	}

	if samePath(path, artifact.StoragePath) {
		return artifact, nil
	}

	if err := os.MkdirAll(a.storageDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	if _, err := os.Stat(artifact.StoragePath); err == nil {
		// Same digest, same bytes
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove duplicate %s: %w", path, err)
		}
		return artifact, nil
	}

	if err := relocate(path, artifact.StoragePath); err != nil {
		return nil, err
	}
	return artifact, nil
}

// relocate renames src to dst, copying through a temp file when they are on different devices
func relocate(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	//nolint:gosec // G304: Source path is caller-provided
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".addr-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
