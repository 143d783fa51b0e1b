package gateways

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

var (
	badgingAttr   = regexp.MustCompile(`(\w+)='([^']*)'`)
	badgingQuoted = regexp.MustCompile(`'([^']*)'`)
)

// APKIntrospector reads package facts with aapt2 and apksigner, and the
// archive listing for native libraries and icons
type APKIntrospector struct {
	runner    CommandRunner
	aapt      string
	apksigner string
	logger    interfaces.Logger
}

// NewAPKIntrospector creates an introspector. Empty tool paths default to the names on PATH.
func NewAPKIntrospector(runner CommandRunner, aaptPath, apksignerPath string, logger interfaces.Logger) *APKIntrospector {
	if aaptPath == "" {
		aaptPath = "aapt2"
	}
	if apksignerPath == "" {
		apksignerPath = "apksigner"
	}
	return &APKIntrospector{
		runner:    runner,
		aapt:      aaptPath,
		apksigner: apksignerPath,
		logger:    interfaces.OrNoOp(logger),
	}
}

// Introspect gathers identifier, versions, SDK levels, ABIs, signer digests and icon entries
func (i *APKIntrospector) Introspect(ctx context.Context, apkPath string) (*entities.FileMetadataFacts, error) {
	info, err := os.Stat(apkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", apkPath, err)
	}

	badging := i.runner.Run(ctx, i.aapt, "dump", "badging", apkPath)
	if err := badging.Err(); err != nil {
		return nil, fmt.Errorf("failed to dump badging: %w", err)
	}
	facts := ParseBadging(badging.Stdout)
	facts.SizeBytes = info.Size()

	abis, err := listNativeABIs(apkPath)
	if err != nil {
		return nil, err
	}
	if len(abis) > 0 {
		facts.Architectures = abis
	}

	certs := i.runner.Run(ctx, i.apksigner, "verify", "--print-certs", apkPath)
	if err := certs.Err(); err != nil {
		// Unsigned or malformed signatures only lose the signature tags
		i.logger.Warn("Could not read package signers",
			interfaces.F("path", apkPath),
			interfaces.F("error", err.Error()),
		)
	} else {
		facts.SignatureDigests = ParseSignerDigests(certs.Stdout)
	}

	i.logger.Debug("Introspected package",
		interfaces.F("identifier", facts.Identifier),
		interfaces.F("version", facts.VersionName),
		interfaces.F("architectures", facts.Architectures),
	)
	return facts, nil
}

// ExtractEntry copies one archive entry into destDir, keeping its extension
func (i *APKIntrospector) ExtractEntry(ctx context.Context, apkPath, entry, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(apkPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != entry {
			continue
		}
		if err := os.MkdirAll(destDir, 0750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		return extractZipFile(f, destDir)
	}
	return "", fmt.Errorf("entry %s not found in %s", entry, apkPath)
}

func extractZipFile(f *zip.File, destDir string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	//nolint:errcheck // Defer close on archive entry
	defer rc.Close()

	out, err := os.CreateTemp(destDir, "entry-*"+path.Ext(f.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	// Icons are small; cap the copy to guard against decompression bombs
	_, err = io.Copy(out, io.LimitReader(rc, 64<<20))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to write entry %s: %w", f.Name, err)
	}
	return out.Name(), nil
}

// listNativeABIs returns the lib/<abi>/ directories present in the archive, sorted
func listNativeABIs(apkPath string) ([]string, error) {
	zr, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer zr.Close()

	seen := make(map[string]bool)
	for _, f := range zr.File {
		parts := strings.Split(f.Name, "/")
		if len(parts) >= 3 && parts[0] == "lib" && parts[1] != "" {
			seen[parts[1]] = true
		}
	}

	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis, nil
}

// ParseBadging extracts facts from `aapt2 dump badging` output
func ParseBadging(out string) *entities.FileMetadataFacts {
	facts := &entities.FileMetadataFacts{}

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch {
		case key == "package":
			for _, m := range badgingAttr.FindAllStringSubmatch(rest, -1) {
				switch m[1] {
				case "name":
					facts.Identifier = m[2]
				case "versionCode":
					facts.VersionCode = m[2]
				case "versionName":
					facts.VersionName = m[2]
				}
			}
		case key == "sdkVersion" || key == "minSdkVersion":
			facts.MinPlatformVersion = firstQuoted(rest)
		case key == "targetSdkVersion":
			facts.TargetPlatformVersion = firstQuoted(rest)
		case key == "native-code":
			for _, m := range badgingQuoted.FindAllStringSubmatch(rest, -1) {
				facts.Architectures = append(facts.Architectures, m[1])
			}
		case strings.HasPrefix(key, "application-icon-"):
			if icon := firstQuoted(rest); isRasterIcon(icon) {
				dpi, _ := strconv.Atoi(strings.TrimPrefix(key, "application-icon-"))
				facts.IconEntries = append(facts.IconEntries, entities.IconEntry{Path: icon, Density: dpi})
			}
		}
	}
	return facts
}

// ParseSignerDigests extracts certificate SHA-256 digests from `apksigner verify --print-certs`
func ParseSignerDigests(out string) []string {
	var digests []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "certificate SHA-256 digest:") {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if d := strings.TrimSpace(line[idx+1:]); d != "" {
			digests = append(digests, strings.ToLower(d))
		}
	}
	return digests
}

func firstQuoted(s string) string {
	if m := badgingQuoted.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// isRasterIcon skips adaptive icon XML, which cannot be published as an image
func isRasterIcon(entry string) bool {
	switch strings.ToLower(path.Ext(entry)) {
	case ".png", ".webp", ".jpg", ".jpeg":
		return true
	}
	return false
}
